package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ChannelProfile is the aggregation result for a channel page: the public
// user fields plus subscription counts relative to the viewer.
type ChannelProfile struct {
	ID                 bson.ObjectID `bson:"_id" json:"id"`
	Username           string        `bson:"username" json:"username"`
	Fullname           string        `bson:"fullname" json:"fullname"`
	Email              string        `bson:"email" json:"email"`
	Avatar             string        `bson:"avatar,omitempty" json:"avatar,omitempty"`
	CoverImage         string        `bson:"coverImage,omitempty" json:"coverImage,omitempty"`
	SubscriberCount    int64         `bson:"subscriberCount" json:"subscriberCount"`
	SubscribedToCount  int64         `bson:"channelSubscribedToCount" json:"channelSubscribedToCount"`
	IsSubscribed       bool          `bson:"isSubscribed" json:"isSubscribed"`
}

// WatchHistoryEntry is one watched video joined with its owner's public
// fields.
type WatchHistoryEntry struct {
	ID          bson.ObjectID     `bson:"_id" json:"id"`
	Title       string            `bson:"title" json:"title"`
	Description string            `bson:"description" json:"description"`
	CreatedAt   time.Time         `bson:"createdAt" json:"createdAt"`
	Owner       WatchHistoryOwner `bson:"owner" json:"owner"`
}

type WatchHistoryOwner struct {
	Username string `bson:"username" json:"username"`
	Fullname string `bson:"fullname" json:"fullname"`
	Avatar   string `bson:"avatar,omitempty" json:"avatar,omitempty"`
}
