package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/streamloop/tubebackend/auth"
	"github.com/streamloop/tubebackend/models"
	"github.com/streamloop/tubebackend/utils"
)

// ErrDuplicateUser is returned when a registration collides with an
// existing username or email.
var ErrDuplicateUser = errors.New("username or email already exists")

// UserStore is the mongo-backed user record store. It implements
// auth.SessionStore and carries the profile/history queries on top.
type UserStore struct {
	users         *mongo.Collection
	videos        *mongo.Collection
	subscriptions *mongo.Collection
}

func NewUserStore() *UserStore {
	return &UserStore{
		users:         OpenCollection("users"),
		videos:        OpenCollection("videos"),
		subscriptions: OpenCollection("subscriptions"),
	}
}

// EnsureIndexes creates the unique username/email indexes registration
// relies on for duplicate detection.
func (s *UserStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

func (s *UserStore) CreateUser(ctx context.Context, user *models.User) error {
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		if utils.IsDuplicateKey(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("%w: insert user: %v", auth.ErrInfrastructure, err)
	}
	return nil
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	objID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, auth.ErrNotFound
	}

	var user models.User
	if err := s.users.FindOne(ctx, bson.M{"_id": objID}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, auth.ErrNotFound
		}
		return nil, fmt.Errorf("%w: find user by id: %v", auth.ErrInfrastructure, err)
	}
	return &user, nil
}

func (s *UserStore) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	filter := bson.M{"$or": []bson.M{
		{"username": identifier},
		{"email": identifier},
	}}

	var user models.User
	if err := s.users.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, auth.ErrNotFound
		}
		return nil, fmt.Errorf("%w: find user by identifier: %v", auth.ErrInfrastructure, err)
	}
	return &user, nil
}

func (s *UserStore) SetRefreshToken(ctx context.Context, id string, token *string) error {
	objID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return auth.ErrNotFound
	}

	var update bson.M
	if token == nil {
		update = bson.M{
			"$unset": bson.M{"refreshToken": ""},
			"$set":   bson.M{"updatedAt": time.Now().UTC()},
		}
	} else {
		update = bson.M{
			"$set": bson.M{"refreshToken": *token, "updatedAt": time.Now().UTC()},
		}
	}

	res, err := s.users.UpdateByID(ctx, objID, update)
	if err != nil {
		return fmt.Errorf("%w: set refresh token: %v", auth.ErrInfrastructure, err)
	}
	if res.MatchedCount == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// ReplaceRefreshToken is the rotation write: a single conditional update
// keyed on the old token value, so two racing rotations cannot both
// succeed. A non-match means the slot changed underneath us.
func (s *UserStore) ReplaceRefreshToken(ctx context.Context, id, oldToken, newToken string) error {
	objID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return auth.ErrNotFound
	}

	filter := bson.M{"_id": objID, "refreshToken": oldToken}
	update := bson.M{
		"$set": bson.M{"refreshToken": newToken, "updatedAt": time.Now().UTC()},
	}

	res, err := s.users.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("%w: rotate refresh token: %v", auth.ErrInfrastructure, err)
	}
	if res.MatchedCount == 0 {
		return auth.ErrTokenInvalid
	}
	return nil
}

func (s *UserStore) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	objID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return auth.ErrNotFound
	}

	res, err := s.users.UpdateByID(ctx, objID, bson.M{
		"$set": bson.M{"passwordHash": hash, "updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("%w: update password hash: %v", auth.ErrInfrastructure, err)
	}
	if res.MatchedCount == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *UserStore) UpdateAccount(ctx context.Context, id string, fullname, email string) (*models.User, error) {
	return s.findAndSet(ctx, id, bson.M{"fullname": fullname, "email": email})
}

func (s *UserStore) UpdateAvatar(ctx context.Context, id, url string) (*models.User, error) {
	return s.findAndSet(ctx, id, bson.M{"avatar": url})
}

func (s *UserStore) UpdateCoverImage(ctx context.Context, id, url string) (*models.User, error) {
	return s.findAndSet(ctx, id, bson.M{"coverImage": url})
}

func (s *UserStore) findAndSet(ctx context.Context, id string, fields bson.M) (*models.User, error) {
	objID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, auth.ErrNotFound
	}

	fields["updatedAt"] = time.Now().UTC()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user models.User
	err = s.users.FindOneAndUpdate(ctx, bson.M{"_id": objID}, bson.M{"$set": fields}, opts).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, auth.ErrNotFound
		}
		if utils.IsDuplicateKey(err) {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("%w: update user: %v", auth.ErrInfrastructure, err)
	}
	return &user, nil
}

// ChannelProfile resolves a channel page: public profile joined with
// subscriber counts and whether the viewer subscribes to it.
func (s *UserStore) ChannelProfile(ctx context.Context, username string, viewerID *bson.ObjectID) (*models.ChannelProfile, error) {
	isSubscribed := bson.M{"$literal": false}
	if viewerID != nil {
		isSubscribed = bson.M{
			"$cond": bson.M{
				"if":   bson.M{"$in": []interface{}{*viewerID, "$subscribers.subscriber"}},
				"then": true,
				"else": false,
			},
		}
	}

	pipeline := []bson.M{
		{"$match": bson.M{"username": username}},
		{"$lookup": bson.M{
			"from":         "subscriptions",
			"localField":   "_id",
			"foreignField": "channel",
			"as":           "subscribers",
		}},
		{"$lookup": bson.M{
			"from":         "subscriptions",
			"localField":   "_id",
			"foreignField": "subscriber",
			"as":           "subscribedTo",
		}},
		{"$addFields": bson.M{
			"subscriberCount":          bson.M{"$size": "$subscribers"},
			"channelSubscribedToCount": bson.M{"$size": "$subscribedTo"},
			"isSubscribed":             isSubscribed,
		}},
		{"$project": bson.M{
			"fullname":                 1,
			"username":                 1,
			"email":                    1,
			"avatar":                   1,
			"coverImage":               1,
			"subscriberCount":          1,
			"channelSubscribedToCount": 1,
			"isSubscribed":             1,
		}},
	}

	cursor, err := s.users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("%w: channel aggregation: %v", auth.ErrInfrastructure, err)
	}
	defer cursor.Close(ctx)

	var channels []models.ChannelProfile
	if err := cursor.All(ctx, &channels); err != nil {
		return nil, fmt.Errorf("%w: decode channel aggregation: %v", auth.ErrInfrastructure, err)
	}
	if len(channels) == 0 {
		return nil, auth.ErrNotFound
	}
	return &channels[0], nil
}

// WatchHistory joins the user's watched video ids against the videos
// collection, pulling each owner's public fields along.
func (s *UserStore) WatchHistory(ctx context.Context, id string) ([]models.WatchHistoryEntry, error) {
	objID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, auth.ErrNotFound
	}

	pipeline := []bson.M{
		{"$match": bson.M{"_id": objID}},
		{"$lookup": bson.M{
			"from":         "videos",
			"localField":   "watchHistory",
			"foreignField": "_id",
			"as":           "watchHistory",
			"pipeline": []bson.M{
				{"$lookup": bson.M{
					"from":         "users",
					"localField":   "owner",
					"foreignField": "_id",
					"as":           "owner",
				}},
				{"$unwind": "$owner"},
				{"$project": bson.M{
					"title":       1,
					"description": 1,
					"createdAt":   1,
					"owner": bson.M{
						"fullname": 1,
						"username": 1,
						"avatar":   1,
					},
				}},
			},
		}},
		{"$project": bson.M{"watchHistory": 1}},
	}

	cursor, err := s.users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("%w: watch history aggregation: %v", auth.ErrInfrastructure, err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		WatchHistory []models.WatchHistoryEntry `bson:"watchHistory"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("%w: decode watch history: %v", auth.ErrInfrastructure, err)
	}
	if len(results) == 0 {
		return nil, auth.ErrNotFound
	}
	return results[0].WatchHistory, nil
}
