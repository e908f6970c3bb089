package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type User struct {
	ID           bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	Username     string          `bson:"username" json:"username"`
	Email        string          `bson:"email" json:"email"`
	Fullname     string          `bson:"fullname" json:"fullname"`
	Avatar       string          `bson:"avatar,omitempty" json:"avatar,omitempty"`
	CoverImage   string          `bson:"coverImage,omitempty" json:"coverImage,omitempty"`
	WatchHistory []bson.ObjectID `bson:"watchHistory,omitempty" json:"-"`
	PasswordHash string          `bson:"passwordHash" json:"-"` // never expose
	RefreshToken *string         `bson:"refreshToken,omitempty" json:"-"`
	CreatedAt    time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// PublicUser is the projection handed back to clients. PasswordHash and
// RefreshToken deliberately have no slot here.
type PublicUser struct {
	ID         bson.ObjectID `json:"id"`
	Username   string        `json:"username"`
	Email      string        `json:"email"`
	Fullname   string        `json:"fullname"`
	Avatar     string        `json:"avatar,omitempty"`
	CoverImage string        `json:"coverImage,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Fullname:   u.Fullname,
		Avatar:     u.Avatar,
		CoverImage: u.CoverImage,
		CreatedAt:  u.CreatedAt,
	}
}
