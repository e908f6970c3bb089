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
)

// VideoStore serves the catalog reads and the watch bookkeeping. Upload
// and transcoding of the files themselves live elsewhere.
type VideoStore struct {
	videos *mongo.Collection
	users  *mongo.Collection
}

func NewVideoStore() *VideoStore {
	return &VideoStore{
		videos: OpenCollection("videos"),
		users:  OpenCollection("users"),
	}
}

// ListPublished returns a page of published videos, newest first unless a
// sort is requested.
func (s *VideoStore) ListPublished(ctx context.Context, page, limit int, sort string) ([]models.Video, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	sortDoc := bson.D{{Key: "createdAt", Value: -1}}
	switch sort {
	case "views_desc":
		sortDoc = bson.D{{Key: "views", Value: -1}}
	case "oldest":
		sortDoc = bson.D{{Key: "createdAt", Value: 1}}
	}

	findOpts := options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(sortDoc)

	cursor, err := s.videos.Find(ctx, bson.M{"isPublished": true}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: list videos: %v", auth.ErrInfrastructure, err)
	}
	defer cursor.Close(ctx)

	videos := make([]models.Video, 0)
	if err := cursor.All(ctx, &videos); err != nil {
		return nil, fmt.Errorf("%w: decode videos: %v", auth.ErrInfrastructure, err)
	}
	return videos, nil
}

func (s *VideoStore) FindByID(ctx context.Context, id string) (*models.Video, error) {
	objID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, auth.ErrNotFound
	}

	var video models.Video
	if err := s.videos.FindOne(ctx, bson.M{"_id": objID, "isPublished": true}).Decode(&video); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, auth.ErrNotFound
		}
		return nil, fmt.Errorf("%w: find video: %v", auth.ErrInfrastructure, err)
	}
	return &video, nil
}

// RecordView bumps the view counter and appends the video to the viewer's
// watch history (at most once, $addToSet).
func (s *VideoStore) RecordView(ctx context.Context, videoID, viewerID string) error {
	vidID, err := bson.ObjectIDFromHex(videoID)
	if err != nil {
		return auth.ErrNotFound
	}

	res, err := s.videos.UpdateByID(ctx, vidID, bson.M{"$inc": bson.M{"views": 1}})
	if err != nil {
		return fmt.Errorf("%w: increment views: %v", auth.ErrInfrastructure, err)
	}
	if res.MatchedCount == 0 {
		return auth.ErrNotFound
	}

	userID, err := bson.ObjectIDFromHex(viewerID)
	if err != nil {
		return auth.ErrNotFound
	}
	_, err = s.users.UpdateByID(ctx, userID, bson.M{
		"$addToSet": bson.M{"watchHistory": vidID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("%w: append watch history: %v", auth.ErrInfrastructure, err)
	}
	return nil
}
