package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/streamloop/tubebackend/auth"
	"github.com/streamloop/tubebackend/database"
	"github.com/streamloop/tubebackend/dto"
	"github.com/streamloop/tubebackend/models"
	"github.com/streamloop/tubebackend/utils"
)

// POST /api/v1/users/register
func Register(store *database.UserStore, hasher *auth.PasswordHasher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.RegisterDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		username := utils.NormalizeHandle(body.Username)
		if username == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid username"})
			return
		}

		hash, err := hasher.Hash(body.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
			return
		}

		now := time.Now().UTC()
		user := &models.User{
			ID:           bson.NewObjectID(),
			Username:     username,
			Email:        utils.NormalizeEmail(body.Email),
			Fullname:     body.Fullname,
			PasswordHash: hash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := store.CreateUser(c.Request.Context(), user); err != nil {
			if errors.Is(err, database.ErrDuplicateUser) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "email or username already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
			return
		}

		c.JSON(http.StatusCreated, user.Public())
	}
}

// GET /api/v1/users/current-user
func GetCurrentUser(store *database.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := store.FindByID(c.Request.Context(), c.GetString("userID"))
		if err != nil {
			if errors.Is(err, auth.ErrNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
			return
		}
		c.JSON(http.StatusOK, user.Public())
	}
}

// PATCH /api/v1/users/update-account
func UpdateAccountDetails(store *database.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.UpdateAccountDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		user, err := store.UpdateAccount(c.Request.Context(), c.GetString("userID"), body.Fullname, utils.NormalizeEmail(body.Email))
		if err != nil {
			switch {
			case errors.Is(err, database.ErrDuplicateUser):
				c.JSON(http.StatusBadRequest, gin.H{"error": "email already in use"})
			case errors.Is(err, auth.ErrNotFound):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
			}
			return
		}

		c.JSON(http.StatusOK, user.Public())
	}
}

// PATCH /api/v1/users/avatar
func UpdateAvatar(store *database.UserStore, blobs utils.BlobStore, v *utils.FileValidator) gin.HandlerFunc {
	return updateImage(store, blobs, v, "avatar", "avatars", (*database.UserStore).UpdateAvatar)
}

// PATCH /api/v1/users/cover-image
func UpdateCoverImage(store *database.UserStore, blobs utils.BlobStore, v *utils.FileValidator) gin.HandlerFunc {
	return updateImage(store, blobs, v, "coverImage", "covers", (*database.UserStore).UpdateCoverImage)
}

func updateImage(
	store *database.UserStore,
	blobs utils.BlobStore,
	v *utils.FileValidator,
	field, folder string,
	persist func(*database.UserStore, context.Context, string, string) (*models.User, error),
) gin.HandlerFunc {
	return func(c *gin.Context) {
		if blobs == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "media storage not configured"})
			return
		}

		fh, err := c.FormFile(field)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": field + " file missing"})
			return
		}
		if _, err := v.ValidateFile(fh); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		userID := c.GetString("userID")
		url, err := blobs.Upload(c.Request.Context(), folder+"/"+userID, fh)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "problem while uploading the " + field})
			return
		}

		user, err := persist(store, c.Request.Context(), userID, url)
		if err != nil {
			if errors.Is(err, auth.ErrNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
			return
		}

		c.JSON(http.StatusOK, user.Public())
	}
}

// GET /api/v1/users/c/:username
func GetUserChannelProfile(store *database.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := utils.NormalizeHandle(c.Param("username"))
		if username == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username missing"})
			return
		}

		var viewerID *bson.ObjectID
		if id, err := bson.ObjectIDFromHex(c.GetString("userID")); err == nil {
			viewerID = &id
		}

		channel, err := store.ChannelProfile(c.Request.Context(), username, viewerID)
		if err != nil {
			if errors.Is(err, auth.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "channel does not exist"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
			return
		}

		c.JSON(http.StatusOK, channel)
	}
}

// GET /api/v1/users/history
func GetWatchHistory(store *database.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		history, err := store.WatchHistory(c.Request.Context(), c.GetString("userID"))
		if err != nil {
			if errors.Is(err, auth.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "no watch history found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
			return
		}

		c.JSON(http.StatusOK, history)
	}
}
