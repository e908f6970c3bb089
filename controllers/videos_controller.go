package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/streamloop/tubebackend/auth"
	"github.com/streamloop/tubebackend/database"
	"github.com/streamloop/tubebackend/utils"
)

// GET /api/v1/videos
func GetVideos(store *database.VideoStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := utils.ParseIntDefault(c.Query("page"), 1)
		limit := utils.ParseIntDefault(c.Query("limit"), 20)
		sort := strings.TrimSpace(c.Query("sort"))

		videos, err := store.ListPublished(c.Request.Context(), page, limit, sort)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"items": videos,
			"page":  page,
			"limit": limit,
		})
	}
}

// GET /api/v1/videos/:id — also counts the view and appends the video to
// the caller's watch history.
func GetVideo(store *database.VideoStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		video, err := store.FindByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, auth.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "video does not exist"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
			return
		}

		// History is best effort; the watch succeeds either way.
		if viewerID := c.GetString("userID"); viewerID != "" {
			if err := store.RecordView(c.Request.Context(), video.ID.Hex(), viewerID); err == nil {
				video.Views++
			}
		}

		c.JSON(http.StatusOK, video)
	}
}
