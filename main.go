package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/streamloop/tubebackend/auth"
	"github.com/streamloop/tubebackend/config"
	"github.com/streamloop/tubebackend/controllers"
	"github.com/streamloop/tubebackend/database"
	"github.com/streamloop/tubebackend/middleware"
	"github.com/streamloop/tubebackend/ratelimit"
	"github.com/streamloop/tubebackend/utils"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := database.Connect(ctx, cfg.MongoURI, cfg.DatabaseName); err != nil {
		log.WithError(err).Fatal("database connection failed")
	}

	store := database.NewUserStore()
	if err := store.EnsureIndexes(ctx); err != nil {
		log.WithError(err).Fatal("index creation failed")
	}
	videoStore := database.NewVideoStore()

	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	issuer := auth.NewTokenIssuer(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	sessions := auth.NewSessionController(store, hasher, issuer, log)

	limiter, err := ratelimit.New(cfg.RedisURL, log)
	if err != nil {
		log.WithError(err).Fatal("rate limiter setup failed")
	}

	blobs, err := utils.NewBlobStore(ctx, cfg)
	if err != nil {
		// Uploads degrade to 503 instead of blocking startup in dev.
		log.WithError(err).Warn("media storage unavailable")
		blobs = nil
	}
	validator := utils.NewImageValidator(cfg.MaxUploadSizeMB)

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	allowedOrigins := map[string]bool{}
	for _, origin := range strings.Split(cfg.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowedOrigins[origin] = true
		}
	}
	r.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(origin string) bool { return allowedOrigins[origin] },
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	users := r.Group("/api/v1/users")
	{
		users.POST("/register", controllers.Register(store, hasher))
		users.POST("/login", controllers.Login(sessions, cfg, limiter, log))
		users.POST("/refresh-token", controllers.Refresh(sessions, cfg))
	}

	authed := users.Group("")
	authed.Use(middleware.Auth(issuer))
	{
		authed.POST("/logout", controllers.Logout(sessions, cfg))
		authed.POST("/change-password", controllers.ChangePassword(sessions))
		authed.GET("/current-user", controllers.GetCurrentUser(store))
		authed.PATCH("/update-account", controllers.UpdateAccountDetails(store))
		authed.PATCH("/avatar", controllers.UpdateAvatar(store, blobs, validator))
		authed.PATCH("/cover-image", controllers.UpdateCoverImage(store, blobs, validator))
		authed.GET("/c/:username", controllers.GetUserChannelProfile(store))
		authed.GET("/history", controllers.GetWatchHistory(store))
	}

	videos := r.Group("/api/v1/videos")
	{
		videos.GET("", controllers.GetVideos(videoStore))
	}
	authedVideos := videos.Group("")
	authedVideos.Use(middleware.Auth(issuer))
	{
		authedVideos.GET("/:id", controllers.GetVideo(videoStore))
	}

	if err := r.Run(); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
