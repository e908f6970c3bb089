package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Config holds everything the process reads from the environment. It is
// loaded once in main and injected into constructors; nothing else in the
// codebase calls os.Getenv.
type Config struct {
	MongoURI     string
	DatabaseName string

	AccessTokenSecret  string
	AccessTokenTTL     time.Duration
	RefreshTokenSecret string
	RefreshTokenTTL    time.Duration

	BcryptCost int

	CookieDomain string
	CookieSecure bool

	AllowedOrigins string

	// STORAGE_DRIVER: "r2" or "gcs"
	StorageDriver string

	R2Bucket          string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2Endpoint        string
	R2PublicDomain    string

	GCSBucket          string
	GCSCredentialsFile string

	MaxUploadSizeMB int

	// RedisURL empty disables login rate limiting.
	RedisURL string
}

// Load reads the environment. Missing token secrets are a startup error,
// never a per-request one.
func Load() (*Config, error) {
	accessSecret := os.Getenv("ACCESS_TOKEN_SECRET")
	refreshSecret := os.Getenv("REFRESH_TOKEN_SECRET")
	if accessSecret == "" || refreshSecret == "" {
		return nil, fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must be set")
	}
	if accessSecret == refreshSecret {
		return nil, fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}

	cfg := &Config{
		MongoURI:           os.Getenv("MONGODB_URI"),
		DatabaseName:       getEnvDefault("DATABASE_NAME", "tubebackend"),
		AccessTokenSecret:  accessSecret,
		AccessTokenTTL:     durationEnv("ACCESS_TOKEN_EXPIRY", 15*time.Minute),
		RefreshTokenSecret: refreshSecret,
		RefreshTokenTTL:    durationEnv("REFRESH_TOKEN_EXPIRY", 10*24*time.Hour),
		BcryptCost:         intEnv("BCRYPT_COST", bcrypt.DefaultCost),
		CookieDomain:       os.Getenv("COOKIE_DOMAIN"),
		CookieSecure:       os.Getenv("COOKIE_SECURE") != "false",
		AllowedOrigins:     os.Getenv("ALLOWED_ORIGINS"),
		StorageDriver:      getEnvDefault("STORAGE_DRIVER", "r2"),
		R2Bucket:           os.Getenv("R2_BUCKET"),
		R2AccessKeyID:      os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey:  os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2Endpoint:         os.Getenv("R2_ENDPOINT"),
		R2PublicDomain:     os.Getenv("R2_PUBLIC_DOMAIN"),
		GCSBucket:          os.Getenv("GCS_BUCKET"),
		GCSCredentialsFile: os.Getenv("CREDENTIALS_FILE_LOCATION"),
		MaxUploadSizeMB:    intEnv("MAX_UPLOAD_SIZE_MB", 5),
		RedisURL:           os.Getenv("REDIS_URL"),
	}

	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGODB_URI must be set")
	}
	if cfg.RefreshTokenTTL <= cfg.AccessTokenTTL {
		return nil, fmt.Errorf("REFRESH_TOKEN_EXPIRY must be longer than ACCESS_TOKEN_EXPIRY")
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("BCRYPT_COST out of range: %d", cfg.BcryptCost)
	}

	return cfg, nil
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func intEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
