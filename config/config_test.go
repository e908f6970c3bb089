package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "access-secret")
	t.Setenv("REFRESH_TOKEN_SECRET", "refresh-secret")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
}

func TestLoad_MissingSecretsFailsStartup(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "")
	t.Setenv("REFRESH_TOKEN_SECRET", "")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_SharedSecretRejected(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("REFRESH_TOKEN_SECRET", "access-secret")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 10*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Greater(t, cfg.RefreshTokenTTL, cfg.AccessTokenTTL)
	assert.Equal(t, "tubebackend", cfg.DatabaseName)
	assert.Equal(t, "r2", cfg.StorageDriver)
}

func TestLoad_ParsesTTLs(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ACCESS_TOKEN_EXPIRY", "30m")
	t.Setenv("REFRESH_TOKEN_EXPIRY", "240h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 240*time.Hour, cfg.RefreshTokenTTL)
}

func TestLoad_RefreshMustOutliveAccess(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ACCESS_TOKEN_EXPIRY", "48h")
	t.Setenv("REFRESH_TOKEN_EXPIRY", "1h")

	_, err := Load()
	require.Error(t, err)
}
