package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_RoundTrip(t *testing.T) {
	t.Parallel()

	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("secret123")
	require.NoError(t, err)
	require.NotEqual(t, "secret123", hash)

	ok, err := h.Verify("secret123", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordHasher_DistinctPasswordsDistinctHashes(t *testing.T) {
	t.Parallel()

	h := NewPasswordHasher(bcrypt.MinCost)

	hashP, err := h.Hash("p")
	require.NoError(t, err)
	hashQ, err := h.Hash("q")
	require.NoError(t, err)

	ok, err := h.Verify("p", hashQ)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = h.Verify("q", hashP)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordHasher_MalformedHashIsInfrastructureError(t *testing.T) {
	t.Parallel()

	h := NewPasswordHasher(bcrypt.MinCost)

	_, err := h.Verify("anything", "not-a-bcrypt-hash")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInfrastructure)
}

func TestNewPasswordHasher_ClampsBadCost(t *testing.T) {
	t.Parallel()

	h := NewPasswordHasher(9999)
	hash, err := h.Hash("pw")
	require.NoError(t, err)

	ok, err := h.Verify("pw", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}
