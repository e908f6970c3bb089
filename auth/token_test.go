package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIssuer() *TokenIssuer {
	return NewTokenIssuer("access-secret", "refresh-secret", 15*time.Minute, 240*time.Hour)
}

func TestTokenIssuer_AccessRoundTrip(t *testing.T) {
	t.Parallel()

	issuer := testIssuer()

	tok, err := issuer.IssueAccessToken("id-1", "alice@example.com", "alice", "Alice A")
	require.NoError(t, err)

	claims, err := issuer.VerifyAccessToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "id-1", claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "Alice A", claims.Fullname)
}

func TestTokenIssuer_RefreshCarriesOnlyID(t *testing.T) {
	t.Parallel()

	issuer := testIssuer()

	tok, err := issuer.IssueRefreshToken("id-1")
	require.NoError(t, err)

	claims, err := issuer.VerifyRefreshToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "id-1", claims.UserID)
}

func TestTokenIssuer_SecretsAreIndependent(t *testing.T) {
	t.Parallel()

	issuer := testIssuer()

	access, err := issuer.IssueAccessToken("id-1", "a@b.c", "a", "A")
	require.NoError(t, err)
	refresh, err := issuer.IssueRefreshToken("id-1")
	require.NoError(t, err)

	// A token of one class must not verify as the other.
	_, err = issuer.VerifyRefreshToken(access)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = issuer.VerifyAccessToken(refresh)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenIssuer_ExpiredTokenRejected(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("a", "r", -time.Second, -time.Second)

	tok, err := issuer.IssueRefreshToken("id-1")
	require.NoError(t, err)

	_, err = issuer.VerifyRefreshToken(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenIssuer_WrongSecretRejected(t *testing.T) {
	t.Parallel()

	tok, err := testIssuer().IssueRefreshToken("id-1")
	require.NoError(t, err)

	other := NewTokenIssuer("access-secret", "different-secret", time.Minute, time.Hour)
	_, err = other.VerifyRefreshToken(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenIssuer_MalformedTokenRejected(t *testing.T) {
	t.Parallel()

	_, err := testIssuer().VerifyRefreshToken("not.a.jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenIssuer_RefreshTokensAreUnique(t *testing.T) {
	t.Parallel()

	issuer := testIssuer()
	t1, err := issuer.IssueRefreshToken("id-1")
	require.NoError(t, err)
	t2, err := issuer.IssueRefreshToken("id-1")
	require.NoError(t, err)

	assert.NotEqual(t, t1, t2)
}
