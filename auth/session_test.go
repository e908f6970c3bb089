package auth

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/streamloop/tubebackend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"
)

// memStore is a mutex-guarded in-memory SessionStore. ReplaceRefreshToken
// performs the compare and the write under one lock, matching the
// conditional-update semantics of the mongo implementation.
type memStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]*models.User)}
}

func (s *memStore) add(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID.Hex()] = u
}

func (s *memStore) FindByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) FindByIdentifier(_ context.Context, identifier string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == identifier || u.Email == identifier {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) SetRefreshToken(_ context.Context, id string, token *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.RefreshToken = token
	return nil
}

func (s *memStore) ReplaceRefreshToken(_ context.Context, id, oldToken, newToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	if u.RefreshToken == nil || *u.RefreshToken != oldToken {
		return ErrTokenInvalid
	}
	u.RefreshToken = &newToken
	return nil
}

func (s *memStore) UpdatePasswordHash(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (s *memStore) storedToken(id string) *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id].RefreshToken
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestController(t *testing.T) (*SessionController, *memStore, string) {
	t.Helper()

	store := newMemStore()
	hasher := NewPasswordHasher(bcrypt.MinCost)
	issuer := NewTokenIssuer("access-secret", "refresh-secret", 15*time.Minute, 240*time.Hour)
	ctrl := NewSessionController(store, hasher, issuer, quietLogger())

	hash, err := hasher.Hash("secret123")
	require.NoError(t, err)

	alice := &models.User{
		ID:           bson.NewObjectID(),
		Username:     "alice",
		Email:        "alice@example.com",
		Fullname:     "Alice Anders",
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	store.add(alice)

	return ctrl, store, alice.ID.Hex()
}

func TestLogin_Success(t *testing.T) {
	t.Parallel()

	ctrl, store, id := newTestController(t)

	pair, public, err := ctrl.Login(context.Background(), "alice", "secret123")
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	// Refresh token persisted as the single session slot.
	stored := store.storedToken(id)
	require.NotNil(t, stored)
	assert.Equal(t, pair.RefreshToken, *stored)

	// Public profile never carries secrets.
	assert.Equal(t, "alice", public.Username)
	assert.Equal(t, "alice@example.com", public.Email)
}

func TestLogin_ByEmail(t *testing.T) {
	t.Parallel()

	ctrl, _, _ := newTestController(t)

	_, _, err := ctrl.Login(context.Background(), "Alice@Example.com", "secret123")
	require.NoError(t, err)
}

func TestLogin_WrongPassword(t *testing.T) {
	t.Parallel()

	ctrl, store, id := newTestController(t)

	_, _, err := ctrl.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Nil(t, store.storedToken(id))
}

func TestLogin_UnknownUserIndistinguishableFromWrongPassword(t *testing.T) {
	t.Parallel()

	ctrl, _, _ := newTestController(t)

	_, _, errUnknown := ctrl.Login(context.Background(), "nobody", "secret123")
	_, _, errWrongPw := ctrl.Login(context.Background(), "alice", "wrong")

	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.ErrorIs(t, errWrongPw, ErrInvalidCredentials)
	assert.Equal(t, errUnknown, errWrongPw)
}

func TestRefresh_RotationInvalidatesOldToken(t *testing.T) {
	t.Parallel()

	ctrl, store, id := newTestController(t)

	pair, _, err := ctrl.Login(context.Background(), "alice", "secret123")
	require.NoError(t, err)
	t0 := pair.RefreshToken

	rotated, err := ctrl.Refresh(context.Background(), t0)
	require.NoError(t, err)
	t1 := rotated.RefreshToken
	require.NotEqual(t, t0, t1)

	stored := store.storedToken(id)
	require.NotNil(t, stored)
	assert.Equal(t, t1, *stored)

	// Replaying the rotated-away token is reuse.
	_, err = ctrl.Refresh(context.Background(), t0)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	// The fresh token keeps working.
	_, err = ctrl.Refresh(context.Background(), t1)
	require.NoError(t, err)
}

func TestRefresh_MissingToken(t *testing.T) {
	t.Parallel()

	ctrl, _, _ := newTestController(t)

	_, err := ctrl.Refresh(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRefresh_GarbageToken(t *testing.T) {
	t.Parallel()

	ctrl, _, _ := newTestController(t)

	_, err := ctrl.Refresh(context.Background(), "garbage.token.value")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRefresh_ForeignValidTokenRejected(t *testing.T) {
	t.Parallel()

	ctrl, _, _ := newTestController(t)

	// Signature-valid token for a user id that does not exist.
	foreign, err := ctrl.Issuer().IssueRefreshToken(bson.NewObjectID().Hex())
	require.NoError(t, err)

	_, err = ctrl.Refresh(context.Background(), foreign)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestLogout_ClearsSlotAndKillsRefresh(t *testing.T) {
	t.Parallel()

	ctrl, store, id := newTestController(t)

	pair, _, err := ctrl.Login(context.Background(), "alice", "secret123")
	require.NoError(t, err)

	require.NoError(t, ctrl.Logout(context.Background(), id))
	assert.Nil(t, store.storedToken(id))

	// Logout is idempotent.
	require.NoError(t, ctrl.Logout(context.Background(), id))

	_, err = ctrl.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRefresh_ConcurrentRotationExactlyOneWins(t *testing.T) {
	t.Parallel()

	ctrl, _, _ := newTestController(t)

	pair, _, err := ctrl.Login(context.Background(), "alice", "secret123")
	require.NoError(t, err)
	t0 := pair.RefreshToken

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ctrl.Refresh(context.Background(), t0)
		}(i)
	}
	wg.Wait()

	var wins, reuses int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		default:
			assert.ErrorIs(t, err, ErrTokenInvalid)
			reuses++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, reuses)
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	ctrl, _, id := newTestController(t)

	err := ctrl.ChangePassword(context.Background(), id, "wrong-old", "newpass456")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, ctrl.ChangePassword(context.Background(), id, "secret123", "newpass456"))

	_, _, err = ctrl.Login(context.Background(), "alice", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = ctrl.Login(context.Background(), "alice", "newpass456")
	require.NoError(t, err)
}

func TestChangePassword_UnknownUser(t *testing.T) {
	t.Parallel()

	ctrl, _, _ := newTestController(t)

	err := ctrl.ChangePassword(context.Background(), bson.NewObjectID().Hex(), "a", "b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChangePassword_KeepsExistingRefreshTokenValid(t *testing.T) {
	t.Parallel()

	ctrl, _, id := newTestController(t)

	pair, _, err := ctrl.Login(context.Background(), "alice", "secret123")
	require.NoError(t, err)

	require.NoError(t, ctrl.ChangePassword(context.Background(), id, "secret123", "newpass456"))

	_, err = ctrl.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
}
