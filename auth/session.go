package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/streamloop/tubebackend/models"
)

// TokenPair is what a successful login or rotation hands back. The caller
// is responsible for moving both into HTTP-only secure cookies.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// SessionController drives the session lifecycle: credential check, token
// issuance, refresh rotation and invalidation. It is the only layer that
// translates store/crypto failures into the error taxonomy.
type SessionController struct {
	store  SessionStore
	hasher *PasswordHasher
	issuer *TokenIssuer
	log    *logrus.Logger
}

func NewSessionController(store SessionStore, hasher *PasswordHasher, issuer *TokenIssuer, log *logrus.Logger) *SessionController {
	return &SessionController{store: store, hasher: hasher, issuer: issuer, log: log}
}

func (s *SessionController) Issuer() *TokenIssuer { return s.issuer }

// Login verifies the credentials, mints a fresh access/refresh pair and
// persists the refresh token as the user's single valid session slot.
// Unknown identifier and wrong password both come back as
// ErrInvalidCredentials so responses cannot be used to enumerate accounts.
func (s *SessionController) Login(ctx context.Context, identifier, password string) (*TokenPair, *models.PublicUser, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	user, err := s.store.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		s.log.WithError(err).Error("login: load user")
		return nil, nil, err
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.log.WithField("user_id", user.ID.Hex()).WithError(err).Error("login: verify password")
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, nil, err
	}

	if err := s.store.SetRefreshToken(ctx, user.ID.Hex(), &pair.RefreshToken); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		s.log.WithField("user_id", user.ID.Hex()).WithError(err).Error("login: persist refresh token")
		return nil, nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID.Hex(), "username": user.Username}).Info("login")
	public := user.Public()
	return pair, &public, nil
}

// Logout clears the refresh-token slot. Clearing an already-clear slot is
// fine; the handler clears cookies regardless of what comes back here.
func (s *SessionController) Logout(ctx context.Context, userID string) error {
	if err := s.store.SetRefreshToken(ctx, userID, nil); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		s.log.WithField("user_id", userID).WithError(err).Error("logout: clear refresh token")
		return err
	}
	s.log.WithField("user_id", userID).Info("logout")
	return nil
}

// Refresh rotates a presented refresh token. The presented token must be
// signature-valid, unexpired and byte-equal to the stored one; the swap
// itself is a single conditional write, so of two racing rotations on the
// same token at most one wins and the loser sees reuse-detected.
func (s *SessionController) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	if presented == "" {
		return nil, ErrUnauthorized
	}

	claims, err := s.issuer.VerifyRefreshToken(presented)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	user, err := s.store.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnauthorized
		}
		s.log.WithField("user_id", claims.UserID).WithError(err).Error("refresh: load user")
		return nil, err
	}

	// Strict equality against the stored slot. A structurally valid token
	// that no longer matches was already rotated or revoked: possible theft.
	if user.RefreshToken == nil || *user.RefreshToken != presented {
		s.log.WithField("user_id", user.ID.Hex()).Warn("refresh token reuse detected")
		return nil, ErrTokenInvalid
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	if err := s.store.ReplaceRefreshToken(ctx, user.ID.Hex(), presented, pair.RefreshToken); err != nil {
		if errors.Is(err, ErrTokenInvalid) || errors.Is(err, ErrNotFound) {
			// Lost the race to a concurrent rotation or logout.
			s.log.WithField("user_id", user.ID.Hex()).Warn("refresh token reuse detected")
			return nil, ErrTokenInvalid
		}
		s.log.WithField("user_id", user.ID.Hex()).WithError(err).Error("refresh: rotate token")
		return nil, err
	}

	s.log.WithField("user_id", user.ID.Hex()).Info("refresh token rotated")
	return pair, nil
}

// ChangePassword re-hashes and persists a new password after checking the
// old one. The current refresh token stays valid; revoking other sessions
// on password change is a policy this service does not apply.
func (s *SessionController) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		s.log.WithField("user_id", userID).WithError(err).Error("change password: load user")
		return err
	}

	ok, err := s.hasher.Verify(oldPassword, user.PasswordHash)
	if err != nil {
		s.log.WithField("user_id", userID).WithError(err).Error("change password: verify")
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.store.UpdatePasswordHash(ctx, userID, hash); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		s.log.WithField("user_id", userID).WithError(err).Error("change password: persist hash")
		return err
	}

	s.log.WithField("user_id", userID).Info("password changed")
	return nil
}

func (s *SessionController) issuePair(user *models.User) (*TokenPair, error) {
	access, err := s.issuer.IssueAccessToken(user.ID.Hex(), user.Email, user.Username, user.Fullname)
	if err != nil {
		s.log.WithError(err).Error("issue access token")
		return nil, err
	}
	refresh, err := s.issuer.IssueRefreshToken(user.ID.Hex())
	if err != nil {
		s.log.WithError(err).Error("issue refresh token")
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
