package auth

import (
	"context"

	"github.com/streamloop/tubebackend/models"
)

// SessionStore is the slice of the user store the session lifecycle needs.
// The mongo implementation lives in the database package; tests use an
// in-memory one.
type SessionStore interface {
	// FindByID returns ErrNotFound when no such user exists.
	FindByID(ctx context.Context, id string) (*models.User, error)

	// FindByIdentifier matches either username or email, lowercased.
	FindByIdentifier(ctx context.Context, identifier string) (*models.User, error)

	// SetRefreshToken overwrites the user's refresh-token slot; nil clears
	// it. Returns ErrNotFound when the user is gone.
	SetRefreshToken(ctx context.Context, id string, token *string) error

	// ReplaceRefreshToken swaps oldToken for newToken in a single
	// conditional write. When the stored value no longer equals oldToken
	// (rotation already happened elsewhere, or logout cleared it) it
	// returns ErrTokenInvalid without touching the record.
	ReplaceRefreshToken(ctx context.Context, id, oldToken, newToken string) error

	// UpdatePasswordHash persists a re-hashed password.
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}
