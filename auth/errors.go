package auth

import "errors"

var (
	// ErrInvalidCredentials covers both an unknown identifier and a wrong
	// password so a login response never reveals which one it was.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotFound is returned when an operation addresses a user id that
	// does not exist (change-password, logout bookkeeping).
	ErrNotFound = errors.New("user not found")

	// ErrUnauthorized means no usable token was presented.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTokenInvalid means the presented token failed signature or expiry
	// checks, or no longer matches the stored refresh token (reuse after
	// rotation).
	ErrTokenInvalid = errors.New("invalid or expired token")

	// ErrInfrastructure wraps store or crypto failures. Handlers map it to
	// a 500 with no internal detail.
	ErrInfrastructure = errors.New("infrastructure failure")
)
