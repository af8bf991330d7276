package auth

import "errors"

var (
	// ErrInvalidCredentials covers both unknown email and wrong password.
	// The two cases must stay indistinguishable to prevent account
	// enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNoToken means no refresh token value was supplied at all.
	ErrNoToken = errors.New("no refresh token provided")

	// ErrInvalidToken covers missing, expired, revoked, and orphaned-user
	// refresh tokens. Deliberately undifferentiated so the response never
	// leaks which condition triggered.
	ErrInvalidToken = errors.New("invalid refresh token")
)
