package users

import "errors"

// ErrNotFound is returned by UserRepo implementations when no user matches.
var ErrNotFound = errors.New("user not found")

// UserRepo is the narrow credential-store interface consumed by the auth core.
// Persistence of users is owned by the surrounding CRM application.
type UserRepo interface {
	Upsert(user *User) error
	GetByEmail(email string) (*User, error)
	GetByID(id string) (*User, error)
}
