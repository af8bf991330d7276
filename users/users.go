package users

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// RoleType represents a user's role within the CRM
type RoleType string

const (
	RoleEmployer RoleType = "employer" // Can manage managers and all leads
	RoleManager  RoleType = "manager"  // Can update leads assigned to them
)

// Valid reports whether the role is one of the known CRM roles.
func (r RoleType) Valid() bool {
	return r == RoleEmployer || r == RoleManager
}

type User struct {
	ID           string    `json:"id,omitempty"`        // Unique identifier for the user
	Name         string    `json:"name,omitempty"`      // Display name
	Email        string    `json:"email,omitempty"`     // User's email address
	PasswordHash string    `json:"-"`                   // Hashed password - never serialize
	Role         RoleType  `json:"role,omitempty"`      // employer or manager
	CreatedAt    time.Time `json:"createdAt,omitempty"` // When the account was created
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// Public returns a copy safe for response payloads. PasswordHash is excluded
// from JSON anyway; Public additionally strips it from the in-memory value so
// callers cannot leak it through other encoders.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}
