// Package jwt creates and verifies the short-lived, self-verifying access
// tokens sent on every protected request. Tokens are HS256-signed with a
// process-wide secret and carry only the user id and role; no store lookup is
// needed to validate them.
package jwt

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/leadcrm/go-crm-auth/internal/config"
	"github.com/leadcrm/go-crm-auth/users"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Creator handles access token creation
type Creator struct {
	secret []byte
	config config.TokenConfig
}

// NewCreator creates a new access token creator
func NewCreator(secret string, cfg config.TokenConfig) *Creator {
	return &Creator{
		secret: []byte(secret),
		config: cfg,
	}
}

// CreateAccessToken creates a signed access token for the user.
// Expiry is always issuedAt + the configured fixed TTL.
func (c *Creator) CreateAccessToken(user *users.User) (string, error) {
	now := NowTimeFunc()
	claims := jwtlib.MapClaims{
		"sub":  user.ID,                                                // The authenticated user
		"role": string(user.Role),                                      // CRM role for downstream authorization
		"iat":  now.Unix(),                                             // Issued At
		"exp":  now.Add(c.config.GetAccessTokenExpiry()).Unix(),        // Expiry: iat + fixed TTL
		"jti":  uuid.New().String(),                                    // Unique token ID
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}
