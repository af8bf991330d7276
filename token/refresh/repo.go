// Package refresh owns the persisted refresh token records: long-lived,
// random, single-use-then-rotated credentials. Records are created on login or
// rotation and mutated exactly once, when revoked. They are never deleted and
// never un-revoked.
package refresh

import (
	"context"
	"errors"
	"time"
)

// Revocation reasons written to the store. These are audit strings, not
// behavior switches.
const (
	ReasonRotated = "replaced by new token"
	ReasonLogout  = "user logout"
)

var (
	ErrNotFound       = errors.New("refresh token not found")
	ErrRevoked        = errors.New("refresh token revoked")
	ErrExpired        = errors.New("refresh token expired")
	ErrAlreadyRevoked = errors.New("refresh token already revoked")
)

// StoredRefreshToken is the persisted record of an issued refresh token. The
// client only ever receives the Token value; everything else is server-side
// metadata. IssuedIP and UserAgent are captured for forensic purposes only and
// are not enforced as a binding constraint.
type StoredRefreshToken struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	Token         string     `json:"token"` // Random hex value sent to the client
	IssuedAt      time.Time  `json:"issuedAt"`
	ExpiresAt     time.Time  `json:"expiresAt"`
	IssuedIP      string     `json:"issuedIp,omitempty"`
	UserAgent     string     `json:"userAgent,omitempty"`
	RevokedAt     *time.Time `json:"revokedAt,omitempty"`
	RevokedReason string     `json:"revokedReason,omitempty"`
}

// ValidAt reports whether the token is valid for use at the given instant.
// A token whose expiry equals now is already expired (exclusive comparison).
func (t *StoredRefreshToken) ValidAt(now time.Time) bool {
	return t.RevokedAt == nil && t.ExpiresAt.After(now)
}

// Repo manages durable storage of refresh token records. Revoke must be
// atomic revoke-iff-active: it fails with ErrAlreadyRevoked when the record
// already carries a revocation, so that of N racing rotations exactly one
// wins.
type Repo interface {
	Create(ctx context.Context, token *StoredRefreshToken) error
	GetByValue(ctx context.Context, value string) (*StoredRefreshToken, error)
	Revoke(ctx context.Context, id, reason string, at time.Time) error
}
