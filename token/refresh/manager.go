package refresh

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/leadcrm/go-crm-auth/internal/config"
	"github.com/pkg/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Manager handles refresh token creation, validation, and revocation.
// Rotation policy (revoke old, mint new) lives in the auth service; this
// manager only provides the individual operations.
type Manager struct {
	repo   Repo
	config config.TokenConfig
}

// NewManager creates a new refresh token manager
func NewManager(repo Repo, cfg config.TokenConfig) *Manager {
	return &Manager{
		repo:   repo,
		config: cfg,
	}
}

// Create mints a new refresh token for the user and persists it. The token
// value is cryptographically random, hex encoded; with the default config
// that is 40 bytes of entropy (80 hex chars), large enough that guessing is
// infeasible.
func (m *Manager) Create(ctx context.Context, userID, issuedIP, userAgent string) (*StoredRefreshToken, error) {
	valueBytes := make([]byte, m.config.GetRefreshTokenLength())
	if _, err := rand.Read(valueBytes); err != nil {
		return nil, errors.Wrap(err, "[refresh.Manager.Create] rand.Read")
	}

	now := NowTimeFunc()
	token := &StoredRefreshToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		Token:     hex.EncodeToString(valueBytes),
		IssuedAt:  now,
		ExpiresAt: now.Add(m.config.GetRefreshTokenExpiry()),
		IssuedIP:  issuedIP,
		UserAgent: userAgent,
	}

	if err := m.repo.Create(ctx, token); err != nil {
		return nil, errors.Wrap(err, "[refresh.Manager.Create] repo.Create")
	}
	return token, nil
}

// FindValid looks up a stored token by value and checks it is still valid for
// use. Returns ErrNotFound, ErrRevoked, or ErrExpired; callers decide how much
// of that distinction to surface.
func (m *Manager) FindValid(ctx context.Context, value string) (*StoredRefreshToken, error) {
	token, err := m.repo.GetByValue(ctx, value)
	if err != nil {
		return nil, err
	}
	if token.RevokedAt != nil {
		return nil, ErrRevoked
	}
	if !token.ExpiresAt.After(NowTimeFunc()) {
		return nil, ErrExpired
	}
	return token, nil
}

// Revoke marks the record revoked with the given reason. Fails with
// ErrAlreadyRevoked if another caller got there first.
func (m *Manager) Revoke(ctx context.Context, id, reason string) error {
	return m.repo.Revoke(ctx, id, reason, NowTimeFunc())
}
