package refreshrepofake

import (
	"context"
	"sync"
	"time"

	"github.com/leadcrm/go-crm-auth/token/refresh"
)

var _ refresh.Repo = (*FakeRefreshTokenRepo)(nil)

// FakeRefreshTokenRepo is the in-memory refresh token store used in tests and
// for single-process dev runs.
type FakeRefreshTokenRepo struct {
	byValue map[string]*refresh.StoredRefreshToken
	byID    map[string]*refresh.StoredRefreshToken
	lock    sync.RWMutex
}

func NewFakeRefreshTokenRepo() *FakeRefreshTokenRepo {
	return &FakeRefreshTokenRepo{
		byValue: make(map[string]*refresh.StoredRefreshToken),
		byID:    make(map[string]*refresh.StoredRefreshToken),
	}
}

func (tr *FakeRefreshTokenRepo) Create(_ context.Context, token *refresh.StoredRefreshToken) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	cp := *token
	tr.byValue[cp.Token] = &cp
	tr.byID[cp.ID] = &cp
	return nil
}

func (tr *FakeRefreshTokenRepo) GetByValue(_ context.Context, value string) (*refresh.StoredRefreshToken, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	token, ok := tr.byValue[value]
	if !ok {
		return nil, refresh.ErrNotFound
	}
	cp := *token
	return &cp, nil
}

// All returns a copy of every stored record, for test assertions.
func (tr *FakeRefreshTokenRepo) All() []*refresh.StoredRefreshToken {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	tokens := make([]*refresh.StoredRefreshToken, 0, len(tr.byID))
	for _, token := range tr.byID {
		cp := *token
		tokens = append(tokens, &cp)
	}
	return tokens
}

// Revoke is revoke-iff-active: the check and the write happen under one lock,
// so concurrent rotations against the same record produce exactly one winner.
func (tr *FakeRefreshTokenRepo) Revoke(_ context.Context, id, reason string, at time.Time) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	token, ok := tr.byID[id]
	if !ok {
		return refresh.ErrNotFound
	}
	if token.RevokedAt != nil {
		return refresh.ErrAlreadyRevoked
	}
	revokedAt := at
	token.RevokedAt = &revokedAt
	token.RevokedReason = reason
	return nil
}
