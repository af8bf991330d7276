package refresh_test

import (
	"context"
	"encoding/hex"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/leadcrm/go-crm-auth/internal/config"
	"github.com/leadcrm/go-crm-auth/token/refresh"
	refreshrepofake "github.com/leadcrm/go-crm-auth/token/refresh/repofake"
)

func newManager() (*refresh.Manager, *refreshrepofake.FakeRefreshTokenRepo) {
	repo := refreshrepofake.NewFakeRefreshTokenRepo()
	return refresh.NewManager(repo, config.New()), repo
}

func TestCreatePersistsActiveToken(t *testing.T) {
	m, repo := newManager()
	ctx := context.Background()

	created, err := m.Create(ctx, "user-1", "198.51.100.7", "test-agent")
	require.NoError(t, err)

	// 40 bytes of entropy, hex encoded.
	require.Len(t, created.Token, 80)
	_, err = hex.DecodeString(created.Token)
	require.NoError(t, err)

	stored, err := repo.GetByValue(ctx, created.Token)
	require.NoError(t, err)
	require.Equal(t, "user-1", stored.UserID)
	require.Nil(t, stored.RevokedAt)
	require.True(t, stored.ExpiresAt.Equal(stored.IssuedAt.Add(7*24*time.Hour)))
}

func TestCreateValuesAreUnique(t *testing.T) {
	m, _ := newManager()
	ctx := context.Background()

	first, err := m.Create(ctx, "user-1", "", "")
	require.NoError(t, err)
	second, err := m.Create(ctx, "user-1", "", "")
	require.NoError(t, err)
	require.NotEqual(t, first.Token, second.Token)
	require.NotEqual(t, first.ID, second.ID)
}

func TestFindValidStates(t *testing.T) {
	m, _ := newManager()
	ctx := context.Background()

	_, err := m.FindValid(ctx, "missing")
	require.ErrorIs(t, err, refresh.ErrNotFound)

	created, err := m.Create(ctx, "user-1", "", "")
	require.NoError(t, err)

	found, err := m.FindValid(ctx, created.Token)
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)

	require.NoError(t, m.Revoke(ctx, created.ID, refresh.ReasonLogout))
	_, err = m.FindValid(ctx, created.Token)
	require.ErrorIs(t, err, refresh.ErrRevoked)
}

func TestFindValidExpiryIsExclusive(t *testing.T) {
	defer func() { refresh.NowTimeFunc = time.Now }()

	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	refresh.NowTimeFunc = func() time.Time { return issued }

	m, _ := newManager()
	ctx := context.Background()

	created, err := m.Create(ctx, "user-1", "", "")
	require.NoError(t, err)

	refresh.NowTimeFunc = func() time.Time { return created.ExpiresAt }
	_, err = m.FindValid(ctx, created.Token)
	require.ErrorIs(t, err, refresh.ErrExpired)
}

func TestRevokeIsCompareAndSwap(t *testing.T) {
	m, repo := newManager()
	ctx := context.Background()

	created, err := m.Create(ctx, "user-1", "", "")
	require.NoError(t, err)

	require.NoError(t, m.Revoke(ctx, created.ID, refresh.ReasonRotated))
	require.ErrorIs(t, m.Revoke(ctx, created.ID, refresh.ReasonLogout), refresh.ErrAlreadyRevoked)

	// First write wins; the record is never mutated twice.
	stored, err := repo.GetByValue(ctx, created.Token)
	require.NoError(t, err)
	require.Equal(t, refresh.ReasonRotated, stored.RevokedReason)
}

func TestConcurrentRevokeSingleWinner(t *testing.T) {
	m, _ := newManager()
	ctx := context.Background()

	created, err := m.Create(ctx, "user-1", "", "")
	require.NoError(t, err)

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)
	results := make(chan error, n)

	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			results <- m.Revoke(ctx, created.ID, refresh.ReasonRotated)
		}()
	}
	wg.Wait()
	close(results)

	success := 0
	for err := range results {
		if err == nil {
			success++
		} else {
			require.ErrorIs(t, err, refresh.ErrAlreadyRevoked)
		}
	}
	require.Equal(t, 1, success)
}
