package refreshredisrepo_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/leadcrm/go-crm-auth/token/refresh"
	refreshredisrepo "github.com/leadcrm/go-crm-auth/token/refresh/redisrepo"
)

func setupRepo(t *testing.T) (*refreshredisrepo.RedisRefreshTokenRepo, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return refreshredisrepo.NewRedisRefreshTokenRepo(client, ""), mr
}

func storedToken(userID string) *refresh.StoredRefreshToken {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &refresh.StoredRefreshToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		Token:     uuid.New().String() + uuid.New().String(),
		IssuedAt:  now,
		ExpiresAt: now.Add(7 * 24 * time.Hour),
		IssuedIP:  "198.51.100.7",
		UserAgent: "redis-repo-test/1.0",
	}
}

func TestCreateAndGetRoundtrip(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	token := storedToken("user-1")
	require.NoError(t, repo.Create(ctx, token))

	stored, err := repo.GetByValue(ctx, token.Token)
	require.NoError(t, err)
	require.Equal(t, token.ID, stored.ID)
	require.Equal(t, token.UserID, stored.UserID)
	require.Equal(t, token.IssuedIP, stored.IssuedIP)
	require.Equal(t, token.UserAgent, stored.UserAgent)
	require.True(t, stored.IssuedAt.Equal(token.IssuedAt))
	require.True(t, stored.ExpiresAt.Equal(token.ExpiresAt))
	require.Nil(t, stored.RevokedAt)
	require.Empty(t, stored.RevokedReason)
}

func TestGetUnknownValue(t *testing.T) {
	repo, _ := setupRepo(t)

	_, err := repo.GetByValue(context.Background(), "no-such-value")
	require.ErrorIs(t, err, refresh.ErrNotFound)
}

func TestRevokeWritesOnce(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	token := storedToken("user-1")
	require.NoError(t, repo.Create(ctx, token))

	revokedAt := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, repo.Revoke(ctx, token.ID, refresh.ReasonRotated, revokedAt))

	stored, err := repo.GetByValue(ctx, token.Token)
	require.NoError(t, err)
	require.NotNil(t, stored.RevokedAt)
	require.True(t, stored.RevokedAt.Equal(revokedAt))
	require.Equal(t, refresh.ReasonRotated, stored.RevokedReason)

	// Second revoke loses the compare-and-swap and leaves the record alone.
	err = repo.Revoke(ctx, token.ID, refresh.ReasonLogout, time.Now())
	require.ErrorIs(t, err, refresh.ErrAlreadyRevoked)

	stored, err = repo.GetByValue(ctx, token.Token)
	require.NoError(t, err)
	require.Equal(t, refresh.ReasonRotated, stored.RevokedReason)
}

func TestRevokeUnknownID(t *testing.T) {
	repo, _ := setupRepo(t)

	err := repo.Revoke(context.Background(), "no-such-id", refresh.ReasonLogout, time.Now())
	require.ErrorIs(t, err, refresh.ErrNotFound)
}

func TestConcurrentRevokeSingleWinner(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	token := storedToken("user-1")
	require.NoError(t, repo.Create(ctx, token))

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	results := make(chan error, n)

	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			results <- repo.Revoke(ctx, token.ID, refresh.ReasonRotated, time.Now())
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

func TestRecordsExpireFromRedisAfterRetention(t *testing.T) {
	repo, mr := setupRepo(t)
	ctx := context.Background()

	token := storedToken("user-1")
	require.NoError(t, repo.Create(ctx, token))

	// Retention covers the token lifetime plus the audit window.
	mr.FastForward(7*24*time.Hour + 31*24*time.Hour)

	_, err := repo.GetByValue(ctx, token.Token)
	require.ErrorIs(t, err, refresh.ErrNotFound)
}
