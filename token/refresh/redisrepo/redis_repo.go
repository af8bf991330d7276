// Package refreshredisrepo implements the refresh token store on Redis.
// Records are stored as hashes keyed by token value, with a secondary
// id -> value index so revocation can address a record without knowing its
// value. Revocation is a Lua-scripted compare-and-swap so that concurrent
// rotations against one record have exactly one winner.
package refreshredisrepo

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/leadcrm/go-crm-auth/token/refresh"
)

var _ refresh.Repo = (*RedisRefreshTokenRepo)(nil)

const (
	defaultPrefix = "crmauth:refresh:"

	// Revoked records are kept past their expiry for audit. They are never
	// un-revoked or rewritten; Redis eventually reclaims them via TTL.
	auditRetention = 30 * 24 * time.Hour
)

// revokeLua atomically performs the revoke-iff-active check and write.
// KEYS[1] = id index key (holds the token value)
// ARGV[1] = revocation timestamp (RFC3339Nano)
// ARGV[2] = revocation reason
// ARGV[3] = record key prefix
//
// Returns 1 on success, or an error string: "not_found", "already_revoked".
var revokeLua = redis.NewScript(`
local value = redis.call('GET', KEYS[1])
if not value then
  return {err='not_found'}
end

local recordKey = ARGV[3] .. value
if redis.call('EXISTS', recordKey) == 0 then
  return {err='not_found'}
end

if redis.call('HGET', recordKey, 'revoked_at') then
  return {err='already_revoked'}
end

redis.call('HSET', recordKey, 'revoked_at', ARGV[1], 'revoked_reason', ARGV[2])
return 1
`)

type RedisRefreshTokenRepo struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisRefreshTokenRepo(redisClient redis.UniversalClient, prefix string) *RedisRefreshTokenRepo {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RedisRefreshTokenRepo{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (tr *RedisRefreshTokenRepo) recordKey(value string) string {
	return tr.prefix + "tok:" + value
}

func (tr *RedisRefreshTokenRepo) indexKey(id string) string {
	return tr.prefix + "id:" + id
}

func (tr *RedisRefreshTokenRepo) Create(ctx context.Context, token *refresh.StoredRefreshToken) error {
	retention := time.Until(token.ExpiresAt) + auditRetention

	fields := map[string]interface{}{
		"id":         token.ID,
		"user_id":    token.UserID,
		"token":      token.Token,
		"issued_at":  token.IssuedAt.Format(time.RFC3339Nano),
		"expires_at": token.ExpiresAt.Format(time.RFC3339Nano),
		"issued_ip":  token.IssuedIP,
		"user_agent": token.UserAgent,
	}

	pipe := tr.redis.TxPipeline()
	pipe.HSet(ctx, tr.recordKey(token.Token), fields)
	pipe.PExpire(ctx, tr.recordKey(token.Token), retention)
	pipe.Set(ctx, tr.indexKey(token.ID), token.Token, retention)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "[RedisRefreshTokenRepo.Create] pipeline exec")
	}
	return nil
}

func (tr *RedisRefreshTokenRepo) GetByValue(ctx context.Context, value string) (*refresh.StoredRefreshToken, error) {
	fields, err := tr.redis.HGetAll(ctx, tr.recordKey(value)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "[RedisRefreshTokenRepo.GetByValue] HGetAll")
	}
	if len(fields) == 0 {
		return nil, refresh.ErrNotFound
	}
	return decodeRecord(fields)
}

func (tr *RedisRefreshTokenRepo) Revoke(ctx context.Context, id, reason string, at time.Time) error {
	err := revokeLua.Run(ctx, tr.redis,
		[]string{tr.indexKey(id)},
		at.Format(time.RFC3339Nano), reason, tr.prefix+"tok:",
	).Err()
	if err == nil {
		return nil
	}
	switch err.Error() {
	case "not_found":
		return refresh.ErrNotFound
	case "already_revoked":
		return refresh.ErrAlreadyRevoked
	}
	return errors.Wrap(err, "[RedisRefreshTokenRepo.Revoke] script run")
}

func decodeRecord(fields map[string]string) (*refresh.StoredRefreshToken, error) {
	issuedAt, err := time.Parse(time.RFC3339Nano, fields["issued_at"])
	if err != nil {
		return nil, errors.Wrap(err, "[RedisRefreshTokenRepo] parse issued_at")
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, fields["expires_at"])
	if err != nil {
		return nil, errors.Wrap(err, "[RedisRefreshTokenRepo] parse expires_at")
	}

	token := &refresh.StoredRefreshToken{
		ID:            fields["id"],
		UserID:        fields["user_id"],
		Token:         fields["token"],
		IssuedAt:      issuedAt,
		ExpiresAt:     expiresAt,
		IssuedIP:      fields["issued_ip"],
		UserAgent:     fields["user_agent"],
		RevokedReason: fields["revoked_reason"],
	}

	if raw, ok := fields["revoked_at"]; ok && raw != "" {
		revokedAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, errors.Wrap(err, "[RedisRefreshTokenRepo] parse revoked_at")
		}
		token.RevokedAt = &revokedAt
	}
	return token, nil
}
