package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:"

// RedisStore keeps sessions in Redis, one JSON value per token hash
// with a TTL matching the session expiry. Expiry enforcement doubles
// up: Redis drops the key, and ActiveAt rejects anything that slips
// through before the key is reaped.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wires a session store over an existing Redis client.
func NewRedisStore(rdb *redis.Client) (*RedisStore, error) {
	if rdb == nil {
		return nil, fmt.Errorf("%w: nil redis client", ErrConfig)
	}
	return &RedisStore{rdb: rdb}, nil
}

type redisRow struct {
	ID        string     `json:"id"`
	UserID    int64      `json:"user_id"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

func redisKey(tokenHash string) string {
	return redisKeyPrefix + tokenHash
}

// Create stores the row under its token hash with a TTL derived from
// the expiry.
func (s *RedisStore) Create(ctx context.Context, row Row) error {
	payload, err := json.Marshal(redisRow{
		ID:        row.ID,
		UserID:    row.UserID,
		CreatedAt: row.CreatedAt,
		ExpiresAt: row.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("%w: encode session: %v", ErrUnavailable, err)
	}

	ttl := time.Until(row.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := s.rdb.Set(ctx, redisKey(row.TokenHash), payload, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set session: %v", ErrUnavailable, err)
	}
	return nil
}

// GetByTokenHash loads and decodes the stored row.
func (s *RedisStore) GetByTokenHash(ctx context.Context, tokenHash string) (Row, error) {
	raw, err := s.rdb.Get(ctx, redisKey(tokenHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Row{}, ErrSessionNotFound
		}
		return Row{}, fmt.Errorf("%w: get session: %v", ErrUnavailable, err)
	}

	var rr redisRow
	if err := json.Unmarshal(raw, &rr); err != nil {
		return Row{}, fmt.Errorf("%w: decode session: %v", ErrUnavailable, err)
	}
	return Row{
		ID:        rr.ID,
		UserID:    rr.UserID,
		TokenHash: tokenHash,
		CreatedAt: rr.CreatedAt,
		ExpiresAt: rr.ExpiresAt,
		RevokedAt: rr.RevokedAt,
	}, nil
}

// Revoke deletes the key outright; a revoked Redis session is simply
// gone, which resolves the same as expired. Unknown hashes are a no-op.
func (s *RedisStore) Revoke(ctx context.Context, tokenHash string, _ time.Time) error {
	if err := s.rdb.Del(ctx, redisKey(tokenHash)).Err(); err != nil {
		return fmt.Errorf("%w: del session: %v", ErrUnavailable, err)
	}
	return nil
}
