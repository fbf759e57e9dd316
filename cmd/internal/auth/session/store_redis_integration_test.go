package session

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisTestClient connects to the Redis named by AUTHGATE_TEST_REDIS_ADDR
// or skips the test when the variable is unset.
func redisTestClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("AUTHGATE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("AUTHGATE_TEST_REDIS_ADDR not set; skipping redis integration test")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Fatalf("ping redis at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store, err := NewRedisStore(redisTestClient(t))
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}

	now := time.Now().UTC()
	row := Row{
		ID:        "01J0REDIS00000000000000000",
		UserID:    42,
		TokenHash: "redis-test-" + now.Format("150405.000000000"),
		CreatedAt: now,
		ExpiresAt: now.Add(time.Minute),
	}
	t.Cleanup(func() { _ = store.Revoke(ctx, row.TokenHash, time.Now().UTC()) })

	if err := store.Create(ctx, row); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.GetByTokenHash(ctx, row.TokenHash)
	if err != nil {
		t.Fatalf("GetByTokenHash: %v", err)
	}
	if got.UserID != row.UserID || got.ID != row.ID {
		t.Fatalf("got %+v, want %+v", got, row)
	}
	if !got.ActiveAt(time.Now().UTC()) {
		t.Fatal("fresh session should be active")
	}

	if err := store.Revoke(ctx, row.TokenHash, time.Now().UTC()); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := store.GetByTokenHash(ctx, row.TokenHash); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("after revoke: got %v, want ErrSessionNotFound", err)
	}

	// Revoking again stays a no-op.
	if err := store.Revoke(ctx, row.TokenHash, time.Now().UTC()); err != nil {
		t.Fatalf("second Revoke: %v", err)
	}
}

func TestRedisStoreTTLTracksExpiry(t *testing.T) {
	ctx := context.Background()
	store, err := NewRedisStore(redisTestClient(t))
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}

	now := time.Now().UTC()
	row := Row{
		ID:        "01J0REDISTTL00000000000000",
		UserID:    7,
		TokenHash: "redis-ttl-" + now.Format("150405.000000000"),
		CreatedAt: now,
		ExpiresAt: now.Add(2 * time.Second),
	}
	t.Cleanup(func() { _ = store.Revoke(ctx, row.TokenHash, time.Now().UTC()) })

	if err := store.Create(ctx, row); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ttl := store.rdb.TTL(ctx, redisKey(row.TokenHash)).Val()
	if ttl <= 0 || ttl > 2*time.Second {
		t.Fatalf("key TTL = %v, want within (0, 2s]", ttl)
	}
}
