package session

import (
	"context"
	"testing"
	"time"
)

func memRow(hash string, ttl time.Duration) Row {
	now := time.Now().UTC()
	return Row{
		ID:        "01J0TESTROW0000000000000000",
		UserID:    1,
		TokenHash: hash,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	row := memRow("aaaa", time.Hour)
	if err := s.Create(ctx, row); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.GetByTokenHash(ctx, "aaaa")
	if err != nil {
		t.Fatalf("GetByTokenHash: %v", err)
	}
	if got.UserID != row.UserID || got.ID != row.ID {
		t.Fatalf("got row %+v, want %+v", got, row)
	}
	if !got.ActiveAt(time.Now().UTC()) {
		t.Fatal("fresh session should be active")
	}

	if _, err := s.GetByTokenHash(ctx, "missing"); err != ErrSessionNotFound {
		t.Fatalf("missing hash: got %v, want ErrSessionNotFound", err)
	}
}

func TestMemoryStoreRevokeIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Create(ctx, memRow("bbbb", time.Hour)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	first := time.Now().UTC()
	if err := s.Revoke(ctx, "bbbb", first); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	// The second revoke must not move the timestamp.
	if err := s.Revoke(ctx, "bbbb", first.Add(time.Minute)); err != nil {
		t.Fatalf("second Revoke: %v", err)
	}

	got, err := s.GetByTokenHash(ctx, "bbbb")
	if err != nil {
		t.Fatalf("GetByTokenHash: %v", err)
	}
	if got.RevokedAt == nil || !got.RevokedAt.Equal(first) {
		t.Fatalf("RevokedAt = %v, want %v", got.RevokedAt, first)
	}
	if got.ActiveAt(time.Now().UTC()) {
		t.Fatal("revoked session should not be active")
	}

	// Unknown hash is a no-op, not an error.
	if err := s.Revoke(ctx, "never-issued", time.Now().UTC()); err != nil {
		t.Fatalf("Revoke unknown: %v", err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Create(ctx, memRow("cccc", -time.Minute)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.GetByTokenHash(ctx, "cccc")
	if err != nil {
		t.Fatalf("GetByTokenHash: %v", err)
	}
	if got.ActiveAt(time.Now().UTC()) {
		t.Fatal("expired session should not be active")
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Create(ctx, memRow("old", -time.Hour)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(ctx, memRow("fresh", time.Hour)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if n := s.Sweep(time.Now().UTC()); n != 1 {
		t.Fatalf("Sweep removed %d rows, want 1", n)
	}
	if _, err := s.GetByTokenHash(ctx, "old"); err != ErrSessionNotFound {
		t.Fatalf("swept session: got %v, want ErrSessionNotFound", err)
	}
	if _, err := s.GetByTokenHash(ctx, "fresh"); err != nil {
		t.Fatalf("fresh session should survive sweep: %v", err)
	}
}
