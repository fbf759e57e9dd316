package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. It is the default
// backend for tests and single-node deployments without Postgres or
// Redis; everything is lost on restart.
type MemoryStore struct {
	mu     sync.Mutex
	byHash map[string]Row
}

// NewMemoryStore returns an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byHash: make(map[string]Row)}
}

// Create stores the row keyed by its token hash.
func (s *MemoryStore) Create(_ context.Context, row Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byHash[row.TokenHash] = row
	return nil
}

// GetByTokenHash returns the stored row for the hash, expired or not;
// liveness is the caller's call.
func (s *MemoryStore) GetByTokenHash(_ context.Context, tokenHash string) (Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.byHash[tokenHash]
	if !ok {
		return Row{}, ErrSessionNotFound
	}
	return row, nil
}

// Revoke marks the row ended, keeping the first revocation timestamp.
func (s *MemoryStore) Revoke(_ context.Context, tokenHash string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.byHash[tokenHash]
	if !ok {
		return nil
	}
	if row.RevokedAt == nil {
		t := at
		row.RevokedAt = &t
		s.byHash[tokenHash] = row
	}
	return nil
}

// Sweep removes rows whose expiry is before the cutoff. It exists so
// long-running processes do not accumulate dead sessions; callers run
// it on a timer.
func (s *MemoryStore) Sweep(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for hash, row := range s.byHash {
		if row.ExpiresAt.Before(cutoff) {
			delete(s.byHash, hash)
			n++
		}
	}
	return n
}
