// Package sentinel marks refresh token ids as consumed in a short-TTL cache
// so a near-simultaneous replay is caught before the durable blacklist write
// lands. The sentinel is a first-line anomaly check only; the blacklist is
// the source of truth.
package sentinel

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is how long a consumed-token marker is kept. It only needs to
// cover the window between a rotation starting and its blacklist write
// becoming visible.
const DefaultTTL = 5 * time.Minute

// Sentinel is the narrow reuse-detection interface. MarkConsumed is a single
// atomic check-and-set: it records the marker and reports whether one was
// already present. Callers treat errors as "fail open"; a cache outage must
// not block rotation.
type Sentinel interface {
	MarkConsumed(ctx context.Context, tokenID, userID string) (alreadySeen bool, err error)
}

type entry struct {
	userID    string
	expiresAt time.Time
}

// MemoryStore is an in-process Sentinel for tests and single-node runs.
type MemoryStore struct {
	mu   sync.Mutex
	m    map[string]entry
	ttl  time.Duration
	nowF func() time.Time
}

// NewMemoryStore returns an in-memory sentinel with the given marker TTL.
// ttl <= 0 falls back to DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		m:    make(map[string]entry),
		ttl:  ttl,
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// MarkConsumed records the marker for tokenID and reports whether an
// unexpired marker already existed.
func (s *MemoryStore) MarkConsumed(ctx context.Context, tokenID, userID string) (bool, error) {
	now := s.nowF()
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.m[tokenID]; ok && e.expiresAt.After(now) {
		return true, nil
	}
	s.m[tokenID] = entry{userID: userID, expiresAt: now.Add(s.ttl)}
	// Opportunistic cleanup keeps the map from growing between rotations.
	for k, e := range s.m {
		if !e.expiresAt.After(now) {
			delete(s.m, k)
		}
	}
	return false, nil
}
