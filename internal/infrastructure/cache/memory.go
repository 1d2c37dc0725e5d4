package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/scaregistry/backend/internal/domain/identity"
	"github.com/scaregistry/backend/internal/domain/shared"
)

const cleanupInterval = 5 * time.Minute

// expiringSet is a string set whose members expire. A background loop drops
// expired members so the map does not grow without bound.
type expiringSet struct {
	mu      sync.RWMutex
	members map[string]time.Time
	now     func() time.Time
	stop    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newExpiringSet() *expiringSet {
	s := &expiringSet{
		members: make(map[string]time.Time),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.cleanupLoop()
	return s
}

// add inserts key unless a live member exists, reporting whether it did
func (s *expiringSet) add(key string, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.members[key]; ok && now.Before(exp) {
		return false
	}
	s.members[key] = now.Add(ttl)
	return true
}

func (s *expiringSet) has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exp, ok := s.members[key]
	return ok && s.now().Before(exp)
}

func (s *expiringSet) remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, key)
}

func (s *expiringSet) size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}

func (s *expiringSet) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *expiringSet) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, exp := range s.members {
		if !now.Before(exp) {
			delete(s.members, key)
		}
	}
}

func (s *expiringSet) close() {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
	})
}

// InMemoryIdempotencyStore keeps handled event ids in process memory.
// Instances do not share state, so a multi-instance deployment may handle
// a redelivered event once per instance.
type InMemoryIdempotencyStore struct {
	set *expiringSet
}

// NewInMemoryIdempotencyStore creates a store with its own cleanup loop
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{set: newExpiringSet()}
}

func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	return s.set.add(key, ttl), nil
}

func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	return s.set.has(key), nil
}

func (s *InMemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.set.remove(key)
	return nil
}

// Close stops the cleanup loop. Safe to call more than once.
func (s *InMemoryIdempotencyStore) Close() error {
	s.set.close()
	return nil
}

// Size returns the number of stored keys, expired ones included until cleanup
func (s *InMemoryIdempotencyStore) Size() int {
	return s.set.size()
}

// InMemoryActivityTracker records last activity per user in process memory
type InMemoryActivityTracker struct {
	mu   sync.RWMutex
	seen map[uuid.UUID]time.Time
}

// NewInMemoryActivityTracker creates an empty tracker
func NewInMemoryActivityTracker() *InMemoryActivityTracker {
	return &InMemoryActivityTracker{seen: make(map[uuid.UUID]time.Time)}
}

func (t *InMemoryActivityTracker) LastActivity(_ context.Context, userID uuid.UUID) (time.Time, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	at, ok := t.seen[userID]
	return at, ok, nil
}

// Touch moves the user's last activity forward; older timestamps are ignored
func (t *InMemoryActivityTracker) Touch(_ context.Context, userID uuid.UUID, at time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.seen[userID]; !ok || at.After(prev) {
		t.seen[userID] = at
	}
	return nil
}

var (
	_ shared.IdempotencyStore  = (*InMemoryIdempotencyStore)(nil)
	_ identity.ActivityTracker = (*InMemoryActivityTracker)(nil)
)
