package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/scaregistry/backend/internal/domain/casework"
	"github.com/scaregistry/backend/internal/domain/shared"
	"github.com/scaregistry/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.OutboxEntryModel{}))
	return db
}

func transitionedEvent() *casework.CaseTransitionedEvent {
	return casework.NewCaseTransitionedEvent(casework.EntityRegistration, uuid.New(),
		casework.TransitionSubmit, "Draft", "Submitted", uuid.New(), time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
}

// recordingHandler counts deliveries and fails while failures > 0
type recordingHandler struct {
	mu       sync.Mutex
	types    []string
	seen     []shared.DomainEvent
	failures int
	panics   bool
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func (h *recordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.panics {
		panic("boom")
	}
	h.seen = append(h.seen, event)
	if h.failures > 0 {
		h.failures--
		return errors.New("handler failed")
	}
	return nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

// memoryStore is a minimal idempotency store for handler tests
type memoryStore struct {
	mu      sync.Mutex
	keys    map[string]bool
	markErr error
}

func newMemoryStore() *memoryStore { return &memoryStore{keys: map[string]bool{}} }

func (s *memoryStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return false, s.markErr
	}
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *memoryStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], nil
}

func (s *memoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

func (s *memoryStore) Close() error { return nil }
