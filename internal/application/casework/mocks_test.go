package casework

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/scaregistry/backend/internal/domain/casework"
	"github.com/scaregistry/backend/internal/domain/identity"
	"github.com/scaregistry/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCaseRepository is a mock implementation of casework.CaseRepository
type MockCaseRepository struct {
	mock.Mock
}

func (m *MockCaseRepository) GetByID(ctx context.Context, entity casework.EntityType, id uuid.UUID) (*casework.Document, error) {
	args := m.Called(ctx, entity, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*casework.Document), args.Error(1)
}

func (m *MockCaseRepository) QueryByField(ctx context.Context, entity casework.EntityType, field string, op casework.QueryOp, value any) ([]*casework.Document, error) {
	args := m.Called(ctx, entity, field, op, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*casework.Document), args.Error(1)
}

func (m *MockCaseRepository) Update(ctx context.Context, entity casework.EntityType, id uuid.UUID, expectedVersion int, deltas casework.FieldDeltas, events ...shared.DomainEvent) error {
	args := m.Called(ctx, entity, id, expectedVersion, deltas, events)
	return args.Error(0)
}

func (m *MockCaseRepository) Create(ctx context.Context, entity casework.EntityType, fields casework.Fields, events ...shared.DomainEvent) (uuid.UUID, error) {
	args := m.Called(ctx, entity, fields, events)
	if fn, ok := args.Get(0).(func(casework.Fields) uuid.UUID); ok {
		return fn(fields), args.Error(1)
	}
	return args.Get(0).(uuid.UUID), args.Error(1)
}

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByPrincipal(ctx context.Context, principalID string) (*identity.User, error) {
	args := m.Called(ctx, principalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindAll(ctx context.Context, filter shared.Filter) ([]*identity.User, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*identity.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) Save(ctx context.Context, user *identity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, user *identity.User) error {
	return m.Called(ctx, user).Error(0)
}

// recordingMetrics counts metric calls
type recordingMetrics struct {
	mu        sync.Mutex
	outcomes  []string
	stale     []string
	refreshed map[string]int
	expired   map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{refreshed: map[string]int{}, expired: map[string]int{}}
}

func (r *recordingMetrics) TransitionCompleted(entity, transition, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, entity+"."+transition+":"+outcome)
}

func (r *recordingMetrics) StaleSnapshot(entity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stale = append(r.stale, entity)
}

func (r *recordingMetrics) SnapshotsRefreshed(entity string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshed[entity] += count
}

func (r *recordingMetrics) CasesExpired(entity string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expired[entity] += count
}

// documentOf stores c the way the repository would return it
func documentOf(t *testing.T, c casework.Case) *casework.Document {
	t.Helper()
	fields, err := casework.Encode(c)
	require.NoError(t, err)
	return &casework.Document{
		Entity:    c.Entity(),
		ID:        c.GetID(),
		Version:   c.GetVersion(),
		Status:    c.CurrentStatus(),
		Fields:    fields,
		CreatedAt: c.GetCreatedAt(),
		UpdatedAt: c.GetUpdatedAt(),
	}
}
