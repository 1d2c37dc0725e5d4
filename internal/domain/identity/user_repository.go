package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/scaregistry/backend/internal/domain/shared"
)

// UserRepository defines the interface for user profile persistence
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	// FindByPrincipal returns shared.ErrNotFound when no profile exists
	FindByPrincipal(ctx context.Context, principalID string) (*User, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]*User, int64, error)
	// Save inserts or updates with an optimistic version check and writes
	// pending domain events to the outbox in the same transaction.
	Save(ctx context.Context, user *User) error
	Delete(ctx context.Context, user *User) error
}

// ActivityTracker stores the last time each user acted, for idle-session expiry
type ActivityTracker interface {
	LastActivity(ctx context.Context, userID uuid.UUID) (time.Time, bool, error)
	Touch(ctx context.Context, userID uuid.UUID, at time.Time) error
}
