package identity

import (
	"github.com/scaregistry/backend/internal/domain/shared"
)

// AggregateTypeUser is the aggregate type for user events
const AggregateTypeUser = "User"

// User domain event types
const (
	EventTypeUserCreated           = "UserCreated"
	EventTypeUserRoleChanged       = "UserRoleChanged"
	EventTypeUserActivationChanged = "UserActivationChanged"
	EventTypeUserProfileUpdated    = "UserProfileUpdated"
	EventTypeUserDeleted           = "UserDeleted"
)

// UserCreatedEvent is published when a profile is provisioned
type UserCreatedEvent struct {
	shared.BaseDomainEvent
	PrincipalID string `json:"principal_id"`
	Role        Role   `json:"role"`
}

// NewUserCreatedEvent creates a new UserCreatedEvent
func NewUserCreatedEvent(u *User) *UserCreatedEvent {
	return &UserCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserCreated, AggregateTypeUser, u.ID),
		PrincipalID:     u.PrincipalID,
		Role:            u.Role,
	}
}

// UserRoleChangedEvent is published when a user's role changes
type UserRoleChangedEvent struct {
	shared.BaseDomainEvent
	PreviousRole Role `json:"previous_role"`
	Role         Role `json:"role"`
}

// NewUserRoleChangedEvent creates a new UserRoleChangedEvent
func NewUserRoleChangedEvent(u *User, previous Role) *UserRoleChangedEvent {
	return &UserRoleChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserRoleChanged, AggregateTypeUser, u.ID),
		PreviousRole:    previous,
		Role:            u.Role,
	}
}

// UserActivationChangedEvent is published on activate and deactivate
type UserActivationChangedEvent struct {
	shared.BaseDomainEvent
	IsActive bool `json:"is_active"`
}

// NewUserActivationChangedEvent creates a new UserActivationChangedEvent
func NewUserActivationChangedEvent(u *User) *UserActivationChangedEvent {
	return &UserActivationChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserActivationChanged, AggregateTypeUser, u.ID),
		IsActive:        u.IsActive,
	}
}

// UserProfileUpdatedEvent carries the fields cached in inspector and issuer snapshots
type UserProfileUpdatedEvent struct {
	shared.BaseDomainEvent
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// NewUserProfileUpdatedEvent creates a new UserProfileUpdatedEvent
func NewUserProfileUpdatedEvent(u *User) *UserProfileUpdatedEvent {
	return &UserProfileUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserProfileUpdated, AggregateTypeUser, u.ID),
		Email:           u.Email,
		DisplayName:     u.DisplayName,
	}
}

// UserDeletedEvent is published when a profile is hard-deleted
type UserDeletedEvent struct {
	shared.BaseDomainEvent
	PrincipalID string `json:"principal_id"`
}

// NewUserDeletedEvent creates a new UserDeletedEvent
func NewUserDeletedEvent(u *User) *UserDeletedEvent {
	return &UserDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserDeleted, AggregateTypeUser, u.ID),
		PrincipalID:     u.PrincipalID,
	}
}
