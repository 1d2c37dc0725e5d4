package casework

import (
	"time"

	"github.com/google/uuid"
	"github.com/scaregistry/backend/internal/domain/shared"
)

// Event types
const (
	EventTypeCaseCreated                = "CaseCreated"
	EventTypeCaseTransitioned           = "CaseTransitioned"
	EventTypeRegistrationDetailsChanged = "RegistrationDetailsChanged"
)

// CaseCreatedEvent is raised when a new case document is created
type CaseCreatedEvent struct {
	shared.BaseDomainEvent
	Entity       EntityType `json:"entity"`
	Status       string     `json:"status"`
	CreatedByRef uuid.UUID  `json:"createdByRef"`
}

// NewCaseCreatedEvent creates a CaseCreated event
func NewCaseCreatedEvent(entity EntityType, id uuid.UUID, status string, createdBy uuid.UUID, at time.Time) *CaseCreatedEvent {
	return &CaseCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEventAt(EventTypeCaseCreated, string(entity), id, at),
		Entity:          entity,
		Status:          status,
		CreatedByRef:    createdBy,
	}
}

// CaseTransitionedEvent records a completed state machine step
type CaseTransitionedEvent struct {
	shared.BaseDomainEvent
	Entity     EntityType `json:"entity"`
	Transition Transition `json:"transition"`
	From       string     `json:"from"`
	To         string     `json:"to"`
	ActorRef   uuid.UUID  `json:"actorRef"`
}

// NewCaseTransitionedEvent creates a CaseTransitioned event
func NewCaseTransitionedEvent(entity EntityType, id uuid.UUID, tr Transition, from, to string, actor uuid.UUID, at time.Time) *CaseTransitionedEvent {
	return &CaseTransitionedEvent{
		BaseDomainEvent: shared.NewBaseDomainEventAt(EventTypeCaseTransitioned, string(entity), id, at),
		Entity:          entity,
		Transition:      tr,
		From:            from,
		To:              to,
		ActorRef:        actor,
	}
}

// RegistrationDetailsChangedEvent carries the registration's new snapshot so
// dependent inspections and infringements can be refreshed
type RegistrationDetailsChangedEvent struct {
	shared.BaseDomainEvent
	Snapshot RegistrationSnapshot `json:"snapshot"`
}

// NewRegistrationDetailsChangedEvent creates a RegistrationDetailsChanged event
func NewRegistrationDetailsChangedEvent(id uuid.UUID, snap RegistrationSnapshot, at time.Time) *RegistrationDetailsChangedEvent {
	return &RegistrationDetailsChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEventAt(EventTypeRegistrationDetailsChanged, string(EntityRegistration), id, at),
		Snapshot:        snap,
	}
}
