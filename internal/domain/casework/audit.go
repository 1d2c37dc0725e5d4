package casework

import (
	"time"

	"github.com/google/uuid"
	"github.com/scaregistry/backend/internal/domain/shared"
)

// audit holds the authorship fields common to every case
type audit struct {
	CreatedByRef     uuid.UUID `json:"createdByRef"`
	LastUpdatedByRef uuid.UUID `json:"lastUpdatedByRef"`
}

// AuthorRef returns the creator of the case
func (a *audit) AuthorRef() uuid.UUID {
	return a.CreatedByRef
}

func newAudit(createdBy uuid.UUID) audit {
	return audit{CreatedByRef: createdBy, LastUpdatedByRef: createdBy}
}

// stamp records the actor, moves the update time and raises CaseTransitioned
func stamp(root *shared.BaseAggregateRoot, a *audit, entity EntityType, tr Transition, from, to string, actor uuid.UUID, now time.Time) {
	a.LastUpdatedByRef = actor
	root.Touch(now)
	root.AddDomainEvent(NewCaseTransitionedEvent(entity, root.ID, tr, from, to, actor, now))
}

// missing accumulates the names of fields that fail a guard
type missing []string

func (m *missing) require(ok bool, field string) {
	if !ok {
		*m = append(*m, field)
	}
}

func (m missing) err() error {
	if len(m) == 0 {
		return nil
	}
	return shared.NewValidationError(m...)
}
