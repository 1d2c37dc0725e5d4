// Package casework holds the regulated case aggregates (registrations,
// inspections, operator licenses and infringements), their status state
// machines, the penalty calculator and the document port they persist through.
package casework

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/scaregistry/backend/internal/domain/shared"
)

// EntityType names a kind of case document
type EntityType string

const (
	EntityRegistration    EntityType = "Registration"
	EntityInspection      EntityType = "Inspection"
	EntityOperatorLicense EntityType = "OperatorLicense"
	EntityInfringement    EntityType = "Infringement"
	// EntityUser is not a case, but user profile administration is
	// authorized by the same gate.
	EntityUser EntityType = "User"
)

// CaseEntities returns the entity types stored as case documents
func CaseEntities() []EntityType {
	return []EntityType{EntityRegistration, EntityInspection, EntityOperatorLicense, EntityInfringement}
}

// IsCase reports whether e is stored as a case document
func (e EntityType) IsCase() bool {
	switch e {
	case EntityRegistration, EntityInspection, EntityOperatorLicense, EntityInfringement:
		return true
	}
	return false
}

// String returns the string representation of EntityType
func (e EntityType) String() string {
	return string(e)
}

// ParseEntityType parses a case-sensitive entity name
func ParseEntityType(s string) (EntityType, error) {
	e := EntityType(s)
	if !e.IsCase() && e != EntityUser {
		return "", shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("unknown entity type %q", s))
	}
	return e, nil
}

// IDField is the document field carrying the case id
func (e EntityType) IDField() string {
	switch e {
	case EntityRegistration:
		return "registrationId"
	case EntityInspection:
		return "inspectionId"
	case EntityOperatorLicense:
		return "licenseApplicationId"
	case EntityInfringement:
		return "infringementId"
	case EntityUser:
		return "userId"
	}
	return "id"
}

// Transition names an edge in a case state machine
type Transition string

const (
	TransitionCreate           Transition = "create"
	TransitionUpdate           Transition = "update"
	TransitionSubmit           Transition = "submit"
	TransitionBeginReview      Transition = "beginReview"
	TransitionApprove          Transition = "approve"
	TransitionReject           Transition = "reject"
	TransitionRequestInfo      Transition = "requestInfo"
	TransitionSuspend          Transition = "suspend"
	TransitionUnsuspend        Transition = "unsuspend"
	TransitionRevoke           Transition = "revoke"
	TransitionExpire           Transition = "expire"
	TransitionSchedule         Transition = "schedule"
	TransitionReschedule       Transition = "reschedule"
	TransitionStart            Transition = "start"
	TransitionSaveProgress     Transition = "saveProgress"
	TransitionSubmitForReview  Transition = "submitForReview"
	TransitionCancel           Transition = "cancel"
	TransitionMarkReadyForTest Transition = "markReadyForTest"
	TransitionScheduleTest     Transition = "scheduleTest"
	TransitionRecordTestPass   Transition = "recordTestPass"
	TransitionRecordTestFail   Transition = "recordTestFail"
	TransitionIssue            Transition = "issue"
	TransitionRecordPayment    Transition = "recordPayment"

	// User profile administration
	TransitionChangeRole    Transition = "changeRole"
	TransitionActivate      Transition = "activate"
	TransitionDeactivate    Transition = "deactivate"
	TransitionDelete        Transition = "delete"
	TransitionUpdateProfile Transition = "updateProfile"
)

// String returns the string representation of Transition
func (t Transition) String() string {
	return string(t)
}

// Case is implemented by every case aggregate
type Case interface {
	shared.AggregateRoot
	Entity() EntityType
	CurrentStatus() string
	// AuthorRef is the user whose work a review of the case would judge
	AuthorRef() uuid.UUID
	// Apply validates and performs a transition. On error the case is unchanged.
	Apply(t Transition, in TransitionInput, actor uuid.UUID, now time.Time) error
	// AvailableTransitions lists the transitions with an edge from the current status
	AvailableTransitions() []Transition
}

// NewEmptyCase returns a zero aggregate of the given type, ready to be decoded into
func NewEmptyCase(e EntityType) (Case, error) {
	switch e {
	case EntityRegistration:
		return &Registration{}, nil
	case EntityInspection:
		return &Inspection{}, nil
	case EntityOperatorLicense:
		return &OperatorLicense{}, nil
	case EntityInfringement:
		return &Infringement{}, nil
	}
	return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("%s is not a case entity", e))
}

// TransitionsOf returns every transition name known to an entity's state machine
func TransitionsOf(e EntityType) []Transition {
	switch e {
	case EntityRegistration:
		return registrationTable.Transitions()
	case EntityInspection:
		return inspectionTable.Transitions()
	case EntityOperatorLicense:
		return licenseTable.Transitions()
	case EntityInfringement:
		return infringementTable.Transitions()
	}
	return nil
}
