package casework

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/scaregistry/backend/internal/domain/casework"
	"github.com/scaregistry/backend/internal/domain/policy"
)

// CaseView is a case as returned to callers
type CaseView struct {
	Entity               casework.EntityType                               `json:"entity"`
	ID                   uuid.UUID                                         `json:"id"`
	Version              int                                               `json:"version"`
	Status               string                                            `json:"status"`
	Fields               casework.Fields                                   `json:"fields"`
	AvailableTransitions []casework.Transition                             `json:"availableTransitions"`
	Registration         *casework.Resolved[casework.RegistrationSnapshot] `json:"registration,omitempty"`
	Inspector            *casework.Resolved[casework.PersonSnapshot]       `json:"inspector,omitempty"`
	IssuedBy             *casework.Resolved[casework.PersonSnapshot]       `json:"issuedBy,omitempty"`
	FineTier             string                                            `json:"fineTier,omitempty"`
	Links                map[string]string                                 `json:"links,omitempty"`
}

// CreateCommand creates a case from an entity-specific draft payload
type CreateCommand struct {
	PrincipalID string
	Entity      casework.EntityType
	Draft       json.RawMessage
}

// TransitionCommand requests one state machine step
type TransitionCommand struct {
	PrincipalID string
	Entity      casework.EntityType
	ID          uuid.UUID
	Transition  casework.Transition
	Input       casework.TransitionInput
}

// QueryCommand selects cases by a single field comparison
type QueryCommand struct {
	PrincipalID string
	Entity      casework.EntityType
	Field       string
	Op          casework.QueryOp
	Value       any
}

// TransitionOption is a transition available from the current status,
// together with whether the caller may take it
type TransitionOption struct {
	Transition casework.Transition `json:"transition"`
	Allowed    bool                `json:"allowed"`
	Reason     policy.DenyReason   `json:"reason,omitempty"`
}
