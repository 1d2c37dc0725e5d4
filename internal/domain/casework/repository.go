package casework

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/scaregistry/backend/internal/domain/shared"
)

// Fields is a case document's field map, keyed by JSON field name
type Fields map[string]any

// FieldDeltas are the top-level fields to write. A nil value clears the field.
type FieldDeltas map[string]any

// QueryOp is a comparison operator for QueryByField
type QueryOp string

const (
	OpEq  QueryOp = "=="
	OpNe  QueryOp = "!="
	OpLt  QueryOp = "<"
	OpLte QueryOp = "<="
	OpGt  QueryOp = ">"
	OpGte QueryOp = ">="
	OpIn  QueryOp = "in"
)

// IsValid checks if the operator is supported
func (op QueryOp) IsValid() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte, OpIn:
		return true
	}
	return false
}

// Document is a stored case
type Document struct {
	Entity    EntityType
	ID        uuid.UUID
	Version   int
	Status    string
	Fields    Fields
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CaseRepository is the document store port for cases.
//
// GetByID returns shared.ErrNotFound for a missing document. Update fails with
// shared.ErrConflict when the stored version differs from expectedVersion.
// Events are persisted to the outbox atomically with the document write.
type CaseRepository interface {
	GetByID(ctx context.Context, entity EntityType, id uuid.UUID) (*Document, error)
	QueryByField(ctx context.Context, entity EntityType, field string, op QueryOp, value any) ([]*Document, error)
	Update(ctx context.Context, entity EntityType, id uuid.UUID, expectedVersion int, deltas FieldDeltas, events ...shared.DomainEvent) error
	Create(ctx context.Context, entity EntityType, fields Fields, events ...shared.DomainEvent) (uuid.UUID, error)
}
