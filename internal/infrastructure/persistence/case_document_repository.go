package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/scaregistry/backend/internal/domain/casework"
	"github.com/scaregistry/backend/internal/domain/shared"
	"github.com/scaregistry/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,63}$`)

// GormCaseRepository stores cases as JSON documents in case_documents.
// Each write is one row update guarded by the version column; the write's
// domain events go to the outbox in the same transaction.
type GormCaseRepository struct {
	db     *gorm.DB
	outbox shared.OutboxEventSaver
	now    func() time.Time
}

// NewGormCaseRepository creates the repository. outbox may be nil, in which
// case events are dropped.
func NewGormCaseRepository(db *gorm.DB, outbox shared.OutboxEventSaver) *GormCaseRepository {
	return &GormCaseRepository{db: db, outbox: outbox, now: time.Now}
}

func (r *GormCaseRepository) dialect() string {
	return r.db.Dialector.Name()
}

// GetByID loads one case document
func (r *GormCaseRepository) GetByID(ctx context.Context, entity casework.EntityType, id uuid.UUID) (*casework.Document, error) {
	var row models.CaseDocumentModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND entity = ?", id, string(entity)).
		First(&row).Error
	if err != nil {
		return nil, translateError(err)
	}
	return row.ToDomain()
}

// QueryByField filters documents of entity on a top-level field. The status
// field uses its indexed column; other fields are read from the JSON payload.
func (r *GormCaseRepository) QueryByField(ctx context.Context, entity casework.EntityType, field string, op casework.QueryOp, value any) ([]*casework.Document, error) {
	if !op.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("unsupported operator %q", op))
	}
	if !fieldNamePattern.MatchString(field) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("invalid field name %q", field))
	}

	cond, args, err := r.condition(field, op, value)
	if err != nil {
		return nil, err
	}

	var rows []models.CaseDocumentModel
	err = r.db.WithContext(ctx).
		Where("entity = ?", string(entity)).
		Where(cond, args...).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}

	docs := make([]*casework.Document, 0, len(rows))
	for i := range rows {
		doc, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// condition builds the WHERE fragment for one field comparison
func (r *GormCaseRepository) condition(field string, op casework.QueryOp, value any) (string, []any, error) {
	normalized, err := casework.FieldValue(value)
	if err != nil {
		return "", nil, shared.NewDomainError(shared.CodeInvalidInput, "query value is not serializable")
	}

	if op == casework.OpIn {
		list, ok := normalized.([]any)
		if !ok {
			return "", nil, shared.NewDomainError(shared.CodeInvalidInput, "the in operator needs a list value")
		}
		if len(list) == 0 {
			return "1 = 0", nil, nil
		}
		params := make([]any, len(list))
		for i, v := range list {
			params[i] = r.param(v)
		}
		return r.column(field, false) + " IN ?", []any{params}, nil
	}

	_, numeric := normalized.(json.Number)
	ordering := op != casework.OpEq && op != casework.OpNe
	sqlOp := string(op)
	switch op {
	case casework.OpEq:
		sqlOp = "="
	case casework.OpNe:
		sqlOp = "<>"
	}
	return fmt.Sprintf("%s %s ?", r.column(field, numeric && ordering), sqlOp), []any{r.param(normalized)}, nil
}

// column returns the SQL expression reading field. On postgres ->> yields
// text, so numeric range comparisons cast it.
func (r *GormCaseRepository) column(field string, numeric bool) string {
	if field == "status" {
		return "status"
	}
	if r.dialect() == "sqlite" {
		return fmt.Sprintf("json_extract(fields, '$.%s')", field)
	}
	if numeric {
		return fmt.Sprintf("(fields->>'%s')::numeric", field)
	}
	return fmt.Sprintf("fields->>'%s'", field)
}

// param converts a normalized JSON value to the form the dialect compares
// against: postgres ->> yields text, sqlite json_extract yields native types.
func (r *GormCaseRepository) param(v any) any {
	sqlite := r.dialect() == "sqlite"
	switch x := v.(type) {
	case json.Number:
		if !sqlite {
			return x.String()
		}
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case bool:
		if sqlite {
			if x {
				return 1
			}
			return 0
		}
		return strconv.FormatBool(x)
	case nil:
		return nil
	case string:
		return x
	default:
		raw, _ := json.Marshal(x)
		return string(raw)
	}
}

// Update merges deltas into the stored fields when the stored version still
// equals expectedVersion, bumps the version and saves events to the outbox.
func (r *GormCaseRepository) Update(ctx context.Context, entity casework.EntityType, id uuid.UUID, expectedVersion int, deltas casework.FieldDeltas, events ...shared.DomainEvent) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.CaseDocumentModel
		if err := tx.Where("id = ? AND entity = ?", id, string(entity)).First(&row).Error; err != nil {
			return err
		}
		if row.Version != expectedVersion {
			return shared.ErrConflict
		}

		fields, err := models.DecodeFields(row.Fields)
		if err != nil {
			return fmt.Errorf("case %s %s: %w", entity, id, err)
		}
		normalized, err := casework.FieldValue(deltas)
		if err != nil {
			return fmt.Errorf("encode deltas: %w", err)
		}
		delta, _ := normalized.(map[string]any)
		fields = casework.Merge(fields, casework.FieldDeltas(delta))
		raw, err := json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("encode fields: %w", err)
		}

		status := row.Status
		if s, ok := fields["status"].(string); ok {
			status = s
		}

		result := tx.Model(&models.CaseDocumentModel{}).
			Where("id = ? AND version = ?", id, expectedVersion).
			Updates(map[string]any{
				"fields":     string(raw),
				"status":     status,
				"version":    gorm.Expr("version + 1"),
				"updated_at": r.now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConflict
		}
		return r.saveEvents(ctx, tx, events)
	})
	return translateError(err)
}

// Create inserts a new document at version 1. The id comes from the entity's
// id field when present.
func (r *GormCaseRepository) Create(ctx context.Context, entity casework.EntityType, fields casework.Fields, events ...shared.DomainEvent) (uuid.UUID, error) {
	id := casework.DocumentID(entity, fields)
	if id == uuid.Nil {
		id = uuid.New()
	}
	stored := casework.Fields{}
	for k, v := range fields {
		stored[k] = v
	}
	stored[entity.IDField()] = id.String()
	status, _ := stored["status"].(string)

	now := r.now()
	row := &models.CaseDocumentModel{}
	if err := row.FromDomain(&casework.Document{
		Entity:    entity,
		ID:        id,
		Version:   1,
		Status:    status,
		Fields:    stored,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return uuid.Nil, err
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		return r.saveEvents(ctx, tx, events)
	})
	if err != nil {
		return uuid.Nil, translateError(err)
	}
	return id, nil
}

func (r *GormCaseRepository) saveEvents(ctx context.Context, tx *gorm.DB, events []shared.DomainEvent) error {
	if r.outbox == nil || len(events) == 0 {
		return nil
	}
	if err := r.outbox.SaveEvents(ctx, tx, events...); err != nil {
		return fmt.Errorf("save outbox events: %w", err)
	}
	return nil
}

var _ casework.CaseRepository = (*GormCaseRepository)(nil)
