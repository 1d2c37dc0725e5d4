package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/scaregistry/backend/internal/domain/casework"
)

// CaseDocumentModel stores one case as a JSON document. Status and version are
// lifted into columns so that sweeps and optimistic writes do not parse JSON.
type CaseDocumentModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Entity    string    `gorm:"type:varchar(32);not null;index:idx_case_entity_status,priority:1"`
	Status    string    `gorm:"type:varchar(32);not null;index:idx_case_entity_status,priority:2"`
	Version   int       `gorm:"not null"`
	Fields    string    `gorm:"type:jsonb;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CaseDocumentModel) TableName() string {
	return "case_documents"
}

// ToDomain decodes the stored fields into a document
func (m *CaseDocumentModel) ToDomain() (*casework.Document, error) {
	fields, err := DecodeFields(m.Fields)
	if err != nil {
		return nil, fmt.Errorf("case %s %s: %w", m.Entity, m.ID, err)
	}
	return &casework.Document{
		Entity:    casework.EntityType(m.Entity),
		ID:        m.ID,
		Version:   m.Version,
		Status:    m.Status,
		Fields:    fields,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}, nil
}

// FromDomain populates the model from a document
func (m *CaseDocumentModel) FromDomain(doc *casework.Document) error {
	raw, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("case %s %s: %w", doc.Entity, doc.ID, err)
	}
	m.ID = doc.ID
	m.Entity = string(doc.Entity)
	m.Status = doc.Status
	m.Version = doc.Version
	m.Fields = string(raw)
	m.CreatedAt = doc.CreatedAt
	m.UpdatedAt = doc.UpdatedAt
	return nil
}

// DecodeFields parses stored JSON keeping numbers as json.Number, the same
// shape the casework codec produces.
func DecodeFields(raw string) (casework.Fields, error) {
	fields := casework.Fields{}
	if raw == "" {
		return fields, nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}
