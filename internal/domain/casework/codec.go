package casework

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/scaregistry/backend/internal/domain/shared"
)

type rooted interface {
	root() *shared.BaseAggregateRoot
}

func (r *Registration) root() *shared.BaseAggregateRoot    { return &r.BaseAggregateRoot }
func (i *Inspection) root() *shared.BaseAggregateRoot      { return &i.BaseAggregateRoot }
func (l *OperatorLicense) root() *shared.BaseAggregateRoot { return &l.BaseAggregateRoot }
func (f *Infringement) root() *shared.BaseAggregateRoot    { return &f.BaseAggregateRoot }

// Encode flattens a case into document fields. The id is written under the
// entity's id field; version lives outside the fields.
func Encode(c Case) (Fields, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", c.Entity(), err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	fields := Fields{}
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("encode %s: %w", c.Entity(), err)
	}
	fields[c.Entity().IDField()] = c.GetID().String()
	return fields, nil
}

// Decode rebuilds the aggregate stored in doc
func Decode(doc *Document) (Case, error) {
	c, err := NewEmptyCase(doc.Entity)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(doc.Fields)
	if err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", doc.Entity, doc.ID, err)
	}
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", doc.Entity, doc.ID, err)
	}
	base := c.(rooted).root()
	base.ID = doc.ID
	base.Version = doc.Version
	if base.CreatedAt.IsZero() {
		base.CreatedAt = doc.CreatedAt
	}
	if base.UpdatedAt.IsZero() {
		base.UpdatedAt = doc.UpdatedAt
	}
	return c, nil
}

// DocumentID reads the case id from fields, returning uuid.Nil when absent
func DocumentID(entity EntityType, fields Fields) uuid.UUID {
	s, _ := fields[entity.IDField()].(string)
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// Diff returns the top-level fields that differ between before and after.
// Fields missing from after are returned with a nil value.
func Diff(before, after Fields) FieldDeltas {
	deltas := FieldDeltas{}
	for k, v := range after {
		if old, ok := before[k]; !ok || !reflect.DeepEqual(old, v) {
			deltas[k] = v
		}
	}
	for k := range before {
		if _, ok := after[k]; !ok {
			deltas[k] = nil
		}
	}
	return deltas
}

// Merge applies deltas to fields in place, deleting cleared fields
func Merge(fields Fields, deltas FieldDeltas) Fields {
	if fields == nil {
		fields = Fields{}
	}
	for k, v := range deltas {
		if v == nil {
			delete(fields, k)
			continue
		}
		fields[k] = v
	}
	return fields
}

// FieldValue converts v into the form it takes inside document fields
func FieldValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// FieldAs decodes the field named key into v. It reports false when the field
// is absent or null.
func FieldAs(fields Fields, key string, v any) (bool, error) {
	value, ok := fields[key]
	if !ok || value == nil {
		return false, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("field %s: %w", key, err)
	}
	return true, nil
}
