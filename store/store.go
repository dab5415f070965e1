// Package store defines the persistence contract the fixture resolver
// writes through, together with the record and hook types shared by the
// bundled backends.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/satishbabariya/seedgraph/schema"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("store: object not found")

// Object is a persisted entity instance.
type Object interface {
	Model() string
	PK() any
	Get(field string) (any, bool)
}

// Value assigns a single-valued field. Value holds a scalar, nil, or an
// Object for a ToOne relation.
type Value struct {
	Field *schema.Field
	Value any
}

// Store is the persistence layer fixtures are materialized into.
type Store interface {
	// Create inserts one object. When raw is set, save hooks are skipped.
	Create(ctx context.Context, model *schema.Model, pk any, values []Value, raw bool) (Object, error)
	// LookupByPK returns ErrNotFound when no object has the given pk.
	LookupByPK(ctx context.Context, model *schema.Model, pk any) (Object, error)
	// LookupByNaturalKey matches key against model.NaturalKey in order.
	LookupByNaturalKey(ctx context.Context, model *schema.Model, key []any) (Object, error)
	// AttachMany adds targets to a multi-valued field of owner.
	AttachMany(ctx context.Context, owner Object, model *schema.Model, field *schema.Field, targets []Object) error
}

// Transactional is implemented by stores that can run a unit of work
// atomically. fn receives a Store bound to the transaction.
type Transactional interface {
	InTx(ctx context.Context, fn func(Store) error) error
}

// Record is the Object implementation used by the bundled stores.
type Record struct {
	model  string
	pk     any
	values map[string]any
}

// NewRecord builds a record. values is copied.
func NewRecord(model string, pk any, values map[string]any) *Record {
	r := &Record{model: model, pk: pk, values: make(map[string]any, len(values))}
	for k, v := range values {
		r.values[k] = v
	}
	return r
}

func (r *Record) Model() string { return r.model }
func (r *Record) PK() any       { return r.pk }

// Get returns a field value. ToOne fields hold either an Object or the raw
// foreign key, depending on how the record was loaded.
func (r *Record) Get(field string) (any, bool) {
	v, ok := r.values[field]
	return v, ok
}

// Set replaces a field value.
func (r *Record) Set(field string, v any) {
	r.values[field] = v
}

// Values returns a copy of the record's fields.
func (r *Record) Values() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

func (r *Record) String() string {
	return fmt.Sprintf("%s(%v)", r.model, r.pk)
}

// RelatedPK reduces a ToOne value to the key stored in the foreign key column.
func RelatedPK(v any) any {
	if o, ok := v.(Object); ok {
		return o.PK()
	}
	return v
}
