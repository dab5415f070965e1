// Package memstore is an in-memory store.Store. It backs dry runs and tests.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/satishbabariya/seedgraph/schema"
	"github.com/satishbabariya/seedgraph/store"
)

type linkKey struct {
	model string
	pk    any
	field string
}

type table struct {
	rows  map[any]*store.Record
	order []any
}

type state struct {
	tables  map[string]*table
	links   map[linkKey][]any
	created []string
}

func (s *state) clone() *state {
	c := &state{
		tables:  make(map[string]*table, len(s.tables)),
		links:   make(map[linkKey][]any, len(s.links)),
		created: append([]string(nil), s.created...),
	}
	for name, t := range s.tables {
		ct := &table{rows: make(map[any]*store.Record, len(t.rows)), order: append([]any(nil), t.order...)}
		for k, r := range t.rows {
			ct.rows[k] = store.NewRecord(r.Model(), r.PK(), r.Values())
		}
		c.tables[name] = ct
	}
	for k, v := range s.links {
		c.links[k] = append([]any(nil), v...)
	}
	return c
}

// Option configures a Store.
type Option func(*Store)

// WithHooks installs save hooks run for non-raw creates.
func WithHooks(hooks ...store.Hook) Option {
	return func(s *Store) {
		for _, h := range hooks {
			s.hooks.Add(h)
		}
	}
}

// Store keeps records per model keyed by normalized primary key.
type Store struct {
	mu    sync.Mutex
	st    *state
	hooks *store.HookChain
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		st:    &state{tables: map[string]*table{}, links: map[linkKey][]any{}},
		hooks: store.NewHookChain(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hooks returns the store's hook chain.
func (s *Store) Hooks() *store.HookChain { return s.hooks }

func (s *Store) table(model string) *table {
	t, ok := s.st.tables[model]
	if !ok {
		t = &table{rows: map[any]*store.Record{}}
		s.st.tables[model] = t
	}
	return t
}

// Create implements store.Store.
func (s *Store) Create(ctx context.Context, model *schema.Model, pk any, values []store.Value, raw bool) (store.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	insert := func(vs []store.Value) (store.Object, error) {
		return s.insert(model, pk, vs)
	}
	if raw {
		return insert(values)
	}
	return s.hooks.Save(ctx, model, pk, values, insert)
}

func (s *Store) insert(model *schema.Model, pk any, values []store.Value) (store.Object, error) {
	if !store.Comparable(pk) {
		return nil, fmt.Errorf("memstore: %s primary key of type %T is not comparable", model.Name, pk)
	}
	fields := make(map[string]any, len(values))
	for _, v := range values {
		if v.Field.IsMulti() {
			return nil, fmt.Errorf("memstore: %s.%s is multi-valued", model.Name, v.Field.Name)
		}
		fields[v.Field.Name] = v.Value
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(model.Name)
	k := store.NormalizeKey(pk)
	if _, dup := t.rows[k]; dup {
		return nil, fmt.Errorf("memstore: %s(%v) already exists", model.Name, pk)
	}
	rec := store.NewRecord(model.Name, pk, fields)
	t.rows[k] = rec
	t.order = append(t.order, k)
	s.st.created = append(s.st.created, rec.String())
	return rec, nil
}

// Seed inserts a record directly, bypassing hooks. It is meant for setting
// up objects that exist before a load.
func (s *Store) Seed(model *schema.Model, pk any, fields map[string]any) (*store.Record, error) {
	values := make([]store.Value, 0, len(fields))
	for name, v := range fields {
		f, ok := model.Field(name)
		if !ok {
			return nil, fmt.Errorf("memstore: %s has no field %q", model.Name, name)
		}
		values = append(values, store.Value{Field: f, Value: v})
	}
	obj, err := s.insert(model, pk, values)
	if err != nil {
		return nil, err
	}
	return obj.(*store.Record), nil
}

// LookupByPK implements store.Store.
func (s *Store) LookupByPK(ctx context.Context, model *schema.Model, pk any) (store.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !store.Comparable(pk) {
		return nil, store.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.st.tables[model.Name]
	if !ok {
		return nil, fmt.Errorf("memstore: %s(%v): %w", model.Name, pk, store.ErrNotFound)
	}
	rec, ok := t.rows[store.NormalizeKey(pk)]
	if !ok {
		return nil, fmt.Errorf("memstore: %s(%v): %w", model.Name, pk, store.ErrNotFound)
	}
	return rec, nil
}

// LookupByNaturalKey implements store.Store. A match needs every natural key
// field equal; related objects compare by primary key.
func (s *Store) LookupByNaturalKey(ctx context.Context, model *schema.Model, key []any) (store.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(model.NaturalKey) == 0 || len(key) != len(model.NaturalKey) {
		return nil, fmt.Errorf("memstore: %s natural key needs %d values, got %d", model.Name, len(model.NaturalKey), len(key))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.st.tables[model.Name]; ok {
		for _, k := range t.order {
			rec := t.rows[k]
			if matches(rec, model.NaturalKey, key) {
				return rec, nil
			}
		}
	}
	return nil, fmt.Errorf("memstore: %s%v: %w", model.Name, key, store.ErrNotFound)
}

func matches(rec *store.Record, fields []string, key []any) bool {
	for i, name := range fields {
		v, ok := rec.Get(name)
		if !ok || !store.KeysEqual(store.RelatedPK(v), store.RelatedPK(key[i])) {
			return false
		}
	}
	return true
}

// AttachMany implements store.Store. Attaching a target twice is a no-op.
func (s *Store) AttachMany(ctx context.Context, owner store.Object, model *schema.Model, field *schema.Field, targets []store.Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !field.IsMulti() {
		return fmt.Errorf("memstore: %s.%s is not multi-valued", model.Name, field.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.tables[model.Name].rowOf(owner.PK()); !ok {
		return fmt.Errorf("memstore: attach to %s(%v): %w", model.Name, owner.PK(), store.ErrNotFound)
	}
	lk := linkKey{model: model.Name, pk: store.NormalizeKey(owner.PK()), field: field.Name}
	for _, t := range targets {
		if t.Model() != field.Relation.Target {
			return fmt.Errorf("memstore: %s.%s expects %s, got %s", model.Name, field.Name, field.Relation.Target, t.Model())
		}
		pk := store.NormalizeKey(t.PK())
		if !contains(s.st.links[lk], pk) {
			s.st.links[lk] = append(s.st.links[lk], pk)
		}
	}
	return nil
}

func (t *table) rowOf(pk any) (*store.Record, bool) {
	if t == nil || !store.Comparable(pk) {
		return nil, false
	}
	r, ok := t.rows[store.NormalizeKey(pk)]
	return r, ok
}

func contains(xs []any, x any) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// InTx implements store.Transactional. fn runs against a copy of the data
// which replaces the store's data only if fn succeeds.
func (s *Store) InTx(ctx context.Context, fn func(store.Store) error) error {
	s.mu.Lock()
	tx := &Store{st: s.st.clone(), hooks: s.hooks}
	s.mu.Unlock()

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.st = tx.st
	s.mu.Unlock()
	return nil
}

// Get returns the record with the given primary key.
func (s *Store) Get(model string, pk any) (*store.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.tables[model].rowOf(pk)
}

// Count returns the number of records of model.
func (s *Store) Count(model string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.st.tables[model]; ok {
		return len(t.rows)
	}
	return 0
}

// Related returns the primary keys attached to a multi-valued field, in
// attach order.
func (s *Store) Related(model string, pk any, field string) []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !store.Comparable(pk) {
		return nil
	}
	return append([]any(nil), s.st.links[linkKey{model: model, pk: store.NormalizeKey(pk), field: field}]...)
}

// Created returns "Model(pk)" for every record in creation order.
func (s *Store) Created() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.st.created...)
}
