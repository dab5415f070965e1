// Package fixture declares objects to load into a store and resolves the
// relations between them.
//
// A Fixture holds object specs for one model. Specs refer to each other
// through tokens created by FK, O2O and M2M on the target fixture. When a
// batch of fixtures is loaded, tokens that name a spec in the batch become
// dependency edges, the specs are created in dependency order and
// many-to-many relations are attached once both ends exist. Tokens that
// match nothing in the batch, and bare keys, are looked up in the store.
package fixture

import (
	"fmt"

	"github.com/satishbabariya/seedgraph/schema"
	"github.com/satishbabariya/seedgraph/store"
)

// State tracks a spec through a load.
type State int

const (
	Pending State = iota
	Created
	Attached
	Skipped
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Attached:
		return "attached"
	case Skipped:
		return "skipped"
	default:
		return "pending"
	}
}

// ObjectSpec is the declaration of one object to create.
type ObjectSpec struct {
	fixture *Fixture
	pk      any
	fields  []FieldValue
	raw     *bool
	state   State
}

func (s *ObjectSpec) Fixture() *Fixture    { return s.fixture }
func (s *ObjectSpec) Model() *schema.Model { return s.fixture.model }
func (s *ObjectSpec) PK() any              { return s.pk }
func (s *ObjectSpec) State() State         { return s.state }

// Fields returns the classified field values in declaration order.
func (s *ObjectSpec) Fields() []FieldValue {
	return append([]FieldValue(nil), s.fields...)
}

// Raw reports whether the spec is created without save hooks. It defaults
// to the fixture's setting.
func (s *ObjectSpec) Raw() bool {
	if s.raw != nil {
		return *s.raw
	}
	return s.fixture.raw
}

// SetRaw overrides the fixture's raw setting for this spec.
func (s *ObjectSpec) SetRaw(raw bool) error {
	if s.fixture.sealed {
		return usageErrorf("%s: fixture %q has already been loaded", s.Ref(), s.fixture.Name())
	}
	s.raw = &raw
	return nil
}

// Ref returns the spec's entity and primary key.
func (s *ObjectSpec) Ref() SpecRef {
	return SpecRef{Entity: s.fixture.model.Name, PK: s.pk}
}

func (s *ObjectSpec) String() string { return s.Ref().String() }

// Option configures a Fixture.
type Option func(*Fixture)

// Raw creates the fixture's objects without running save hooks.
func Raw() Option {
	return func(f *Fixture) { f.raw = true }
}

// Named sets the name used in error messages and reports.
func Named(name string) Option {
	return func(f *Fixture) { f.name = name }
}

// Fixture is an ordered set of object specs for one model.
type Fixture struct {
	model  *schema.Model
	name   string
	raw    bool
	specs  []*ObjectSpec
	byPK   map[any]*ObjectSpec
	sealed bool
}

// New creates an empty fixture for model.
func New(model *schema.Model, opts ...Option) *Fixture {
	if model == nil {
		panic("fixture: New called with a nil model")
	}
	f := &Fixture{model: model, byPK: map[any]*ObjectSpec{}}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fixture) Model() *schema.Model { return f.model }
func (f *Fixture) IsRaw() bool          { return f.raw }
func (f *Fixture) Len() int             { return len(f.specs) }

// Name returns the fixture name, defaulting to the model name.
func (f *Fixture) Name() string {
	if f.name != "" {
		return f.name
	}
	return f.model.Name
}

// Specs returns the specs in insertion order.
func (f *Fixture) Specs() []*ObjectSpec {
	return append([]*ObjectSpec(nil), f.specs...)
}

// Spec returns the spec declared with pk.
func (f *Fixture) Spec(pk any) (*ObjectSpec, bool) {
	if !store.Comparable(pk) {
		return nil, false
	}
	s, ok := f.byPK[store.NormalizeKey(pk)]
	return s, ok
}

// Add declares an object with primary key pk.
func (f *Fixture) Add(pk any, fields ...Field) error {
	if f.sealed {
		return usageErrorf("cannot add %s(%v) to fixture %q after it has been loaded", f.model.Name, pk, f.Name())
	}
	if pk == nil {
		return usageErrorf("%s: objects in fixture %q need a primary key", f.model.Name, f.Name())
	}
	if !store.Comparable(pk) {
		return usageErrorf("%s: primary key of type %T is not comparable", f.model.Name, pk)
	}
	norm := store.NormalizeKey(pk)
	if _, dup := f.byPK[norm]; dup {
		return &DuplicateKeyError{Entity: f.model.Name, PK: pk, First: f.Name(), Second: f.Name()}
	}

	spec := &ObjectSpec{fixture: f, pk: pk, fields: make([]FieldValue, 0, len(fields))}
	seen := make(map[string]bool, len(fields))
	for _, in := range fields {
		if seen[in.Name] {
			return usageErrorf("%s(%v): field %q given twice", f.model.Name, pk, in.Name)
		}
		seen[in.Name] = true
		fv, err := classify(f.model, in)
		if err != nil {
			return err
		}
		spec.fields = append(spec.fields, fv)
	}

	f.specs = append(f.specs, spec)
	f.byPK[norm] = spec
	return nil
}

// AddFields is Add with a map of field values.
func (f *Fixture) AddFields(pk any, fields Fields) error {
	return f.Add(pk, fields.list()...)
}

// MustAdd is Add that panics on error. It returns f for chaining in
// package-level declarations.
func (f *Fixture) MustAdd(pk any, fields ...Field) *Fixture {
	if err := f.Add(pk, fields...); err != nil {
		panic(err)
	}
	return f
}

func (f *Fixture) seal() { f.sealed = true }

func (f *Fixture) String() string {
	return fmt.Sprintf("fixture %q (%s, %d objects)", f.Name(), f.model.Name, len(f.specs))
}
