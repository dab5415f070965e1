package fixture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/satishbabariya/seedgraph/internal/debug"
	"github.com/satishbabariya/seedgraph/schema"
	"github.com/satishbabariya/seedgraph/store"
)

// Report summarizes a load.
type Report struct {
	Objects  int // objects created
	Skipped  int // specs already present in the store
	Fixtures int
	Order    []SpecRef
}

// Add accumulates another report into r.
func (r *Report) Add(o Report) {
	r.Objects += o.Objects
	r.Skipped += o.Skipped
	r.Fixtures += o.Fixtures
	r.Order = append(r.Order, o.Order...)
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// SkipExisting reuses objects whose primary key is already in the store
// instead of creating them again.
func SkipExisting(skip bool) ResolverOption {
	return func(r *Resolver) { r.skipExisting = skip }
}

// WithLogger sets the logger. It defaults to the debug logger.
func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.log = l }
}

// Resolver materializes batches of fixtures into a store.
type Resolver struct {
	store        store.Store
	skipExisting bool
	log          *slog.Logger
}

// NewResolver creates a resolver writing to s.
func NewResolver(s store.Store, opts ...ResolverOption) *Resolver {
	r := &Resolver{store: s}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = debug.Component("resolver")
	}
	return r
}

// Load loads fixtures into s as one batch.
func Load(ctx context.Context, s store.Store, fixtures ...*Fixture) (Report, error) {
	return NewResolver(s).Load(ctx, fixtures...)
}

// Plan returns the order Load would create the specs of fixtures in,
// without touching the store.
func (r *Resolver) Plan(fixtures ...*Fixture) ([]*ObjectSpec, error) {
	g, err := BuildGraph(fixtures...)
	if err != nil {
		return nil, err
	}
	return g.Order(), nil
}

// Load creates every spec of fixtures, dependencies first, and attaches
// their many-to-many relations. The fixtures cannot be added to afterwards.
// Nothing is written if the batch has duplicate keys or a cycle. Any later
// failure stops the load; objects created before it stay in the store
// unless the caller runs Load inside a transaction.
func (r *Resolver) Load(ctx context.Context, fixtures ...*Fixture) (Report, error) {
	for _, f := range fixtures {
		if f != nil {
			f.seal()
		}
	}

	g, err := BuildGraph(fixtures...)
	if err != nil {
		return Report{}, err
	}
	r.log.Debug("dependency graph built", "fixtures", len(g.fixtures), "objects", g.Len(), "edges", g.Edges())

	rep := Report{Fixtures: len(g.fixtures)}
	created := make(map[*ObjectSpec]store.Object, g.Len())
	for _, spec := range g.order {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if err := r.materialize(ctx, g, spec, created); err != nil {
			return rep, err
		}
		if spec.state == Skipped {
			rep.Skipped++
			continue
		}
		rep.Objects++
		rep.Order = append(rep.Order, spec.Ref())
	}
	return rep, nil
}

type pendingMany struct {
	field   *schema.Field
	targets []store.Object
}

func (r *Resolver) materialize(ctx context.Context, g *Graph, spec *ObjectSpec, created map[*ObjectSpec]store.Object) error {
	model := spec.Model()

	if r.skipExisting {
		existing, err := r.store.LookupByPK(ctx, model, spec.pk)
		switch {
		case err == nil:
			created[spec] = existing
			spec.state = Skipped
			r.log.Debug("already present", "model", model.Name, "pk", spec.pk)
			return nil
		case !errors.Is(err, store.ErrNotFound):
			return &PersistenceError{Op: "lookup", Entity: model.Name, PK: spec.pk, Err: err}
		}
	}

	values := make([]store.Value, 0, len(spec.fields))
	var pending []pendingMany
	for _, fv := range spec.fields {
		switch v := fv.Value.(type) {
		case Literal:
			values = append(values, store.Value{Field: fv.Field, Value: v.V})
		case Ref:
			obj, err := r.resolve(ctx, g, spec, fv.Field, v, created)
			if err != nil {
				return err
			}
			values = append(values, store.Value{Field: fv.Field, Value: obj})
		case Many:
			targets := make([]store.Object, 0, len(v))
			seen := make(map[any]bool, len(v))
			for _, ref := range v {
				obj, err := r.resolve(ctx, g, spec, fv.Field, ref, created)
				if err != nil {
					return err
				}
				// A target named twice is attached once, at its first position.
				if pk := store.NormalizeKey(obj.PK()); store.Comparable(pk) {
					if seen[pk] {
						continue
					}
					seen[pk] = true
				}
				targets = append(targets, obj)
			}
			pending = append(pending, pendingMany{field: fv.Field, targets: targets})
		}
	}

	obj, err := r.store.Create(ctx, model, spec.pk, values, spec.Raw())
	if err != nil {
		return &PersistenceError{Op: "create", Entity: model.Name, PK: spec.pk, Err: err}
	}
	created[spec] = obj
	spec.state = Created
	r.log.Debug("created", "model", model.Name, "pk", spec.pk, "raw", spec.Raw())

	for _, p := range pending {
		if len(p.targets) == 0 {
			continue
		}
		if err := r.store.AttachMany(ctx, obj, model, p.field, p.targets); err != nil {
			return &PersistenceError{Op: "attach", Entity: model.Name, PK: spec.pk, Field: p.field.Name, Err: err}
		}
		r.log.Debug("attached", "model", model.Name, "pk", spec.pk, "field", p.field.Name, "count", len(p.targets))
	}
	if len(pending) > 0 {
		spec.state = Attached
	}
	return nil
}

func (r *Resolver) resolve(ctx context.Context, g *Graph, spec *ObjectSpec, field *schema.Field, ref Ref, created map[*ObjectSpec]store.Object) (store.Object, error) {
	target := field.Relation.Model()
	if t, ok := ref.Token(); ok {
		if dep, internal := g.Lookup(t); internal {
			obj, done := created[dep]
			if !done {
				return nil, fmt.Errorf("fixture: %s is needed by %s.%s before it was created", dep, spec, field.Name)
			}
			return obj, nil
		}
		target = t.Model()
	}

	key := ref.key
	if key.kind == KeyObject {
		if target != nil && key.object.Model() != target.Name {
			return nil, usageErrorf("%s.%s expects %s, got %s", spec, field.Name, target.Name, key)
		}
		return key.object, nil
	}

	if target == nil {
		return nil, usageErrorf("%s.%s: model %q is not linked; register both models in a schema.Registry",
			spec, field.Name, field.Relation.Target)
	}

	var (
		obj store.Object
		err error
	)
	switch key.kind {
	case KeyNatural:
		if len(target.NaturalKey) == 0 {
			return nil, usageErrorf("%s.%s: %s has no natural key", spec, field.Name, target.Name)
		}
		if len(key.natural) != len(target.NaturalKey) {
			return nil, usageErrorf("%s.%s: natural key %s of %s needs %d values", spec, field.Name, key, target.Name, len(target.NaturalKey))
		}
		obj, err = r.store.LookupByNaturalKey(ctx, target, key.natural)
	default:
		obj, err = r.store.LookupByPK(ctx, target, key.pk)
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, &UnresolvedReferenceError{Entity: target.Name, Key: key, Field: field.Name, Owner: spec.Ref(), Err: err}
	case err != nil:
		return nil, &PersistenceError{Op: "lookup", Entity: target.Name, PK: key, Field: field.Name, Err: err}
	}
	return obj, nil
}
