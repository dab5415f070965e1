package schema

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry holds a linked set of models. Relations are resolved against the
// registry when it is linked, so every relation target must be registered.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Model
	order  []string
}

// NewRegistry registers and links models.
func NewRegistry(models ...*Model) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Model)}
	for _, m := range models {
		if err := r.Register(m); err != nil {
			return nil, err
		}
	}
	if err := r.Link(); err != nil {
		return nil, err
	}
	return r, nil
}

// MustRegistry is NewRegistry that panics on error. It is intended for
// package-level model declarations.
func MustRegistry(models ...*Model) *Registry {
	r, err := NewRegistry(models...)
	if err != nil {
		panic(err)
	}
	return r
}

// Register adds a model without linking it.
func (r *Registry) Register(m *Model) error {
	if m == nil || m.Name == "" {
		return fmt.Errorf("schema: model without a name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byName == nil {
		r.byName = make(map[string]*Model)
	}
	if existing, ok := r.byName[m.Name]; ok && existing != m {
		return fmt.Errorf("schema: model %q already registered", m.Name)
	}
	if _, ok := r.byName[m.Name]; !ok {
		r.order = append(r.order, m.Name)
	}
	r.byName[m.Name] = m
	return nil
}

// Link resolves every relation target and validates natural keys.
func (r *Registry) Link() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var problems []string
	for _, name := range r.order {
		m := r.byName[name]
		for _, f := range m.Fields {
			if f.Relation == nil {
				continue
			}
			target, ok := r.byName[f.Relation.Target]
			if !ok {
				problems = append(problems, fmt.Sprintf("%s.%s: unknown model %q", m.Name, f.Name, f.Relation.Target))
				continue
			}
			f.Relation.target = target
		}
		for _, k := range m.NaturalKey {
			f, ok := m.Field(k)
			if !ok {
				problems = append(problems, fmt.Sprintf("%s: natural key field %q does not exist", m.Name, k))
			} else if f.IsMulti() {
				problems = append(problems, fmt.Sprintf("%s: natural key field %q is multi-valued", m.Name, k))
			}
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("schema: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Lookup returns the model registered under name.
func (r *Registry) Lookup(name string) (*Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byName[name]
	return m, ok
}

// Models returns the registered models in registration order.
func (r *Registry) Models() []*Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Model, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}
