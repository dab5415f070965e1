// Package discovery keeps track of named fixture modules and maps the
// labels given to loaddata onto them.
//
// Fixtures are grouped into modules, and modules belong either to an app
// or to a standalone fixture package. Application code registers its
// modules from init functions:
//
//	var companies = fixture.New(models.Company)
//
//	func init() {
//		discovery.Register("staff", "people", companies, employees)
//	}
//
// after which "staff", "staff.people" and "people" all name that module.
package discovery

import (
	"fmt"
	"strings"
	"sync"

	"github.com/satishbabariya/seedgraph/fixture"
	"github.com/satishbabariya/seedgraph/legacy"
)

// InitialData is the module name loaded by LoadInitialData and skipped when
// a whole app is named.
const InitialData = "initial_data"

// Module is a named group of fixtures.
type Module struct {
	Owner    string // app or package name
	Name     string
	Fixtures []*fixture.Fixture
}

// Label returns "owner.name".
func (m *Module) Label() string { return m.Owner + "." + m.Name }

type owner struct {
	name    string
	modules []*Module
}

func (o *owner) module(name string) *Module {
	for _, m := range o.modules {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Registry holds apps and fixture packages with their modules, in
// registration order.
type Registry struct {
	mu       sync.RWMutex
	apps     []*owner
	packages []*owner
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry { return &Registry{} }

// Default is the registry used by the package-level functions.
var Default = NewRegistry()

// Register adds fixtures to a module of the Default registry.
func Register(app, module string, fixtures ...*fixture.Fixture) {
	Default.Register(app, module, fixtures...)
}

// RegisterApp declares an app in the Default registry.
func RegisterApp(app string) { Default.RegisterApp(app) }

// RegisterPackage adds fixtures to a module of a standalone package in the
// Default registry.
func RegisterPackage(pkg, module string, fixtures ...*fixture.Fixture) {
	Default.RegisterPackage(pkg, module, fixtures...)
}

func find(list []*owner, name string) *owner {
	for _, o := range list {
		if o.name == name {
			return o
		}
	}
	return nil
}

func add(list *[]*owner, name, module string, fixtures []*fixture.Fixture) {
	o := find(*list, name)
	if o == nil {
		o = &owner{name: name}
		*list = append(*list, o)
	}
	if module == "" {
		return
	}
	m := o.module(module)
	if m == nil {
		m = &Module{Owner: name, Name: module}
		o.modules = append(o.modules, m)
	}
	m.Fixtures = append(m.Fixtures, fixtures...)
}

// RegisterApp declares an app. Apps without modules can still be named in
// labels, which then fail with a usage error.
func (r *Registry) RegisterApp(app string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	add(&r.apps, app, "", nil)
}

// Register adds fixtures to module of app, creating both as needed.
// Registering the same module again appends to it.
func (r *Registry) Register(app, module string, fixtures ...*fixture.Fixture) {
	r.mu.Lock()
	defer r.mu.Unlock()
	add(&r.apps, app, module, fixtures)
}

// RegisterPackage adds fixtures to module of a standalone fixture package.
// Package modules are found by bare module name and by InitialData, never
// by an app label.
func (r *Registry) RegisterPackage(pkg, module string, fixtures ...*fixture.Fixture) {
	r.mu.Lock()
	defer r.mu.Unlock()
	add(&r.packages, pkg, module, fixtures)
}

// Apps returns the registered app names.
func (r *Registry) Apps() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.apps))
	for i, a := range r.apps {
		out[i] = a.name
	}
	return out
}

// Module returns a module of app.
func (r *Registry) Module(app, name string) (*Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if o := find(r.apps, app); o != nil {
		if m := o.module(name); m != nil {
			return m, true
		}
	}
	return nil, false
}

// Kind says how a label is loaded.
type Kind int

const (
	// Legacy labels name serialized fixture files.
	Legacy Kind = iota
	// Instance labels are fixtures passed directly.
	Instance
	// ModuleKind labels name a single fixture module.
	ModuleKind
	// App labels name every module of an app.
	App
)

func (k Kind) String() string {
	switch k {
	case Legacy:
		return "legacy"
	case Instance:
		return "instance"
	case ModuleKind:
		return "module"
	case App:
		return "app"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Handler is one resolved label. A label may produce several handlers.
type Handler struct {
	Label    string
	Kind     Kind
	Module   *Module // set for ModuleKind
	Fixtures []*fixture.Fixture
}

func (h Handler) String() string {
	return fmt.Sprintf("%s (%s, %d fixtures)", h.Label, h.Kind, len(h.Fixtures))
}

func usage(format string, args ...any) error {
	return &fixture.UsageError{Msg: fmt.Sprintf(format, args...)}
}

// Resolve maps labels onto handlers in label order. A label is one of:
//
//   - a *fixture.Fixture, loaded as is
//   - a *Module, loaded as is
//   - "name.<format>", a serialized file for the legacy loader
//   - "app", every module of app except initial_data
//   - "app.module", one module of app
//   - any other string, which is handed to the legacy loader and also names
//     every app or package module called that
func (r *Registry) Resolve(labels ...any) ([]Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Handler
	for _, label := range labels {
		switch l := label.(type) {
		case *fixture.Fixture:
			if l == nil {
				return nil, usage("nil fixture label")
			}
			out = append(out, Handler{Label: l.Name(), Kind: Instance, Fixtures: []*fixture.Fixture{l}})
		case *Module:
			if l == nil {
				return nil, usage("nil module label")
			}
			out = append(out, moduleHandler(l.Label(), l))
		case string:
			hs, err := r.resolveString(l)
			if err != nil {
				return nil, err
			}
			out = append(out, hs...)
		default:
			return nil, usage("invalid fixture label %v (%T)", label, label)
		}
	}
	return out, nil
}

func moduleHandler(label string, m *Module) Handler {
	return Handler{Label: label, Kind: ModuleKind, Module: m, Fixtures: append([]*fixture.Fixture(nil), m.Fixtures...)}
}

func (r *Registry) resolveString(label string) ([]Handler, error) {
	if label == "" {
		return nil, usage("empty fixture label")
	}
	parts := strings.Split(label, ".")
	if legacy.IsFormat(parts[len(parts)-1]) && len(parts) > 1 {
		return []Handler{{Label: label, Kind: Legacy}}, nil
	}

	if app := find(r.apps, parts[0]); app != nil {
		switch len(parts) {
		case 1:
			if len(app.modules) == 0 {
				return nil, usage("the %q app does not have any fixture modules", app.name)
			}
			h := Handler{Label: label, Kind: App}
			seen := map[*fixture.Fixture]bool{}
			for _, m := range app.modules {
				if m.Name == InitialData {
					continue
				}
				for _, f := range m.Fixtures {
					if !seen[f] {
						seen[f] = true
						h.Fixtures = append(h.Fixtures, f)
					}
				}
			}
			return []Handler{h}, nil
		case 2:
			m := app.module(parts[1])
			if m == nil {
				return nil, usage("no module named %q in %q", parts[1], app.name)
			}
			return []Handler{moduleHandler(label, m)}, nil
		default:
			return nil, usage(`fixture labels referring to apps must be one of "appname" or "appname.fixturename", got %q`, label)
		}
	}

	out := []Handler{{Label: label, Kind: Legacy}}
	if len(parts) == 1 {
		for _, list := range [][]*owner{r.apps, r.packages} {
			for _, o := range list {
				if m := o.module(label); m != nil {
					out = append(out, moduleHandler(label, m))
				}
			}
		}
	}
	return out, nil
}

// InitialData returns the fixtures of every initial_data module, apps
// first and then packages, each in registration order.
func (r *Registry) InitialData() []*fixture.Fixture {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*fixture.Fixture
	for _, list := range [][]*owner{r.apps, r.packages} {
		for _, o := range list {
			if m := o.module(InitialData); m != nil {
				out = append(out, m.Fixtures...)
			}
		}
	}
	return out
}
