package legacy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/satishbabariya/seedgraph/fixture"
	"github.com/satishbabariya/seedgraph/internal/debug"
	"github.com/satishbabariya/seedgraph/schema"
)

// Source finds fixture files in a set of directories and converts them
// into fixtures for the models of Schema.
type Source struct {
	Fs     afero.Fs
	Dirs   []string
	Schema *schema.Registry

	// Concurrency bounds the number of files decoded at once. Zero means
	// four.
	Concurrency int

	Logger *slog.Logger
}

func (s *Source) fs() afero.Fs {
	if s.Fs == nil {
		return afero.NewOsFs()
	}
	return s.Fs
}

func (s *Source) log() *slog.Logger {
	if s.Logger == nil {
		return debug.Component("legacy")
	}
	return s.Logger
}

// Find returns the files a label names. A label with a known extension
// names that file; a bare label matches label.<format> for every format.
// Each directory is searched in order, and a label that is itself an
// existing path is returned as is. No match is not an error.
func (s *Source) Find(label string) ([]string, error) {
	fs := s.fs()
	var candidates []string
	if IsFormat(filepath.Ext(label)) {
		candidates = append(candidates, label)
	} else {
		for _, f := range Formats() {
			candidates = append(candidates, label+"."+f)
		}
	}

	var found []string
	seen := map[string]bool{}
	try := func(p string) error {
		p = filepath.Clean(p)
		if seen[p] {
			return nil
		}
		ok, err := afero.Exists(fs, p)
		if err != nil {
			return fmt.Errorf("legacy: %w", err)
		}
		if ok {
			seen[p] = true
			found = append(found, p)
		}
		return nil
	}

	for _, c := range candidates {
		if filepath.IsAbs(c) {
			if err := try(c); err != nil {
				return nil, err
			}
			continue
		}
		for _, dir := range s.Dirs {
			if err := try(filepath.Join(dir, c)); err != nil {
				return nil, err
			}
		}
		if err := try(c); err != nil {
			return nil, err
		}
	}
	if len(found) == 0 {
		s.log().Warn("no fixture files found", "label", label)
	}
	return found, nil
}

// Load reads paths concurrently and returns their fixtures in path order.
// Each file yields one raw-mode fixture per model, in order of first
// appearance.
func (s *Source) Load(ctx context.Context, paths ...string) ([]*fixture.Fixture, error) {
	if s.Schema == nil {
		return nil, fmt.Errorf("legacy: no schema to map model labels onto")
	}
	limit := s.Concurrency
	if limit <= 0 {
		limit = 4
	}

	results := make([][]*fixture.Fixture, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fixtures, err := s.loadFile(p)
			if err != nil {
				return fmt.Errorf("legacy: %s: %w", p, err)
			}
			results[i] = fixtures
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []*fixture.Fixture
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

func (s *Source) loadFile(path string) ([]*fixture.Fixture, error) {
	format, ok := FormatOf(path)
	if !ok {
		return nil, fmt.Errorf("unknown fixture format %q", filepath.Ext(path))
	}
	data, err := afero.ReadFile(s.fs(), path)
	if err != nil {
		return nil, err
	}
	doc, err := Decode(format, data)
	if err != nil {
		return nil, err
	}
	fixtures, err := Convert(s.Schema, path, doc)
	if err != nil {
		return nil, err
	}
	s.log().Debug("fixture file decoded", "path", path, "version", doc.Version, "objects", len(doc.Objects))
	return fixtures, nil
}

// ModelOf maps a model label such as "shop.Band" or "band" onto reg.
func ModelOf(reg *schema.Registry, label string) (*schema.Model, bool) {
	if i := strings.LastIndex(label, "."); i >= 0 {
		label = label[i+1:]
	}
	if m, ok := reg.Lookup(label); ok {
		return m, true
	}
	for _, m := range reg.Models() {
		if strings.EqualFold(m.Name, label) {
			return m, true
		}
	}
	return nil, false
}

// Convert turns doc into fixtures named after source. Relation values
// become tokens of the file's fixture for the target model, so they match
// objects declared anywhere in the same batch and fall back to a store
// lookup otherwise.
func Convert(reg *schema.Registry, source string, doc *Document) ([]*fixture.Fixture, error) {
	var order []*fixture.Fixture
	byModel := map[string]*fixture.Fixture{}
	used := map[*fixture.Fixture]bool{}
	fixtureFor := func(m *schema.Model) *fixture.Fixture {
		f, ok := byModel[m.Name]
		if !ok {
			f = fixture.New(m, fixture.Named(source+":"+m.Name), fixture.Raw())
			byModel[m.Name] = f
		}
		return f
	}

	for i, obj := range doc.Objects {
		m, ok := ModelOf(reg, obj.Model)
		if !ok {
			return nil, fmt.Errorf("object %d: unknown model %q", i, obj.Model)
		}
		fields := make(fixture.Fields, len(obj.Fields))
		for name, v := range obj.Fields {
			fv, err := relationValue(m, name, v, fixtureFor)
			if err != nil {
				return nil, fmt.Errorf("object %d (%s): %w", i, obj.Model, err)
			}
			fields[name] = fv
		}

		f := fixtureFor(m)
		if err := f.AddFields(obj.PK, fields); err != nil {
			return nil, err
		}
		if !used[f] {
			used[f] = true
			order = append(order, f)
		}
	}
	return order, nil
}

func relationValue(m *schema.Model, name string, v any, fixtureFor func(*schema.Model) *fixture.Fixture) (any, error) {
	field, ok := m.Field(name)
	if !ok || !field.IsRelation() || v == nil {
		return v, nil
	}
	target := field.Relation.Model()
	if target == nil {
		return nil, fmt.Errorf("field %q: relation target %s is not linked", name, field.Relation.Target)
	}
	f := fixtureFor(target)

	switch field.Relation.Kind {
	case schema.ToOne:
		return f.FK(v), nil
	case schema.ToMany:
		items, ok := v.([]any)
		if !ok {
			return v, nil
		}
		tokens := make([]fixture.Token, 0, len(items))
		for _, it := range items {
			tokens = append(tokens, f.M2M(it))
		}
		return tokens, nil
	default:
		return v, nil
	}
}
