package psl

import (
	"fmt"
	"os"
	"sort"

	"github.com/satishbabariya/seedgraph/schema"
)

// Datasource is the connection described by a datasource block.
type Datasource struct {
	Name     string
	Provider string
	URL      string
}

// DatasourceOf returns the first datasource block. A url given as
// env("NAME") is read from the environment.
func DatasourceOf(f *File) (*Datasource, error) {
	sources := f.Configs("datasource")
	if len(sources) == 0 {
		return nil, fmt.Errorf("psl: no datasource block")
	}
	src := sources[0]
	ds := &Datasource{Name: src.Name, Provider: src.Property("provider").Text()}
	if ds.Provider == "" {
		return nil, fmt.Errorf("psl: datasource %s has no provider", src.Name)
	}

	url := src.Property("url")
	switch {
	case url == nil:
	case url.Func != nil && url.Func.Name == "env":
		if len(url.Func.Args) != 1 {
			return nil, fmt.Errorf("psl: env() takes one argument")
		}
		ds.URL = os.Getenv(url.Func.Args[0].Value.Text())
	default:
		ds.URL = url.Text()
	}
	return ds, nil
}

// Build converts the models of f into a linked registry.
//
// Tables default to the model name unless @@map is given. A relation field
// with @relation(fields: [...]) becomes a foreign key stored in the column
// of the referenced scalar field. A list relation whose opposite field is
// also a list becomes an implicit many-to-many relation stored in the
// _AToB join table with columns A and B. Any other relation field without
// fields: is the reverse side of a foreign key.
func Build(f *File) (*schema.Registry, error) {
	b := &builder{
		models: map[string]*Model{},
		enums:  map[string]bool{},
	}
	for _, e := range f.Enums() {
		b.enums[e.Name] = true
	}
	for _, m := range f.Models() {
		if _, dup := b.models[m.Name]; dup {
			return nil, fmt.Errorf("psl: model %s is declared twice", m.Name)
		}
		b.models[m.Name] = m
	}

	reg := &schema.Registry{}
	for _, m := range f.Models() {
		model, err := b.model(m)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(model); err != nil {
			return nil, err
		}
	}
	if err := reg.Link(); err != nil {
		return nil, err
	}
	return reg, nil
}

type builder struct {
	models map[string]*Model
	enums  map[string]bool
}

func columnOf(f *Field) string {
	if a := f.Attribute("map"); a != nil {
		if v := a.Arg("name", 0).Text(); v != "" {
			return v
		}
	}
	return f.Name
}

func (b *builder) model(m *Model) (*schema.Model, error) {
	out := schema.NewModel(m.Name).WithTable(m.Name)
	if a := m.Attribute("map"); a != nil {
		out.WithTable(a.Arg("name", 0).Text())
	}
	if a := m.Attribute("id"); a != nil {
		return nil, fmt.Errorf("psl: %s: composite primary keys are not supported", m.Name)
	}

	pk := ""
	for _, f := range m.Fields {
		if f.Attribute("id") != nil {
			if pk != "" {
				return nil, fmt.Errorf("psl: %s: more than one @id field", m.Name)
			}
			pk = f.Name
			out.WithPK(f.Name, columnOf(f))
		}
	}
	if pk == "" {
		return nil, fmt.Errorf("psl: %s has no @id field", m.Name)
	}

	// Scalars backing a relation's fields: are written through the relation.
	fkOf := foreignKeyScalars(m)
	for _, f := range m.Fields {
		if f.Name == pk || fkOf[f.Name] != "" {
			continue
		}
		if _, isModel := b.models[f.Type]; !isModel {
			out.ScalarColumn(f.Name, columnOf(f))
			continue
		}
		if err := b.relation(out, m, f); err != nil {
			return nil, err
		}
	}

	if a := m.Attribute("naturalKey"); a != nil {
		names := a.Arg("fields", 0).Names()
		if len(names) == 0 {
			return nil, fmt.Errorf("psl: %s: @@naturalKey needs a list of fields", m.Name)
		}
		for i, n := range names {
			if rel := fkOf[n]; rel != "" {
				names[i] = rel
			}
		}
		out.WithNaturalKey(names...)
	}
	return out, nil
}

// foreignKeyScalars maps each scalar named in a relation's fields: list to
// the relation field.
func foreignKeyScalars(m *Model) map[string]string {
	out := map[string]string{}
	for _, f := range m.Fields {
		if a := f.Attribute("relation"); a != nil {
			for _, n := range a.Arg("fields", -1).Names() {
				out[n] = f.Name
			}
		}
	}
	return out
}

func relationName(f *Field) string {
	if a := f.Attribute("relation"); a != nil {
		if v := a.Arg("name", 0); v != nil && v.String != nil {
			return *v.String
		}
	}
	return ""
}

func (b *builder) relation(out *schema.Model, owner *Model, f *Field) error {
	rel := f.Attribute("relation")
	if rel != nil {
		if fields := rel.Arg("fields", -1).Names(); len(fields) > 0 {
			if len(fields) != 1 {
				return fmt.Errorf("psl: %s.%s: composite foreign keys are not supported", owner.Name, f.Name)
			}
			scalar := fieldByName(owner, fields[0])
			if scalar == nil {
				return fmt.Errorf("psl: %s.%s: unknown field %q in fields:", owner.Name, f.Name, fields[0])
			}
			out.ForeignKey(f.Name, f.Type, columnOf(scalar))
			return nil
		}
	}

	if !f.List {
		out.ReverseOf(f.Name, f.Type)
		return nil
	}

	target := b.models[f.Type]
	back := b.opposite(owner, f, target)
	if back == nil {
		return fmt.Errorf("psl: %s.%s: %s has no field pointing back at %s", owner.Name, f.Name, target.Name, owner.Name)
	}
	if !back.List {
		out.ReverseOf(f.Name, f.Type)
		return nil
	}

	name := relationName(f)
	pair := []string{owner.Name, target.Name}
	sort.Strings(pair)
	if name == "" {
		name = pair[0] + "To" + pair[1]
	}
	ownerCol, targetCol := "A", "B"
	if owner.Name != target.Name && owner.Name == pair[1] {
		ownerCol, targetCol = "B", "A"
	}
	out.ManyToMany(f.Name, f.Type, "_"+name, ownerCol, targetCol)
	return nil
}

// opposite finds the field on target that closes the relation f.
func (b *builder) opposite(owner *Model, f *Field, target *Model) *Field {
	name := relationName(f)
	for _, cand := range target.Fields {
		if cand.Type != owner.Name || (owner == target && cand == f) {
			continue
		}
		if relationName(cand) == name {
			return cand
		}
	}
	return nil
}

func fieldByName(m *Model, name string) *Field {
	for _, f := range m.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}
