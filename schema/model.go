// Package schema describes the entity types fixtures are loaded into:
// models, their fields and how relation fields map onto tables.
package schema

import (
	"fmt"

	"github.com/go-openapi/inflect"
)

// RelationKind distinguishes single-valued from multi-valued relations.
type RelationKind int

const (
	// ToOne is a foreign key or one-to-one column stored on the owning table.
	ToOne RelationKind = iota + 1
	// ToMany is a many-to-many relation stored in a join table.
	ToMany
	// Reverse is the list side of a one-to-many relation. It has no storage
	// of its own and cannot be written from this end.
	Reverse
)

func (k RelationKind) String() string {
	switch k {
	case ToOne:
		return "to-one"
	case ToMany:
		return "to-many"
	case Reverse:
		return "reverse"
	default:
		return fmt.Sprintf("RelationKind(%d)", int(k))
	}
}

// Relation describes how a relation field is stored.
type Relation struct {
	Kind   RelationKind
	Target string // target model name

	// Column holds the foreign key on the owner table (ToOne).
	Column string

	// JoinTable with OwnerColumn pointing at the owner and TargetColumn
	// pointing at the target (ToMany).
	JoinTable    string
	OwnerColumn  string
	TargetColumn string

	target *Model
}

// Model returns the linked target model, or nil until the owner is registered.
func (r *Relation) Model() *Model {
	return r.target
}

// Field is a named attribute of a model.
type Field struct {
	Name     string
	Column   string
	Relation *Relation
}

// IsRelation reports whether the field points at another model.
func (f *Field) IsRelation() bool { return f.Relation != nil }

// IsMulti reports whether the field holds a collection of related objects.
func (f *Field) IsMulti() bool {
	return f.Relation != nil && f.Relation.Kind != ToOne
}

// Model is an entity type. Models are built with NewModel and the chained
// field helpers, then linked together through a Registry.
type Model struct {
	Name       string
	Table      string
	PKField    string
	PKColumn   string
	NaturalKey []string
	Fields     []*Field

	byName map[string]*Field
}

// NewModel creates a model with a snake-cased plural table name and an "id"
// primary key.
func NewModel(name string) *Model {
	return &Model{
		Name:     name,
		Table:    inflect.Underscore(inflect.Pluralize(name)),
		PKField:  "id",
		PKColumn: "id",
		byName:   map[string]*Field{},
	}
}

// WithTable overrides the table name.
func (m *Model) WithTable(table string) *Model {
	m.Table = table
	return m
}

// WithPK overrides the primary key field and column.
func (m *Model) WithPK(field, column string) *Model {
	m.PKField = field
	m.PKColumn = column
	return m
}

// WithNaturalKey declares the scalar fields that identify a row without its pk.
func (m *Model) WithNaturalKey(fields ...string) *Model {
	m.NaturalKey = fields
	return m
}

// Scalar adds a plain column whose name is the field name.
func (m *Model) Scalar(name string) *Model {
	return m.ScalarColumn(name, name)
}

// ScalarColumn adds a plain field stored under a different column name.
func (m *Model) ScalarColumn(name, column string) *Model {
	m.add(&Field{Name: name, Column: column})
	return m
}

// ForeignKey adds a single-valued relation stored in column.
func (m *Model) ForeignKey(name, target, column string) *Model {
	m.add(&Field{Name: name, Column: column, Relation: &Relation{
		Kind:   ToOne,
		Target: target,
		Column: column,
	}})
	return m
}

// OneToOne is ForeignKey under the name used for unique relations.
func (m *Model) OneToOne(name, target, column string) *Model {
	return m.ForeignKey(name, target, column)
}

// ManyToMany adds a multi-valued relation stored in joinTable.
func (m *Model) ManyToMany(name, target, joinTable, ownerColumn, targetColumn string) *Model {
	m.add(&Field{Name: name, Relation: &Relation{
		Kind:         ToMany,
		Target:       target,
		JoinTable:    joinTable,
		OwnerColumn:  ownerColumn,
		TargetColumn: targetColumn,
	}})
	return m
}

// ReverseOf adds the list side of a foreign key declared on target.
func (m *Model) ReverseOf(name, target string) *Model {
	m.add(&Field{Name: name, Relation: &Relation{Kind: Reverse, Target: target}})
	return m
}

func (m *Model) add(f *Field) {
	if m.byName == nil {
		m.byName = map[string]*Field{}
	}
	if prev, ok := m.byName[f.Name]; ok {
		*prev = *f
		return
	}
	m.Fields = append(m.Fields, f)
	m.byName[f.Name] = f
}

// Field looks up a field by name. The primary key field is reported too,
// as a scalar stored in PKColumn.
func (m *Model) Field(name string) (*Field, bool) {
	if f, ok := m.byName[name]; ok {
		return f, true
	}
	if name == m.PKField {
		return &Field{Name: m.PKField, Column: m.PKColumn}, true
	}
	return nil, false
}

// Columns returns the stored fields in declaration order, excluding the
// primary key and relations without a column of their own.
func (m *Model) Columns() []*Field {
	var out []*Field
	for _, f := range m.Fields {
		if f.Relation == nil || f.Relation.Kind == ToOne {
			out = append(out, f)
		}
	}
	return out
}

func (m *Model) String() string { return m.Name }
