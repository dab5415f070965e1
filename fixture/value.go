package fixture

import (
	"reflect"
	"sort"

	"github.com/satishbabariya/seedgraph/schema"
	"github.com/satishbabariya/seedgraph/store"
)

// Value is a classified field value: Literal, Ref or Many.
type Value interface {
	isValue()
}

// Literal is a plain value stored as given.
type Literal struct {
	V any
}

// Ref is a single related object, named either by a Token or by a bare key
// that must already exist in the store.
type Ref struct {
	token *Token
	key   Key
}

// Many is an ordered collection of related objects.
type Many []Ref

func (Literal) isValue() {}
func (Ref) isValue()     {}
func (Many) isValue()    {}

// Lit wraps v as a Literal.
func Lit(v any) Literal { return Literal{V: v} }

// ToOne builds a Ref from a Token, Key, store.Object, natural-key tuple or pk.
func ToOne(v any) Ref {
	switch x := v.(type) {
	case Ref:
		return x
	case Token:
		return Ref{token: &x, key: x.key}
	case *Token:
		t := *x
		return Ref{token: &t, key: t.key}
	default:
		return Ref{key: KeyOf(v)}
	}
}

// ToMany builds a Many from individual references.
func ToMany(vs ...any) Many {
	out := make(Many, 0, len(vs))
	for _, v := range vs {
		out = append(out, ToOne(v))
	}
	return out
}

// Token returns the token the reference was built from, if any.
func (r Ref) Token() (Token, bool) {
	if r.token == nil {
		return Token{}, false
	}
	return *r.token, true
}

func (r Ref) Key() Key { return r.key }

func (r Ref) String() string {
	if r.token != nil {
		return r.token.String()
	}
	return r.key.String()
}

// Field is an unclassified (name, value) pair passed to Fixture.Add.
type Field struct {
	Name  string
	Value any
}

// F builds a Field.
func F(name string, v any) Field { return Field{Name: name, Value: v} }

// Fields is a map form of field values. Entries are applied sorted by name.
type Fields map[string]any

func (fs Fields) list() []Field {
	names := make([]string, 0, len(fs))
	for n := range fs {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]Field, len(names))
	for i, n := range names {
		out[i] = Field{Name: n, Value: fs[n]}
	}
	return out
}

// FieldValue is a field value classified against the model schema.
type FieldValue struct {
	Field *schema.Field
	Value Value
}

func classify(model *schema.Model, in Field) (FieldValue, error) {
	if in.Name == model.PKField {
		return FieldValue{}, usageErrorf("%s: the primary key is passed to Add, not as field %q", model.Name, in.Name)
	}
	f, ok := model.Field(in.Name)
	if !ok {
		return FieldValue{}, usageErrorf("%s has no field %q", model.Name, in.Name)
	}

	if f.Relation == nil {
		switch in.Value.(type) {
		case Token, *Token, Ref, Many:
			return FieldValue{}, usageErrorf("%s.%s is not a relation field", model.Name, f.Name)
		case Literal:
			return FieldValue{Field: f, Value: in.Value.(Literal)}, nil
		}
		return FieldValue{Field: f, Value: Literal{V: in.Value}}, nil
	}

	raw := in.Value
	if lit, ok := raw.(Literal); ok {
		raw = lit.V
	}

	switch f.Relation.Kind {
	case schema.Reverse:
		return FieldValue{}, usageErrorf("%s.%s is the reverse side of a foreign key on %s; declare the relation on %s instead",
			model.Name, f.Name, f.Relation.Target, f.Relation.Target)

	case schema.ToOne:
		if raw == nil {
			return FieldValue{Field: f, Value: Literal{}}, nil
		}
		if isMultiple(raw) {
			return FieldValue{}, usageErrorf("%s.%s is single-valued but was given %T", model.Name, f.Name, raw)
		}
		ref := ToOne(raw)
		if err := checkTarget(model, f, ref); err != nil {
			return FieldValue{}, err
		}
		return FieldValue{Field: f, Value: ref}, nil

	default:
		refs, ok := manyOf(raw)
		if !ok {
			return FieldValue{}, usageErrorf("%s.%s is multi-valued and needs a list, got %T", model.Name, f.Name, raw)
		}
		for _, ref := range refs {
			if err := checkTarget(model, f, ref); err != nil {
				return FieldValue{}, err
			}
		}
		return FieldValue{Field: f, Value: refs}, nil
	}
}

func checkTarget(model *schema.Model, f *schema.Field, ref Ref) error {
	if t, ok := ref.Token(); ok {
		if t.fixture == nil {
			return usageErrorf("%s.%s: token was not created by a fixture; use FK, O2O or M2M", model.Name, f.Name)
		}
		if t.Model().Name != f.Relation.Target {
			return usageErrorf("%s.%s expects %s, got a token for %s", model.Name, f.Name, f.Relation.Target, t.Model().Name)
		}
	}
	if ref.key.Kind() == KeyObject && isNilObject(ref.key.object) {
		return usageErrorf("%s.%s: nil %s object", model.Name, f.Name, f.Relation.Target)
	}
	return nil
}

// isNilObject also catches typed nil pointers stored in the interface.
func isNilObject(o store.Object) bool {
	if o == nil {
		return true
	}
	v := reflect.ValueOf(o)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func:
		return v.IsNil()
	}
	return false
}

// isMultiple reports list values that cannot name a single object.
// NaturalKey and []any are natural-key tuples, not lists.
func isMultiple(v any) bool {
	switch v.(type) {
	case Many, []Ref, []Token, []Key, []store.Object,
		[]int, []int32, []int64, []uint, []uint64, []string:
		return true
	}
	return false
}

func manyOf(v any) (Many, bool) {
	switch x := v.(type) {
	case nil:
		return Many{}, true
	case Many:
		return x, true
	case []Ref:
		return Many(x), true
	case []Token:
		out := make(Many, len(x))
		for i, t := range x {
			out[i] = ToOne(t)
		}
		return out, true
	case []Key:
		return toMany(x), true
	case []store.Object:
		return toMany(x), true
	case []any:
		return ToMany(x...), true
	case []int:
		return toMany(x), true
	case []int32:
		return toMany(x), true
	case []int64:
		return toMany(x), true
	case []uint:
		return toMany(x), true
	case []uint64:
		return toMany(x), true
	case []string:
		return toMany(x), true
	}
	return nil, false
}

func toMany[T any](xs []T) Many {
	out := make(Many, len(xs))
	for i, x := range xs {
		out[i] = ToOne(x)
	}
	return out
}
