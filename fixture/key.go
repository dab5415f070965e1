package fixture

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/seedgraph/store"
)

// KeyKind tells how a Key identifies its target.
type KeyKind int

const (
	KeyPK KeyKind = iota + 1
	KeyNatural
	KeyObject
)

// NaturalKey is a natural-key tuple. A plain []any is treated the same way.
type NaturalKey []any

// Key identifies a related object: by primary key, by natural key, or by
// handing over an object that already exists.
type Key struct {
	kind    KeyKind
	pk      any
	natural []any
	object  store.Object
}

// PK identifies an object by primary key.
func PK(v any) Key { return Key{kind: KeyPK, pk: v} }

// Natural identifies an object by its natural-key values.
func Natural(vs ...any) Key {
	return Key{kind: KeyNatural, natural: append([]any(nil), vs...)}
}

// Existing passes an already persisted object through unchanged.
func Existing(o store.Object) Key { return Key{kind: KeyObject, object: o} }

// KeyOf converts a raw lookup value into a Key.
func KeyOf(v any) Key {
	switch x := v.(type) {
	case Key:
		return x
	case store.Object:
		return Existing(x)
	case NaturalKey:
		return Natural(x...)
	case []any:
		return Natural(x...)
	default:
		return PK(v)
	}
}

func (k Key) Kind() KeyKind        { return k.kind }
func (k Key) PKValue() any         { return k.pk }
func (k Key) NaturalValues() []any { return append([]any(nil), k.natural...) }
func (k Key) Object() store.Object { return k.object }

func (k Key) String() string {
	switch k.kind {
	case KeyNatural:
		parts := make([]string, len(k.natural))
		for i, v := range k.natural {
			parts[i] = fmt.Sprintf("%v", v)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KeyObject:
		if isNilObject(k.object) {
			return "<nil>"
		}
		return fmt.Sprintf("%s(%v)", k.object.Model(), k.object.PK())
	default:
		return fmt.Sprintf("%v", k.pk)
	}
}
