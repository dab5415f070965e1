package fixture

import (
	"fmt"

	"github.com/satishbabariya/seedgraph/schema"
)

// Kind is the multiplicity a token was created for. Both kinds resolve the
// same way; the field a token is assigned to decides how it is stored.
type Kind int

const (
	Single Kind = iota + 1
	Multi
)

func (k Kind) String() string {
	if k == Multi {
		return "m2m"
	}
	return "fk"
}

// Token is a reference to an object in a fixture. It is resolved to a
// persisted object at load time, either to a spec in the same batch or to
// an object already in the store.
type Token struct {
	fixture *Fixture
	key     Key
	kind    Kind
}

// FK returns a single-valued token for the object with the given key.
func (f *Fixture) FK(key any) Token {
	return Token{fixture: f, key: KeyOf(key), kind: Single}
}

// O2O is FK for one-to-one fields.
func (f *Fixture) O2O(key any) Token {
	return f.FK(key)
}

// M2M returns a token meant for a many-to-many field.
func (f *Fixture) M2M(key any) Token {
	return Token{fixture: f, key: KeyOf(key), kind: Multi}
}

func (t Token) Fixture() *Fixture { return t.fixture }
func (t Token) Key() Key          { return t.key }
func (t Token) Kind() Kind        { return t.kind }

// Model returns the target model, or nil for a zero Token.
func (t Token) Model() *schema.Model {
	if t.fixture == nil {
		return nil
	}
	return t.fixture.model
}

func (t Token) String() string {
	if t.fixture == nil {
		return "<zero token>"
	}
	return fmt.Sprintf("%s.%s(%s)", t.fixture.model.Name, t.kind, t.key)
}
