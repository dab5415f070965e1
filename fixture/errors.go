package fixture

import (
	"errors"
	"fmt"
	"strings"
)

// ErrKind classifies the errors a load can fail with.
type ErrKind int

const (
	KindUnknown ErrKind = iota
	KindDuplicateKey
	KindCycle
	KindUnresolved
	KindPersistence
	KindUsage
)

func (k ErrKind) String() string {
	switch k {
	case KindDuplicateKey:
		return "duplicate key"
	case KindCycle:
		return "cyclic dependency"
	case KindUnresolved:
		return "unresolved reference"
	case KindPersistence:
		return "persistence"
	case KindUsage:
		return "usage"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is against the typed errors below.
var (
	ErrDuplicateKey = errors.New("fixture: duplicate key")
	ErrCycle        = errors.New("fixture: cyclic dependency")
	ErrUnresolved   = errors.New("fixture: unresolved reference")
	ErrPersistence  = errors.New("fixture: persistence failure")
	ErrUsage        = errors.New("fixture: usage error")
)

// SpecRef identifies an object spec by entity type and primary key.
type SpecRef struct {
	Entity string
	PK     any
}

func (r SpecRef) String() string {
	return fmt.Sprintf("%s(%v)", r.Entity, r.PK)
}

// DuplicateKeyError is returned when two specs in a batch share an entity
// type and primary key.
type DuplicateKeyError struct {
	Entity string
	PK     any
	First  string // fixture that declared the key first
	Second string
}

func (e *DuplicateKeyError) Error() string {
	if e.First == e.Second {
		return fmt.Sprintf("fixture: %s(%v) is declared twice in fixture %q", e.Entity, e.PK, e.First)
	}
	return fmt.Sprintf("fixture: %s(%v) is declared by both %q and %q", e.Entity, e.PK, e.First, e.Second)
}

func (e *DuplicateKeyError) Kind() ErrKind { return KindDuplicateKey }

func (e *DuplicateKeyError) Is(err error) bool { return err == ErrDuplicateKey }

// CyclicDependencyError lists the specs on a dependency cycle. The first
// element is repeated at the end.
type CyclicDependencyError struct {
	Path []SpecRef
}

func (e *CyclicDependencyError) Error() string {
	parts := make([]string, len(e.Path))
	for i, r := range e.Path {
		parts[i] = r.String()
	}
	return "fixture: cyclic dependency: " + strings.Join(parts, " -> ")
}

func (e *CyclicDependencyError) Kind() ErrKind { return KindCycle }

func (e *CyclicDependencyError) Is(err error) bool { return err == ErrCycle }

// UnresolvedReferenceError is returned when an external reference matches
// no persisted object.
type UnresolvedReferenceError struct {
	Entity string // target entity type
	Key    Key
	Field  string
	Owner  SpecRef
	Err    error
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("fixture: %s.%s: no %s matches %s", e.Owner, e.Field, e.Entity, e.Key)
}

func (e *UnresolvedReferenceError) Kind() ErrKind { return KindUnresolved }

func (e *UnresolvedReferenceError) Is(err error) bool { return err == ErrUnresolved }

func (e *UnresolvedReferenceError) Unwrap() error { return e.Err }

// PersistenceError wraps a failure reported by the store.
type PersistenceError struct {
	Op     string // create, attach or lookup
	Entity string
	PK     any
	Field  string
	Err    error
}

func (e *PersistenceError) Error() string {
	target := fmt.Sprintf("%s(%v)", e.Entity, e.PK)
	if e.Field != "" {
		target += "." + e.Field
	}
	return fmt.Sprintf("fixture: %s %s: %v", e.Op, target, e.Err)
}

func (e *PersistenceError) Kind() ErrKind { return KindPersistence }

func (e *PersistenceError) Is(err error) bool { return err == ErrPersistence }

func (e *PersistenceError) Unwrap() error { return e.Err }

// UsageError reports a fixture declared or used incorrectly.
type UsageError struct {
	Msg string
	Err error
}

func usageErrorf(format string, args ...any) *UsageError {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

func (e *UsageError) Error() string {
	if e.Err != nil {
		return "fixture: " + e.Msg + ": " + e.Err.Error()
	}
	return "fixture: " + e.Msg
}

func (e *UsageError) Kind() ErrKind { return KindUsage }

func (e *UsageError) Is(err error) bool { return err == ErrUsage }

func (e *UsageError) Unwrap() error { return e.Err }

// KindOf returns the kind of the first typed fixture error in err's chain.
func KindOf(err error) ErrKind {
	var k interface{ Kind() ErrKind }
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

// IsDuplicateKey returns true if err is or wraps a DuplicateKeyError.
func IsDuplicateKey(err error) bool { return errors.Is(err, ErrDuplicateKey) }

// IsCycle returns true if err is or wraps a CyclicDependencyError.
func IsCycle(err error) bool { return errors.Is(err, ErrCycle) }

// IsUnresolved returns true if err is or wraps an UnresolvedReferenceError.
func IsUnresolved(err error) bool { return errors.Is(err, ErrUnresolved) }

// IsPersistence returns true if err is or wraps a PersistenceError.
func IsPersistence(err error) bool { return errors.Is(err, ErrPersistence) }

// IsUsage returns true if err is or wraps a UsageError.
func IsUsage(err error) bool { return errors.Is(err, ErrUsage) }
