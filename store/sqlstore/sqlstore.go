// Package sqlstore implements store.Store on database/sql for PostgreSQL,
// MySQL and SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/satishbabariya/seedgraph/internal/debug"
	"github.com/satishbabariya/seedgraph/schema"
	"github.com/satishbabariya/seedgraph/store"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Option configures a Store.
type Option func(*Store)

// WithHooks installs save hooks run for non-raw creates.
func WithHooks(hooks ...store.Hook) Option {
	return func(s *Store) {
		for _, h := range hooks {
			s.hooks.Add(h)
		}
	}
}

// WithMiddleware appends statement middleware.
func WithMiddleware(mw ...Middleware) Option {
	return func(s *Store) { s.middlewares = append(s.middlewares, mw...) }
}

// WithLogger sets the logger used by the store.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Store writes fixtures through database/sql.
type Store struct {
	db          *sql.DB
	q           querier
	tx          *sql.Tx
	depth       int
	dialect     dialect
	hooks       *store.HookChain
	middlewares []Middleware
	log         *slog.Logger
}

// Open connects to a database. provider is a Prisma datasource provider
// name: postgresql, postgres, mysql or sqlite. dsn may be a datasource url.
func Open(provider, dsn string, opts ...Option) (*Store, error) {
	driverName := DriverName(provider)
	if driverName == "" {
		return nil, fmt.Errorf("sqlstore: unsupported provider: %s", provider)
	}
	dsn, err := DSN(provider, dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	s, err := New(db, provider, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection pool.
func New(db *sql.DB, provider string, opts ...Option) (*Store, error) {
	d, err := dialectFor(provider)
	if err != nil {
		return nil, err
	}
	s := &Store{
		db:      db,
		q:       db,
		dialect: d,
		hooks:   store.NewHookChain(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = debug.Component("sqlstore")
	}
	return s, nil
}

// DriverName maps provider names to database/sql driver names.
func DriverName(provider string) string {
	switch provider {
	case "postgresql", "postgres":
		return "postgres"
	case "mysql":
		return "mysql"
	case "sqlite", "sqlite3":
		return "sqlite3"
	default:
		return ""
	}
}

// Ping verifies the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sql.DB { return s.db }

// Hooks returns the store's hook chain.
func (s *Store) Hooks() *store.HookChain { return s.hooks }

// Create implements store.Store.
func (s *Store) Create(ctx context.Context, model *schema.Model, pk any, values []store.Value, raw bool) (store.Object, error) {
	insert := func(vs []store.Value) (store.Object, error) {
		return s.insert(ctx, model, pk, vs)
	}
	if raw {
		return insert(values)
	}
	return s.hooks.Save(ctx, model, pk, values, insert)
}

func (s *Store) insert(ctx context.Context, model *schema.Model, pk any, values []store.Value) (store.Object, error) {
	cols := []string{model.PKColumn}
	args := []any{pk}
	fields := make(map[string]any, len(values))
	for _, v := range values {
		if v.Field.IsMulti() {
			return nil, fmt.Errorf("sqlstore: %s.%s is multi-valued", model.Name, v.Field.Name)
		}
		cols = append(cols, v.Field.Column)
		args = append(args, store.RelatedPK(v.Value))
		fields[v.Field.Name] = v.Value
	}

	query := s.dialect.insert(model.Table, cols)
	if err := s.exec(ctx, query, args); err != nil {
		return nil, wrapError(model.Table, err)
	}
	return store.NewRecord(model.Name, pk, fields), nil
}

// LookupByPK implements store.Store. Foreign keys are returned as raw
// column values.
func (s *Store) LookupByPK(ctx context.Context, model *schema.Model, pk any) (store.Object, error) {
	return s.lookupOne(ctx, model, []string{model.PKColumn}, []any{pk})
}

// LookupByNaturalKey implements store.Store.
func (s *Store) LookupByNaturalKey(ctx context.Context, model *schema.Model, key []any) (store.Object, error) {
	if len(model.NaturalKey) == 0 || len(key) != len(model.NaturalKey) {
		return nil, fmt.Errorf("sqlstore: %s natural key needs %d values, got %d", model.Name, len(model.NaturalKey), len(key))
	}
	cols := make([]string, len(key))
	args := make([]any, len(key))
	for i, name := range model.NaturalKey {
		f, ok := model.Field(name)
		if !ok {
			return nil, fmt.Errorf("sqlstore: %s has no field %q", model.Name, name)
		}
		cols[i] = f.Column
		args[i] = store.RelatedPK(key[i])
	}
	return s.lookupOne(ctx, model, cols, args)
}

func (s *Store) lookupOne(ctx context.Context, model *schema.Model, where []string, args []any) (store.Object, error) {
	fields := model.Columns()
	cols := make([]string, 0, len(fields)+1)
	cols = append(cols, model.PKColumn)
	for _, f := range fields {
		cols = append(cols, f.Column)
	}
	query := s.dialect.selectWhere(model.Table, cols, where)

	var found []*store.Record
	err := s.run(ctx, query, args, func() error {
		rows, err := s.q.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			vals := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return err
			}
			values := make(map[string]any, len(fields))
			for i, f := range fields {
				values[f.Name] = scanned(vals[i+1])
			}
			found = append(found, store.NewRecord(model.Name, scanned(vals[0]), values))
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("sqlstore: select %s: %w", model.Table, err)
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("sqlstore: %s %s: %w", model.Name, describe(where, args), store.ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("sqlstore: %s %s matches %d rows", model.Name, describe(where, args), len(found))
	}
}

func scanned(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func describe(cols []string, args []any) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf("%s=%v", c, args[i])
	}
	return strings.Join(parts, ", ")
}

// AttachMany implements store.Store by inserting one join-table row per
// target, in order.
func (s *Store) AttachMany(ctx context.Context, owner store.Object, model *schema.Model, field *schema.Field, targets []store.Object) error {
	rel := field.Relation
	if rel == nil || rel.Kind != schema.ToMany {
		return fmt.Errorf("sqlstore: %s.%s is not a many-to-many relation", model.Name, field.Name)
	}
	query := s.dialect.insert(rel.JoinTable, []string{rel.OwnerColumn, rel.TargetColumn})
	for _, t := range targets {
		args := []any{owner.PK(), t.PK()}
		if err := s.exec(ctx, query, args); err != nil {
			return wrapError(rel.JoinTable, err)
		}
	}
	return nil
}

func (s *Store) exec(ctx context.Context, query string, args []any) error {
	return s.run(ctx, query, args, func() error {
		_, err := s.q.ExecContext(ctx, query, args...)
		return err
	})
}
