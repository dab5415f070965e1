package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/satishbabariya/seedgraph/store"
)

// InTx implements store.Transactional. fn receives a Store bound to the
// transaction; its error, or a panic, rolls everything back. Calling InTx
// on a transaction-bound Store nests through a savepoint.
func (s *Store) InTx(ctx context.Context, fn func(store.Store) error) error {
	return s.InTxWithOptions(ctx, nil, fn)
}

// InTxWithOptions is InTx with explicit transaction options.
func (s *Store) InTxWithOptions(ctx context.Context, opts *sql.TxOptions, fn func(store.Store) error) error {
	if s.tx != nil {
		return s.nested(ctx, fn)
	}

	sqlTx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("sqlstore: begin transaction: %w", err)
	}
	txStore := s.bind(sqlTx)

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (sqlstore: rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: commit: %w", err)
	}
	return nil
}

func (s *Store) bind(tx *sql.Tx) *Store {
	c := *s
	c.q = tx
	c.tx = tx
	c.depth = 0
	return &c
}

func (s *Store) nested(ctx context.Context, fn func(store.Store) error) error {
	s.depth++
	defer func() { s.depth-- }()
	sp := fmt.Sprintf("sp_%d", s.depth)

	if _, err := s.tx.ExecContext(ctx, "SAVEPOINT "+sp); err != nil {
		return fmt.Errorf("sqlstore: create savepoint: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_, _ = s.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+sp)
			panic(p)
		}
	}()

	if err := fn(s); err != nil {
		if _, rbErr := s.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+sp); rbErr != nil {
			return fmt.Errorf("%w (sqlstore: rollback to savepoint: %v)", err, rbErr)
		}
		return err
	}

	if _, err := s.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+sp); err != nil {
		return fmt.Errorf("sqlstore: release savepoint: %w", err)
	}
	return nil
}
