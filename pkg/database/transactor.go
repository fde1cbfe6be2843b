package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// TxBeginner opens transactions. *sqlx.DB satisfies it.
type TxBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// Transactor runs units of work so that their writes commit together or not
// at all.
type Transactor struct {
	db   TxBeginner
	opts *sql.TxOptions
}

// NewTransactor constructs a Transactor over db.
func NewTransactor(db TxBeginner) *Transactor {
	return &Transactor{db: db}
}

// WithOptions returns a copy using opts for new transactions.
func (t *Transactor) WithOptions(opts *sql.TxOptions) *Transactor {
	return &Transactor{db: t.db, opts: opts}
}

// WithinTransaction runs fn inside a transaction. When exec is already a
// transaction, fn joins it and commit/rollback stay with the owner of that
// transaction. Any error returned by fn is returned unchanged after rollback.
func (t *Transactor) WithinTransaction(ctx context.Context, exec sqlx.ExtContext, fn func(tx sqlx.ExtContext) error) (err error) {
	if outer, ok := exec.(*sqlx.Tx); ok && outer != nil {
		return fn(outer)
	}
	if t == nil || t.db == nil {
		return errors.New("transactor not configured")
	}

	tx, err := t.db.BeginTxx(ctx, t.opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// WithTransaction is WithinTransaction for units of work that produce a value.
func WithTransaction[T any](ctx context.Context, t *Transactor, exec sqlx.ExtContext, fn func(tx sqlx.ExtContext) (T, error)) (T, error) {
	var result T
	err := t.WithinTransaction(ctx, exec, func(tx sqlx.ExtContext) error {
		var err error
		result, err = fn(tx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
