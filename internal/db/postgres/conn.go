package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// DBTX is the subset of *sql.DB and *sql.Tx the repositories need
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type txKey struct{}

// ContextWithTx returns a context carrying tx. Repositories resolving their
// connection from this context run on tx instead of the pool.
func ContextWithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the transaction carried by ctx, if any
func TxFromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok && tx != nil
}

// Resolver picks the connection a repository call runs on. It is consulted on
// every call, never cached, so a repository follows whatever transaction the
// caller's context carries.
type Resolver struct {
	db *sql.DB
}

// NewResolver creates a resolver over a connection pool
func NewResolver(db *sql.DB) *Resolver {
	return &Resolver{db: db}
}

// Conn returns the transaction in ctx, or the pool when there is none
func (r *Resolver) Conn(ctx context.Context) DBTX {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return r.db
}

// WithTx runs fn inside a transaction. When ctx already carries one, fn joins it
// and the outer caller decides commit or rollback.
func (r *Resolver) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := TxFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rollbackErr := tx.Rollback(); rollbackErr != nil && rollbackErr != sql.ErrTxDone {
			log.Printf("Failed to rollback transaction: %v", rollbackErr)
		}
	}()

	if err := fn(ContextWithTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}
