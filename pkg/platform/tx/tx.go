package tx

import (
	"context"
	"database/sql"
	"time"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

const defaultTxTimeout = 5 * time.Second

// Runner executes a function atomically. The SQL implementation wraps fn in
// a database transaction carried through context; stores inside fn pick it up
// via From. The nop implementation backs the in-memory stores, whose single
// mutex already serializes writes.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SQLRunner runs fn inside a *sql.Tx with a bounded timeout.
type SQLRunner struct {
	db      *sql.DB
	timeout time.Duration
}

// NewSQLRunner creates a Runner over the database handle.
func NewSQLRunner(db *sql.DB) *SQLRunner {
	return &SQLRunner{db: db}
}

func (r *SQLRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// A transaction already in flight is joined, not nested; the outermost
	// caller owns the commit.
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}

	timeout := r.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = dbTx.Rollback()
	}()

	if err := fn(WithTx(ctx, dbTx)); err != nil {
		return err
	}
	return dbTx.Commit()
}

// NopRunner runs fn directly.
type NopRunner struct{}

func (NopRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
