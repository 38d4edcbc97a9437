package database

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/Stephi-25/Odjassa/internal/config"
)

// DBTX is satisfied by *sql.DB and *sql.Tx. Store functions take it so the
// caller decides whether a statement joins a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Beginner starts transactions. *sql.DB implements it.
type Beginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type TxOptions struct {
	IsolationLevel sql.IsolationLevel
	ReadOnly       bool
	// MaxRetries applies only to transient, deadlock and serialization failures.
	MaxRetries int
	// Timeout bounds the whole transaction including retries. Zero disables it.
	Timeout time.Duration
	// LockTimeout is set with SET LOCAL semantics. Zero keeps the server default.
	LockTimeout time.Duration
}

func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsolationLevel: sql.LevelReadCommitted,
		ReadOnly:       false,
		MaxRetries:     0,
	}
}

func TxOptionsFromConfig(cfg config.TxConfig) TxOptions {
	opts := DefaultTxOptions()
	opts.MaxRetries = cfg.MaxRetries
	opts.Timeout = cfg.Timeout
	opts.LockTimeout = cfg.LockTimeout
	return opts
}

// WithTransaction runs fn inside a transaction. Any error from fn, or the
// deadline expiring, rolls the whole transaction back before returning.
func WithTransaction(ctx context.Context, db Beginner, opts TxOptions, fn func(ctx context.Context, tx *sql.Tx) error) error {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	backoff := 50 * time.Millisecond
	for attempt := 0; ; attempt++ {
		err := runOnce(ctx, db, opts, fn)
		if err == nil {
			return nil
		}

		if !IsRetryable(err) || attempt >= opts.MaxRetries {
			if attempt > 0 {
				return fmt.Errorf("transaction failed after %d attempt(s): %w", attempt+1, err)
			}
			return err
		}

		jitter := time.Duration(rand.Int63n(int64(backoff / 4)))
		select {
		case <-time.After(backoff + jitter):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
}

func runOnce(ctx context.Context, db Beginner, opts TxOptions, fn func(ctx context.Context, tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{
		Isolation: opts.IsolationLevel,
		ReadOnly:  opts.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if opts.LockTimeout > 0 {
		if _, err := tx.ExecContext(ctx, `SELECT set_config('lock_timeout', $1, true)`,
			fmt.Sprintf("%dms", opts.LockTimeout.Milliseconds())); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("set lock timeout: %w", err)
		}
	}

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
