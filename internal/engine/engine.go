// Package engine executes SQL on an embedded DuckDB instance and owns the
// cancellation directory for in-flight runs.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"queryd/internal/domain"
)

// Compile-time check: Engine implements the domain port.
var _ domain.DataEngine = (*Engine)(nil)

// Options configures an Engine.
type Options struct {
	// Path is the DuckDB database file; empty runs in-memory.
	Path string
	// MaxQueryDuration bounds a single run. Zero means unlimited.
	MaxQueryDuration time.Duration
}

// Engine wraps a DuckDB connection. Each Execute derives its own cancelable
// run context; callers may register the returned cancel func under a token
// so that Cancel can abort the run from another goroutine.
type Engine struct {
	db      *sql.DB
	maxDur  time.Duration
	logger  *slog.Logger
	cancels sync.Map // token -> context.CancelFunc
}

// Open opens a DuckDB database and wraps it in an Engine.
func Open(opts Options, logger *slog.Logger) (*Engine, error) {
	db, err := sql.Open("duckdb", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return New(db, opts.MaxQueryDuration, logger), nil
}

// New wraps an existing DuckDB connection.
func New(db *sql.DB, maxDuration time.Duration, logger *slog.Logger) *Engine {
	return &Engine{
		db:     db,
		maxDur: maxDuration,
		logger: logger.With("component", "engine"),
	}
}

// Close closes the underlying database.
func (e *Engine) Close() error {
	return e.db.Close()
}

// DB exposes the underlying connection for setup and export statements.
func (e *Engine) DB() *sql.DB {
	return e.db
}

// Execute begins running sqlText and returns the live cursor plus the
// cancel function for the run context. The cancel function must eventually
// be called on every path; calling it after the run finished is harmless.
func (e *Engine) Execute(ctx context.Context, sqlText string) (*sql.Rows, context.CancelFunc, error) {
	var runCtx context.Context
	var cancel context.CancelFunc
	if e.maxDur > 0 {
		runCtx, cancel = context.WithTimeout(ctx, e.maxDur)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}

	rows, err := e.db.QueryContext(runCtx, sqlText)
	if err != nil {
		cancel()
		if cerr := runCtx.Err(); cerr != nil {
			// Preserve the context cause so callers can classify timeouts.
			return nil, nil, fmt.Errorf("execute query: %w", cerr)
		}
		return nil, nil, fmt.Errorf("execute query: %w", err)
	}
	return rows, cancel, nil
}

// Exec runs a statement without producing a cursor, bounded by the engine's
// maximum duration. Used for setup and COPY TO exports.
func (e *Engine) Exec(ctx context.Context, sqlText string) error {
	var runCtx context.Context
	var cancel context.CancelFunc
	if e.maxDur > 0 {
		runCtx, cancel = context.WithTimeout(ctx, e.maxDur)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	if _, err := e.db.ExecContext(runCtx, sqlText); err != nil {
		if cerr := runCtx.Err(); cerr != nil {
			return fmt.Errorf("execute statement: %w", cerr)
		}
		return fmt.Errorf("execute statement: %w", err)
	}
	return nil
}

// Register associates token with the cancel function for an in-flight run.
func (e *Engine) Register(token any, cancel context.CancelFunc) {
	e.cancels.Store(token, cancel)
}

// Deregister removes token from the cancellation directory. Unknown tokens
// are ignored.
func (e *Engine) Deregister(token any) {
	e.cancels.Delete(token)
}

// Cancel aborts the run registered under token, if any, and reports whether
// a registration was found.
func (e *Engine) Cancel(token any) bool {
	v, ok := e.cancels.Load(token)
	if !ok {
		return false
	}
	v.(context.CancelFunc)()
	e.logger.Debug("canceled registered run")
	return true
}

// Ping verifies the engine connection.
func (e *Engine) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}
