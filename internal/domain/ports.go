package domain

import (
	"context"
	"database/sql"
	"time"
)

// DataEngine executes SQL and owns the cancellation directory for in-flight
// runs. Implemented by engine.Engine.
//
// Execute begins running sqlText and returns a live cursor together with the
// cancel function that aborts it. Callers that want the run to be cancelable
// by token register that function under a token of their choosing; Cancel
// fires it. Tokens are compared by identity, and canceling or deregistering
// an unknown token is a no-op.
type DataEngine interface {
	Execute(ctx context.Context, sqlText string) (*sql.Rows, context.CancelFunc, error)
	Register(token any, cancel context.CancelFunc)
	Deregister(token any)
	Cancel(token any) bool
}

// QueryTranslator renders a portable query definition to engine SQL.
// Implemented by translate.Translator.
type QueryTranslator interface {
	Translate(def *QueryDef) (string, error)
}

// SavedQueryRepository persists named query definitions.
type SavedQueryRepository interface {
	Save(ctx context.Context, q *SavedQuery) (*SavedQuery, error)
	GetByName(ctx context.Context, principal, name string) (*SavedQuery, error)
	List(ctx context.Context, principal string, page PageRequest) ([]SavedQuery, int64, error)
	ListNames(ctx context.Context, principal string) ([]string, error)
	Rename(ctx context.Context, principal, name, newName string) error
	Delete(ctx context.Context, principal, name string) error
}

// QueryHistoryRepository persists per-run history records.
type QueryHistoryRepository interface {
	Insert(ctx context.Context, e *QueryHistoryEntry) (*QueryHistoryEntry, error)
	List(ctx context.Context, filter QueryHistoryFilter) ([]QueryHistoryEntry, int64, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	PruneToCount(ctx context.Context, principal string, keep int) (int64, error)
	Principals(ctx context.Context) ([]string, error)
}
