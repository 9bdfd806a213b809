// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase. This follows the Go convention of a
// shared test utility package (like net/http/httptest).
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"queryd/internal/domain"
)

// === Data Engine Fake ===

// FakeEngine implements domain.DataEngine over an in-memory SQLite database.
// Tests get real *sql.Rows cursors plus full instrumentation of the token
// lifecycle: every Register/Deregister/Cancel is recorded in order.
type FakeEngine struct {
	DB *sql.DB

	// ExecDelay makes Execute block before touching the database,
	// simulating a slow engine; the wait respects ctx.
	ExecDelay time.Duration
	// ExecErr, when set, is returned by Execute instead of running anything.
	ExecErr error

	mu       sync.Mutex
	cancels  map[any]context.CancelFunc
	events   []string
	nCancels atomic.Int64
}

var _ domain.DataEngine = (*FakeEngine)(nil)

// NewFakeEngine opens an in-memory SQLite database for the fake engine and
// registers cleanup with t.
func NewFakeEngine(t *testing.T) *FakeEngine {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// A single conn keeps every statement on the same in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return &FakeEngine{DB: db, cancels: make(map[any]context.CancelFunc)}
}

// Exec runs a setup statement directly.
func (e *FakeEngine) Exec(t *testing.T, sqlText string) {
	t.Helper()
	if _, err := e.DB.Exec(sqlText); err != nil {
		t.Fatalf("exec %q: %v", sqlText, err)
	}
}

// Execute implements domain.DataEngine.
func (e *FakeEngine) Execute(ctx context.Context, sqlText string) (*sql.Rows, context.CancelFunc, error) {
	if e.ExecDelay > 0 {
		select {
		case <-time.After(e.ExecDelay):
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
	if e.ExecErr != nil {
		return nil, nil, e.ExecErr
	}

	runCtx, cancel := context.WithCancel(ctx)
	rows, err := e.DB.QueryContext(runCtx, sqlText)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return rows, cancel, nil
}

// Register implements domain.DataEngine.
func (e *FakeEngine) Register(token any, cancel context.CancelFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancels[token] = cancel
	e.events = append(e.events, "register")
}

// Deregister implements domain.DataEngine.
func (e *FakeEngine) Deregister(token any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.cancels, token)
	e.events = append(e.events, "deregister")
}

// Cancel implements domain.DataEngine.
func (e *FakeEngine) Cancel(token any) bool {
	e.mu.Lock()
	cancel, ok := e.cancels[token]
	e.events = append(e.events, fmt.Sprintf("cancel(found=%t)", ok))
	e.mu.Unlock()

	e.nCancels.Add(1)
	if !ok {
		return false
	}
	cancel()
	return true
}

// Events returns the recorded token lifecycle events in order.
func (e *FakeEngine) Events() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.events))
	copy(out, e.events)
	return out
}

// Registered reports whether any token is currently registered.
func (e *FakeEngine) Registered() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cancels) > 0
}

// CancelCalls returns how many times Cancel was invoked.
func (e *FakeEngine) CancelCalls() int64 {
	return e.nCancels.Load()
}

// SlowQuery returns SQL that trickles rows out slowly: each row costs a
// randomblob round-trip, so materialization stays in flight long enough for
// cancellation tests to catch it, without accumulating memory.
func SlowQuery(rows int) string {
	return fmt.Sprintf(
		`WITH RECURSIVE c(x) AS (SELECT 1 UNION ALL SELECT x+1 FROM c WHERE x < %d) `+
			`SELECT length(lower(hex(randomblob(100000)))) FROM c`, rows)
}

// === Translator Stub ===

// StubTranslator implements domain.QueryTranslator with a fixed result.
type StubTranslator struct {
	SQL string
	Err error
}

var _ domain.QueryTranslator = (*StubTranslator)(nil)

// Translate returns the configured SQL or error, ignoring the definition.
func (s *StubTranslator) Translate(*domain.QueryDef) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	return s.SQL, nil
}

// === Monitor Mock ===

// MockMonitor implements domain.QueryMonitor and counts every callback so
// tests can assert the exactly-one-terminal-notification property.
type MockMonitor struct {
	cancelRequested atomic.Bool

	// CancelAfterPolls, when positive, makes ShouldCancelQuery start
	// returning true once it has been polled that many times.
	CancelAfterPolls int64

	Polls              atomic.Int64
	Completed          atomic.Int64
	Cancelled          atomic.Int64
	CancelledWithError atomic.Int64
}

var _ domain.QueryMonitor = (*MockMonitor)(nil)

// RequestCancel flips the cancel flag.
func (m *MockMonitor) RequestCancel() { m.cancelRequested.Store(true) }

// ShouldCancelQuery implements domain.QueryMonitor.
func (m *MockMonitor) ShouldCancelQuery() bool {
	n := m.Polls.Add(1)
	if m.CancelAfterPolls > 0 && n >= m.CancelAfterPolls {
		return true
	}
	return m.cancelRequested.Load()
}

// QueryCancelled implements domain.QueryMonitor.
func (m *MockMonitor) QueryCancelled() { m.Cancelled.Add(1) }

// QueryCancelledWithError implements domain.QueryMonitor.
func (m *MockMonitor) QueryCancelledWithError() { m.CancelledWithError.Add(1) }

// QueryCompleted implements domain.QueryMonitor.
func (m *MockMonitor) QueryCompleted() { m.Completed.Add(1) }

// TerminalCount returns the total number of terminal notifications received.
func (m *MockMonitor) TerminalCount() int64 {
	return m.Completed.Load() + m.Cancelled.Load() + m.CancelledWithError.Load()
}

// === Saved Query Repository Mock ===

// MemSavedQueryRepo implements domain.SavedQueryRepository in memory.
type MemSavedQueryRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[string]*domain.SavedQuery // key: principal + "\x00" + name

	// SaveErr, when set, fails every Save call.
	SaveErr error
}

var _ domain.SavedQueryRepository = (*MemSavedQueryRepo)(nil)

// NewMemSavedQueryRepo creates an empty in-memory saved-query repository.
func NewMemSavedQueryRepo() *MemSavedQueryRepo {
	return &MemSavedQueryRepo{items: make(map[string]*domain.SavedQuery)}
}

func savedKey(principal, name string) string { return principal + "\x00" + name }

// Save implements the interface method for testing.
func (r *MemSavedQueryRepo) Save(_ context.Context, q *domain.SavedQuery) (*domain.SavedQuery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SaveErr != nil {
		return nil, r.SaveErr
	}
	key := savedKey(q.Principal, q.Name)
	if _, exists := r.items[key]; exists {
		return nil, domain.ErrConflict("saved query %q already exists", q.Name)
	}
	r.nextID++
	stored := *q
	stored.ID = r.nextID
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.items[key] = &stored
	out := stored
	return &out, nil
}

// GetByName implements the interface method for testing.
func (r *MemSavedQueryRepo) GetByName(_ context.Context, principal, name string) (*domain.SavedQuery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.items[savedKey(principal, name)]
	if !ok {
		return nil, domain.ErrNotFound("saved query %q not found", name)
	}
	out := *q
	return &out, nil
}

// List implements the interface method for testing.
func (r *MemSavedQueryRepo) List(_ context.Context, principal string, page domain.PageRequest) ([]domain.SavedQuery, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []domain.SavedQuery
	for key, q := range r.items {
		if strings.HasPrefix(key, principal+"\x00") {
			all = append(all, *q)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	total := int64(len(all))

	start := page.Start()
	if start > len(all) {
		start = len(all)
	}
	end := start + page.Limit()
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

// ListNames implements the interface method for testing.
func (r *MemSavedQueryRepo) ListNames(_ context.Context, principal string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var names []string
	for key := range r.items {
		if strings.HasPrefix(key, principal+"\x00") {
			names = append(names, strings.TrimPrefix(key, principal+"\x00"))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Rename implements the interface method for testing.
func (r *MemSavedQueryRepo) Rename(_ context.Context, principal, name, newName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.items[savedKey(principal, name)]
	if !ok {
		return domain.ErrNotFound("saved query %q not found", name)
	}
	if _, exists := r.items[savedKey(principal, newName)]; exists {
		return domain.ErrConflict("saved query %q already exists", newName)
	}
	delete(r.items, savedKey(principal, name))
	q.Name = newName
	q.UpdatedAt = time.Now()
	r.items[savedKey(principal, newName)] = q
	return nil
}

// Delete implements the interface method for testing.
func (r *MemSavedQueryRepo) Delete(_ context.Context, principal, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[savedKey(principal, name)]; !ok {
		return domain.ErrNotFound("saved query %q not found", name)
	}
	delete(r.items, savedKey(principal, name))
	return nil
}

// === Query History Repository Mock ===

// MemHistoryRepo implements domain.QueryHistoryRepository in memory.
type MemHistoryRepo struct {
	mu      sync.Mutex
	nextID  int64
	entries []domain.QueryHistoryEntry

	// InsertErr, when set, fails every Insert call.
	InsertErr error
}

var _ domain.QueryHistoryRepository = (*MemHistoryRepo)(nil)

// NewMemHistoryRepo creates an empty in-memory history repository.
func NewMemHistoryRepo() *MemHistoryRepo {
	return &MemHistoryRepo{}
}

// Insert implements the interface method for testing.
func (r *MemHistoryRepo) Insert(_ context.Context, e *domain.QueryHistoryEntry) (*domain.QueryHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.InsertErr != nil {
		return nil, r.InsertErr
	}
	r.nextID++
	stored := *e
	stored.ID = r.nextID
	r.entries = append(r.entries, stored)
	out := stored
	return &out, nil
}

// List implements the interface method for testing.
func (r *MemHistoryRepo) List(_ context.Context, filter domain.QueryHistoryFilter) ([]domain.QueryHistoryEntry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []domain.QueryHistoryEntry
	for _, e := range r.entries {
		if filter.Principal != nil && e.Principal != *filter.Principal {
			continue
		}
		if filter.Status != nil && e.Status != *filter.Status {
			continue
		}
		if filter.From != nil && e.StartedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.StartedAt.After(*filter.To) {
			continue
		}
		all = append(all, e)
	}
	total := int64(len(all))

	start := filter.Page.Start()
	if start > len(all) {
		start = len(all)
	}
	end := start + filter.Page.Limit()
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

// PruneOlderThan implements the interface method for testing.
func (r *MemHistoryRepo) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []domain.QueryHistoryEntry
	var pruned int64
	for _, e := range r.entries {
		if e.StartedAt.Before(cutoff) {
			pruned++
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
	return pruned, nil
}

// PruneToCount implements the interface method for testing.
func (r *MemHistoryRepo) PruneToCount(_ context.Context, principal string, keep int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var owned []int
	for i, e := range r.entries {
		if e.Principal == principal {
			owned = append(owned, i)
		}
	}
	if len(owned) <= keep {
		return 0, nil
	}
	drop := make(map[int]bool)
	for _, i := range owned[:len(owned)-keep] {
		drop[i] = true
	}
	var kept []domain.QueryHistoryEntry
	for i, e := range r.entries {
		if !drop[i] {
			kept = append(kept, e)
		}
	}
	pruned := int64(len(r.entries) - len(kept))
	r.entries = kept
	return pruned, nil
}

// Principals implements the interface method for testing.
func (r *MemHistoryRepo) Principals(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	var principals []string
	for _, e := range r.entries {
		if !seen[e.Principal] {
			seen[e.Principal] = true
			principals = append(principals, e.Principal)
		}
	}
	sort.Strings(principals)
	return principals, nil
}

// Entries returns a copy of the stored entries for assertions.
func (r *MemHistoryRepo) Entries() []domain.QueryHistoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.QueryHistoryEntry, len(r.entries))
	copy(out, r.entries)
	return out
}
