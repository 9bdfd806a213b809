// Package session holds per-client server-side state: named attributes, the
// running-query registry, and user-facing message lists.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"queryd/internal/domain"
	"queryd/internal/results"
)

// Attribute keys for the well-known session slots. A successful run stores
// the same result table under both result keys; pages and exports read the
// table slot.
const (
	AttrCurrentQuery = "query"
	AttrQueryResults = "query_results"
	AttrResultsTable = "results_table"
)

// Session is one client's server-side state. All mutable state is guarded
// by the session's own mutex; the running-query registry in particular is
// only ever touched under it.
type Session struct {
	id        string
	principal string
	createdAt time.Time
	lastUsed  atomic.Value // stores time.Time

	mu       sync.Mutex
	attrs    map[string]any
	running  map[string]domain.QueryMonitor
	messages []string
	errs     []string

	ctx     context.Context
	cancel  context.CancelFunc
	closing atomic.Bool
}

func newSession(principal string) *Session {
	now := time.Now()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:        domain.NewID(),
		principal: principal,
		createdAt: now,
		attrs:     make(map[string]any),
		running:   make(map[string]domain.QueryMonitor),
		ctx:       ctx,
		cancel:    cancel,
	}
	s.setLastUsed(now)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Principal returns the owning principal name.
func (s *Session) Principal() string { return s.principal }

// CreatedAt returns when the session was opened.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Context is canceled when the session closes; background work launched on
// behalf of the session uses it as parent so it dies with the session.
func (s *Session) Context() context.Context { return s.ctx }

// Closing reports whether the session is shutting down.
func (s *Session) Closing() bool { return s.closing.Load() }

func (s *Session) getLastUsed() time.Time {
	if v := s.lastUsed.Load(); v != nil {
		return v.(time.Time)
	}
	return s.createdAt
}

func (s *Session) setLastUsed(t time.Time) {
	s.lastUsed.Store(t)
}

// Touch marks the session as recently used.
func (s *Session) Touch() {
	s.setLastUsed(time.Now())
}

// SetAttribute stores a named value on the session.
func (s *Session) SetAttribute(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs[key] = value
}

// Attribute reads a named value.
func (s *Session) Attribute(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.attrs[key]
	return v, ok
}

// RemoveAttribute deletes a named value.
func (s *Session) RemoveAttribute(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attrs, key)
}

// SetCurrentQuery stores def as the session's current query definition.
func (s *Session) SetCurrentQuery(def *domain.QueryDef) {
	s.SetAttribute(AttrCurrentQuery, def)
}

// CurrentQuery returns the session's current query definition.
func (s *Session) CurrentQuery() (*domain.QueryDef, bool) {
	v, ok := s.Attribute(AttrCurrentQuery)
	if !ok {
		return nil, false
	}
	def, ok := v.(*domain.QueryDef)
	return def, ok
}

// PublishResults stores pr under both result slots.
func (s *Session) PublishResults(pr *results.PagedResults) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs[AttrQueryResults] = pr
	s.attrs[AttrResultsTable] = pr
}

// Results returns the published result table, if any.
func (s *Session) Results() (*results.PagedResults, bool) {
	v, ok := s.Attribute(AttrResultsTable)
	if !ok {
		return nil, false
	}
	pr, ok := v.(*results.PagedResults)
	return pr, ok
}

// RecordMessage appends a user-facing informational message, dropping
// duplicates while preserving insertion order.
func (s *Session) RecordMessage(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = appendUnique(s.messages, msg)
}

// RecordError appends a user-facing error message, dropping duplicates
// while preserving insertion order.
func (s *Session) RecordError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = appendUnique(s.errs, msg)
}

// DrainMessages returns and clears the recorded messages and errors.
func (s *Session) DrainMessages() (messages, errs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	messages, s.messages = s.messages, nil
	errs, s.errs = s.errs, nil
	return messages, errs
}

func appendUnique(list []string, msg string) []string {
	for _, m := range list {
		if m == msg {
			return list
		}
	}
	return append(list, msg)
}

// RegisterQuery adds a monitor to the running-query registry under id.
func (s *Session) RegisterQuery(id string, mon domain.QueryMonitor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[id] = mon
}

// LookupQuery returns the monitor registered under id. A miss is a normal
// outcome: the id may be unknown, or the entry already pruned.
func (s *Session) LookupQuery(id string) (domain.QueryMonitor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mon, ok := s.running[id]
	return mon, ok
}

// RemoveQuery prunes the registry entry for id.
func (s *Session) RemoveQuery(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, id)
}

// RunningQueryIDs returns the ids currently in the registry.
func (s *Session) RunningQueryIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.running))
	for id := range s.running {
		ids = append(ids, id)
	}
	return ids
}

func (s *Session) close() {
	s.closing.Store(true)
	s.cancel()
}
