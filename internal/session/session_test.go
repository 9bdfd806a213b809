package session

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"queryd/internal/domain"
	"queryd/internal/results"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type noopMonitor struct{}

func (noopMonitor) ShouldCancelQuery() bool  { return false }
func (noopMonitor) QueryCancelled()          {}
func (noopMonitor) QueryCancelledWithError() {}
func (noopMonitor) QueryCompleted()          {}

func TestSession_Attributes(t *testing.T) {
	s := newSession("alice")

	_, ok := s.Attribute("missing")
	assert.False(t, ok)

	s.SetAttribute("k", 42)
	v, ok := s.Attribute("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	s.RemoveAttribute("k")
	_, ok = s.Attribute("k")
	assert.False(t, ok)
}

func TestSession_PublishResultsFillsBothSlots(t *testing.T) {
	s := newSession("alice")
	pr := results.FromRows([]string{"id"}, [][]interface{}{{int64(1)}}, "SELECT 1")

	s.PublishResults(pr)

	got, ok := s.Results()
	require.True(t, ok)
	assert.Same(t, pr, got)

	v, ok := s.Attribute(AttrQueryResults)
	require.True(t, ok)
	assert.Same(t, pr, v)

	v, ok = s.Attribute(AttrResultsTable)
	require.True(t, ok)
	assert.Same(t, pr, v)
}

func TestSession_CurrentQuery(t *testing.T) {
	s := newSession("alice")

	_, ok := s.CurrentQuery()
	assert.False(t, ok)

	def := &domain.QueryDef{Select: []string{"id"}, From: "orders"}
	s.SetCurrentQuery(def)

	got, ok := s.CurrentQuery()
	require.True(t, ok)
	assert.Same(t, def, got)
}

func TestSession_MessagesDeduplicateAndDrain(t *testing.T) {
	s := newSession("alice")

	s.RecordMessage("saved")
	s.RecordMessage("saved")
	s.RecordMessage("done")
	s.RecordError("boom")
	s.RecordError("boom")

	msgs, errs := s.DrainMessages()
	assert.Equal(t, []string{"saved", "done"}, msgs)
	assert.Equal(t, []string{"boom"}, errs)

	msgs, errs = s.DrainMessages()
	assert.Empty(t, msgs)
	assert.Empty(t, errs)
}

func TestSession_QueryRegistry(t *testing.T) {
	s := newSession("alice")
	mon := noopMonitor{}

	_, ok := s.LookupQuery("1")
	assert.False(t, ok, "miss on unknown id is normal")

	s.RegisterQuery("1", mon)
	got, ok := s.LookupQuery("1")
	require.True(t, ok)
	assert.Equal(t, mon, got)
	assert.Equal(t, []string{"1"}, s.RunningQueryIDs())

	s.RemoveQuery("1")
	_, ok = s.LookupQuery("1")
	assert.False(t, ok)

	s.RemoveQuery("1") // pruning twice is harmless
}

func TestManager_CreateGetClose(t *testing.T) {
	m := NewManager(time.Minute, testLogger())

	s := m.Create("alice")
	require.NotEmpty(t, s.ID())
	assert.Equal(t, 1, m.Count())

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, m.Close(s.ID()))
	assert.Equal(t, 0, m.Count())

	_, err = m.Get(s.ID())
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))

	select {
	case <-s.Context().Done():
	default:
		t.Fatal("closing a session should cancel its context")
	}
}

func TestManager_CloseUnknown(t *testing.T) {
	m := NewManager(time.Minute, testLogger())
	err := m.Close("nope")
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestManager_ReapOnceClosesIdleSessions(t *testing.T) {
	m := NewManager(10*time.Millisecond, testLogger())

	idle := m.Create("alice")
	idle.setLastUsed(time.Now().Add(-time.Minute))
	fresh := m.Create("bob")

	m.reapOnce()

	assert.Equal(t, 1, m.Count())
	_, err := m.Get(idle.ID())
	assert.Error(t, err)
	_, err = m.Get(fresh.ID())
	assert.NoError(t, err)
}

func TestManager_CloseAll(t *testing.T) {
	m := NewManager(time.Minute, testLogger())
	a := m.Create("alice")
	b := m.Create("bob")

	m.CloseAll()

	assert.Equal(t, 0, m.Count())
	for _, s := range []*Session{a, b} {
		select {
		case <-s.Context().Done():
		default:
			t.Fatalf("session %s context should be canceled", s.ID())
		}
	}
}
