package query

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"queryd/internal/domain"
	"queryd/internal/session"
	"queryd/internal/testutil"
)

var ctx = context.Background()

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig keeps polling cadences and the grace period short so async
// assertions settle quickly.
func testConfig() Config {
	return Config{
		FirstResultTick:     5 * time.Millisecond,
		SuperviseTick:       10 * time.Millisecond,
		RegistryGracePeriod: 50 * time.Millisecond,
	}
}

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	return session.NewManager(0, testLogger()).Create("alice")
}

// seededEngine returns a fake engine with a small table to query.
func seededEngine(t *testing.T) *testutil.FakeEngine {
	t.Helper()
	eng := testutil.NewFakeEngine(t)
	eng.Exec(t, `CREATE TABLE orders (id INTEGER, item TEXT)`)
	eng.Exec(t, `INSERT INTO orders VALUES (1, 'anvil'), (2, 'rocket')`)
	return eng
}

func ordersDef() *domain.QueryDef {
	return &domain.QueryDef{Select: []string{"id", "item"}, From: "orders"}
}

func TestRun_CompletesAndPublishes(t *testing.T) {
	t.Parallel()
	eng := seededEngine(t)
	history := testutil.NewMemHistoryRepo()
	svc := NewService(eng, &testutil.StubTranslator{SQL: "SELECT id, item FROM orders ORDER BY id"}, testConfig(), testLogger())
	svc.SetHistory(history)
	sess := newTestSession(t)
	mon := &testutil.MockMonitor{}

	ok, err := svc.Run(ctx, sess, ordersDef(), mon, false)
	require.NoError(t, err)
	assert.True(t, ok)

	// Exactly one terminal notification, and it is completed.
	assert.Equal(t, int64(1), mon.Completed.Load())
	assert.Equal(t, int64(1), mon.TerminalCount())

	// Both session slots point at the same fully materialized table.
	pr, found := sess.Results()
	require.True(t, found)
	assert.Equal(t, 2, pr.Size())
	slot, found := sess.Attribute(session.AttrQueryResults)
	require.True(t, found)
	assert.Same(t, pr, slot)

	// Token lifecycle: registered once, deregistered once, in that order.
	assert.Equal(t, []string{"register", "deregister"}, eng.Events())
	assert.False(t, eng.Registered())

	// One completed history row with the row count.
	entries := history.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.JobStatusCompleted, entries[0].Status)
	require.NotNil(t, entries[0].RowCount)
	assert.Equal(t, int64(2), *entries[0].RowCount)
	assert.Nil(t, entries[0].ErrorMessage)
}

func TestRun_NilMonitorRunsToCompletion(t *testing.T) {
	t.Parallel()
	eng := seededEngine(t)
	svc := NewService(eng, &testutil.StubTranslator{SQL: "SELECT id FROM orders"}, testConfig(), testLogger())
	sess := newTestSession(t)

	ok, err := svc.Run(ctx, sess, ordersDef(), nil, false)
	require.NoError(t, err)
	assert.True(t, ok)

	_, found := sess.Results()
	assert.True(t, found)
	assert.False(t, eng.Registered())
}

func TestRun_CancelDuringSupervision(t *testing.T) {
	t.Parallel()
	eng := testutil.NewFakeEngine(t)
	svc := NewService(eng, &testutil.StubTranslator{SQL: testutil.SlowQuery(10_000_000)}, testConfig(), testLogger())
	sess := newTestSession(t)
	mon := &testutil.MockMonitor{}

	go func() {
		time.Sleep(30 * time.Millisecond)
		mon.RequestCancel()
	}()

	start := time.Now()
	ok, err := svc.Run(ctx, sess, ordersDef(), mon, false)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 2*time.Second)

	// The cancel was forwarded by token and reported exactly once.
	assert.GreaterOrEqual(t, eng.CancelCalls(), int64(1))
	assert.Equal(t, int64(1), mon.Cancelled.Load())
	assert.Equal(t, int64(1), mon.TerminalCount())

	// Nothing was published.
	_, found := sess.Results()
	assert.False(t, found)

	// The worker unwinds asynchronously but always deregisters its token.
	require.Eventually(t, func() bool { return !eng.Registered() },
		5*time.Second, 10*time.Millisecond)
}

func TestRun_CancelBeforeHandleIsHonored(t *testing.T) {
	t.Parallel()
	eng := seededEngine(t)
	eng.ExecDelay = 100 * time.Millisecond
	svc := NewService(eng, &testutil.StubTranslator{SQL: "SELECT id FROM orders"}, testConfig(), testLogger())
	sess := newTestSession(t)
	mon := &testutil.MockMonitor{}
	mon.RequestCancel()

	ok, err := svc.Run(ctx, sess, ordersDef(), mon, false)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(1), mon.Cancelled.Load())
	assert.Equal(t, int64(1), mon.TerminalCount())
}

func TestRun_TranslateErrorIsGenericFailure(t *testing.T) {
	t.Parallel()
	eng := testutil.NewFakeEngine(t)
	svc := NewService(eng, &testutil.StubTranslator{Err: domain.ErrValidation("no source table")}, testConfig(), testLogger())
	sess := newTestSession(t)
	mon := &testutil.MockMonitor{}

	ok, err := svc.Run(ctx, sess, ordersDef(), mon, false)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, int64(1), mon.CancelledWithError.Load())
	assert.Equal(t, int64(1), mon.TerminalCount())

	_, errs := sess.DrainMessages()
	require.Len(t, errs, 1)
	assert.Equal(t, MsgGenericFailure, errs[0])

	// The worker died before execution: no token was ever registered.
	assert.Empty(t, eng.Events())
}

func TestRun_DurationExceededGetsItsOwnMessage(t *testing.T) {
	t.Parallel()
	eng := testutil.NewFakeEngine(t)
	eng.ExecErr = domain.ErrQueryDuration("query exceeded 30s")
	svc := NewService(eng, &testutil.StubTranslator{SQL: "SELECT 1"}, testConfig(), testLogger())
	sess := newTestSession(t)
	mon := &testutil.MockMonitor{}

	ok, err := svc.Run(ctx, sess, ordersDef(), mon, false)
	require.NoError(t, err)
	assert.False(t, ok)

	_, errs := sess.DrainMessages()
	require.Len(t, errs, 1)
	assert.Equal(t, MsgQueryDuration, errs[0])
}

func TestRun_DeadlineExceededClassifiesAsDuration(t *testing.T) {
	t.Parallel()
	eng := testutil.NewFakeEngine(t)
	eng.ExecErr = context.DeadlineExceeded
	svc := NewService(eng, &testutil.StubTranslator{SQL: "SELECT 1"}, testConfig(), testLogger())
	sess := newTestSession(t)

	ok, err := svc.Run(ctx, sess, ordersDef(), nil, false)
	require.NoError(t, err)
	assert.False(t, ok)

	_, errs := sess.DrainMessages()
	require.Len(t, errs, 1)
	assert.Equal(t, MsgQueryDuration, errs[0])
}

func TestRun_FailureRecordsHistoryRow(t *testing.T) {
	t.Parallel()
	eng := testutil.NewFakeEngine(t)
	eng.ExecErr = errors.New("disk on fire")
	history := testutil.NewMemHistoryRepo()
	svc := NewService(eng, &testutil.StubTranslator{SQL: "SELECT 1"}, testConfig(), testLogger())
	svc.SetHistory(history)
	sess := newTestSession(t)

	ok, err := svc.Run(ctx, sess, ordersDef(), nil, false)
	require.NoError(t, err)
	assert.False(t, ok)

	entries := history.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.JobStatusFailed, entries[0].Status)
	require.NotNil(t, entries[0].ErrorMessage)
	assert.Equal(t, MsgGenericFailure, *entries[0].ErrorMessage)
}

func TestRun_CancelAfterTerminalDoesNotRenotify(t *testing.T) {
	t.Parallel()
	eng := seededEngine(t)
	svc := NewService(eng, &testutil.StubTranslator{SQL: "SELECT id FROM orders"}, testConfig(), testLogger())
	sess := newTestSession(t)
	mon := &testutil.MockMonitor{}

	ok, err := svc.Run(ctx, sess, ordersDef(), mon, false)
	require.NoError(t, err)
	require.True(t, ok)

	// A cancel request landing after the run finished is a no-op: the token
	// is gone and the recorded outcome stands.
	mon.RequestCancel()
	assert.Equal(t, int64(1), mon.Completed.Load())
	assert.Equal(t, int64(1), mon.TerminalCount())
}

type stubSaver struct {
	saved []*domain.QueryDef
	err   error
}

func (s *stubSaver) SaveGenerated(_ context.Context, _ string, def *domain.QueryDef) (*domain.SavedQuery, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.saved = append(s.saved, def)
	return &domain.SavedQuery{Name: "query_1", Def: def}, nil
}

func TestRun_SaveOnSuccess(t *testing.T) {
	t.Parallel()
	eng := seededEngine(t)
	saver := &stubSaver{}
	svc := NewService(eng, &testutil.StubTranslator{SQL: "SELECT id FROM orders"}, testConfig(), testLogger())
	svc.SetSaver(saver)
	sess := newTestSession(t)

	ok, err := svc.Run(ctx, sess, ordersDef(), nil, true)
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, saver.saved, 1)

	msgs, _ := sess.DrainMessages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "query_1")
}

func TestRun_NoSaveOnFailure(t *testing.T) {
	t.Parallel()
	eng := testutil.NewFakeEngine(t)
	eng.ExecErr = errors.New("boom")
	saver := &stubSaver{}
	svc := NewService(eng, &testutil.StubTranslator{SQL: "SELECT 1"}, testConfig(), testLogger())
	svc.SetSaver(saver)
	sess := newTestSession(t)

	ok, err := svc.Run(ctx, sess, ordersDef(), nil, true)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, saver.saved)
}

func TestRun_InfrastructureErrorOnSuccessPath(t *testing.T) {
	t.Parallel()
	eng := seededEngine(t)
	history := testutil.NewMemHistoryRepo()
	history.InsertErr = errors.New("metastore gone")
	svc := NewService(eng, &testutil.StubTranslator{SQL: "SELECT id FROM orders"}, testConfig(), testLogger())
	svc.SetHistory(history)
	sess := newTestSession(t)
	mon := &testutil.MockMonitor{}

	ok, err := svc.Run(ctx, sess, ordersDef(), mon, false)

	// Results were published and the monitor notified; the infrastructure
	// failure travels separately in the error value.
	assert.True(t, ok)
	require.Error(t, err)
	assert.Equal(t, int64(1), mon.Completed.Load())
	_, found := sess.Results()
	assert.True(t, found)
}

func TestWorker_RegistersBeforePublishingHandle(t *testing.T) {
	t.Parallel()
	eng := seededEngine(t)
	w := newWorker(eng, &testutil.StubTranslator{SQL: "SELECT id FROM orders"}, ordersDef(), testLogger())

	go w.run(ctx)

	<-w.handleReady
	// The instant the handle is visible the token must be cancelable.
	events := eng.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, "register", events[0])

	<-w.done
	assert.False(t, w.failed())
	assert.Equal(t, []string{"register", "deregister"}, eng.Events())
}

func TestWorker_DeregistersOnMaterializeFailure(t *testing.T) {
	t.Parallel()
	eng := testutil.NewFakeEngine(t)
	// Valid statement, but the cursor dies mid-drain when its context is
	// canceled out from under it.
	w := newWorker(eng, &testutil.StubTranslator{SQL: testutil.SlowQuery(10_000_000)}, ordersDef(), testLogger())

	go w.run(ctx)
	<-w.handleReady
	require.True(t, eng.Cancel(w))
	<-w.done

	assert.True(t, w.failed())
	assert.False(t, eng.Registered())
}
