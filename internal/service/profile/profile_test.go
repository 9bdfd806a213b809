package profile

import (
	"context"
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

func newService() (*Service, *testutil.MemSavedQueryRepo, *testutil.MemHistoryRepo) {
	saved := testutil.NewMemSavedQueryRepo()
	history := testutil.NewMemHistoryRepo()
	return NewService(saved, history, testLogger()), saved, history
}

func sampleDef() *domain.QueryDef {
	return &domain.QueryDef{Select: []string{"id"}, From: "orders"}
}

func TestFindUnusedName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "query_1", FindUnusedName(nil))
	assert.Equal(t, "query_2", FindUnusedName([]string{"query_1"}))
	assert.Equal(t, "query_1", FindUnusedName([]string{"report", "query_2"}))
	assert.Equal(t, "query_3", FindUnusedName([]string{"query_1", "query_2"}))
}

func TestSaveAs_AndGet(t *testing.T) {
	t.Parallel()
	svc, _, _ := newService()

	saved, err := svc.SaveAs(ctx, "alice", "daily", sampleDef())
	require.NoError(t, err)
	assert.Equal(t, "daily", saved.Name)

	got, err := svc.Get(ctx, "alice", "daily")
	require.NoError(t, err)
	assert.Equal(t, "orders", got.Def.From)

	// Saved queries are scoped per principal.
	_, err = svc.Get(ctx, "bob", "daily")
	assert.True(t, domain.IsNotFound(err))
}

func TestSaveAs_RejectsEmptyName(t *testing.T) {
	t.Parallel()
	svc, _, _ := newService()

	_, err := svc.SaveAs(ctx, "alice", "  ", sampleDef())
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSaveAs_RejectsInvalidDefinition(t *testing.T) {
	t.Parallel()
	svc, _, _ := newService()

	_, err := svc.SaveAs(ctx, "alice", "daily", &domain.QueryDef{From: "orders"})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSaveGenerated_PicksFreshNames(t *testing.T) {
	t.Parallel()
	svc, _, _ := newService()

	first, err := svc.SaveGenerated(ctx, "alice", sampleDef())
	require.NoError(t, err)
	assert.Equal(t, "query_1", first.Name)

	second, err := svc.SaveGenerated(ctx, "alice", sampleDef())
	require.NoError(t, err)
	assert.Equal(t, "query_2", second.Name)

	// Another principal's numbering starts over.
	other, err := svc.SaveGenerated(ctx, "bob", sampleDef())
	require.NoError(t, err)
	assert.Equal(t, "query_1", other.Name)
}

func TestRenameAndDelete(t *testing.T) {
	t.Parallel()
	svc, _, _ := newService()

	_, err := svc.SaveAs(ctx, "alice", "daily", sampleDef())
	require.NoError(t, err)

	require.NoError(t, svc.Rename(ctx, "alice", "daily", "weekly"))
	_, err = svc.Get(ctx, "alice", "daily")
	assert.True(t, domain.IsNotFound(err))
	_, err = svc.Get(ctx, "alice", "weekly")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "alice", "weekly"))
	_, err = svc.Get(ctx, "alice", "weekly")
	assert.True(t, domain.IsNotFound(err))
}

func TestLoadIntoSession(t *testing.T) {
	t.Parallel()
	svc, _, _ := newService()
	sess := session.NewManager(0, testLogger()).Create("alice")

	_, err := svc.SaveAs(ctx, "alice", "daily", sampleDef())
	require.NoError(t, err)

	q, err := svc.LoadIntoSession(ctx, sess, "daily")
	require.NoError(t, err)

	current, ok := sess.CurrentQuery()
	require.True(t, ok)
	assert.Equal(t, q.Def, current)

	msgs, _ := sess.DrainMessages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "daily")
}

func TestLoadIntoSession_MissingQuery(t *testing.T) {
	t.Parallel()
	svc, _, _ := newService()
	sess := session.NewManager(0, testLogger()).Create("alice")

	_, err := svc.LoadIntoSession(ctx, sess, "nope")
	assert.True(t, domain.IsNotFound(err))
	_, ok := sess.CurrentQuery()
	assert.False(t, ok)
}

func TestHistory_Filtering(t *testing.T) {
	t.Parallel()
	svc, _, history := newService()

	now := time.Now()
	for _, e := range []domain.QueryHistoryEntry{
		{Principal: "alice", Status: domain.JobStatusCompleted, StartedAt: now.Add(-time.Hour)},
		{Principal: "alice", Status: domain.JobStatusFailed, StartedAt: now},
		{Principal: "bob", Status: domain.JobStatusCompleted, StartedAt: now},
	} {
		entry := e
		_, err := history.Insert(ctx, &entry)
		require.NoError(t, err)
	}

	alice := "alice"
	entries, total, err := svc.History(ctx, domain.QueryHistoryFilter{Principal: &alice})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, entries, 2)

	failed := domain.JobStatusFailed
	entries, total, err = svc.History(ctx, domain.QueryHistoryFilter{Principal: &alice, Status: &failed})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.JobStatusFailed, entries[0].Status)
}
