package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"queryd/internal/db"
	"queryd/internal/domain"
)

func insertEntry(t *testing.T, repo *QueryHistoryRepo, principal string, status domain.JobStatus, startedAt time.Time) *domain.QueryHistoryEntry {
	t.Helper()
	finished := startedAt.Add(time.Second)
	rows := int64(7)
	e := &domain.QueryHistoryEntry{
		Principal:  principal,
		Title:      "query on orders",
		Def:        sampleDef(),
		SQLText:    `SELECT "id" FROM "orders"`,
		Status:     status,
		StartedAt:  startedAt,
		FinishedAt: &finished,
	}
	if status == domain.JobStatusCompleted {
		e.RowCount = &rows
	}
	if status == domain.JobStatusFailed {
		msg := "An error occurred while running your query."
		e.ErrorMessage = &msg
	}
	stored, err := repo.Insert(ctx, e)
	require.NoError(t, err)
	return stored
}

func TestQueryHistoryRepo_InsertAndList(t *testing.T) {
	t.Parallel()
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewQueryHistoryRepo(writeDB)

	now := time.Now()
	insertEntry(t, repo, "alice", domain.JobStatusCompleted, now.Add(-2*time.Hour))
	insertEntry(t, repo, "alice", domain.JobStatusFailed, now.Add(-time.Hour))
	insertEntry(t, repo, "bob", domain.JobStatusCompleted, now)

	entries, total, err := repo.List(ctx, domain.QueryHistoryFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, entries, 3)
	// Newest first.
	assert.Equal(t, "bob", entries[0].Principal)

	completed := entries[2]
	assert.Equal(t, domain.JobStatusCompleted, completed.Status)
	require.NotNil(t, completed.RowCount)
	assert.EqualValues(t, 7, *completed.RowCount)
	require.NotNil(t, completed.Def)
	assert.Equal(t, "orders", completed.Def.From)
	require.NotNil(t, completed.FinishedAt)
}

func TestQueryHistoryRepo_Filters(t *testing.T) {
	t.Parallel()
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewQueryHistoryRepo(writeDB)

	now := time.Now()
	insertEntry(t, repo, "alice", domain.JobStatusCompleted, now.Add(-2*time.Hour))
	insertEntry(t, repo, "alice", domain.JobStatusFailed, now.Add(-time.Hour))
	insertEntry(t, repo, "bob", domain.JobStatusCompleted, now)

	alice := "alice"
	entries, total, err := repo.List(ctx, domain.QueryHistoryFilter{Principal: &alice})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, entries, 2)

	failed := domain.JobStatusFailed
	entries, _, err = repo.List(ctx, domain.QueryHistoryFilter{Principal: &alice, Status: &failed})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].ErrorMessage)

	from := now.Add(-90 * time.Minute)
	entries, total, err = repo.List(ctx, domain.QueryHistoryFilter{From: &from})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, entries, 2)
}

func TestQueryHistoryRepo_Pagination(t *testing.T) {
	t.Parallel()
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewQueryHistoryRepo(writeDB)

	now := time.Now()
	for i := 0; i < 5; i++ {
		insertEntry(t, repo, "alice", domain.JobStatusCompleted, now.Add(time.Duration(-i)*time.Minute))
	}

	page, total, err := repo.List(ctx, domain.QueryHistoryFilter{Page: domain.PageRequest{Offset: 2, Size: 2}})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Len(t, page, 2)
}

func TestQueryHistoryRepo_Principals(t *testing.T) {
	t.Parallel()
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewQueryHistoryRepo(writeDB)

	now := time.Now()
	insertEntry(t, repo, "bob", domain.JobStatusCompleted, now)
	insertEntry(t, repo, "alice", domain.JobStatusCompleted, now)
	insertEntry(t, repo, "alice", domain.JobStatusFailed, now)

	principals, err := repo.Principals(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, principals)
}

func TestQueryHistoryRepo_PruneOlderThan(t *testing.T) {
	t.Parallel()
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewQueryHistoryRepo(writeDB)

	now := time.Now()
	insertEntry(t, repo, "alice", domain.JobStatusCompleted, now.Add(-48*time.Hour))
	insertEntry(t, repo, "alice", domain.JobStatusCompleted, now)

	pruned, err := repo.PruneOlderThan(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, pruned)

	_, total, err := repo.List(ctx, domain.QueryHistoryFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestQueryHistoryRepo_PruneToCount(t *testing.T) {
	t.Parallel()
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewQueryHistoryRepo(writeDB)

	now := time.Now()
	for i := 0; i < 5; i++ {
		insertEntry(t, repo, "alice", domain.JobStatusCompleted, now.Add(time.Duration(-i)*time.Minute))
	}
	insertEntry(t, repo, "bob", domain.JobStatusCompleted, now)

	pruned, err := repo.PruneToCount(ctx, "alice", 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, pruned)

	alice := "alice"
	_, total, err := repo.List(ctx, domain.QueryHistoryFilter{Principal: &alice})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	// Other principals' history is untouched.
	bob := "bob"
	_, total, err = repo.List(ctx, domain.QueryHistoryFilter{Principal: &bob})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}
