package retention

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"queryd/internal/domain"
	"queryd/internal/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func record(t *testing.T, repo *testutil.MemHistoryRepo, principal string, startedAt time.Time) {
	t.Helper()
	_, err := repo.Insert(context.Background(), &domain.QueryHistoryEntry{
		Principal: principal,
		Title:     "query on orders",
		SQLText:   "SELECT 1",
		Status:    domain.JobStatusCompleted,
		StartedAt: startedAt,
	})
	require.NoError(t, err)
}

func TestSweep_PrunesHistoryByAge(t *testing.T) {
	t.Parallel()
	repo := testutil.NewMemHistoryRepo()
	now := time.Now()
	record(t, repo, "alice", now.Add(-48*time.Hour))
	record(t, repo, "alice", now)

	sw := NewSweeper(repo, Config{HistoryMaxAge: 24 * time.Hour}, testLogger())
	require.NoError(t, sw.Sweep(context.Background()))

	assert.Len(t, repo.Entries(), 1)
}

func TestSweep_CapsHistoryPerPrincipal(t *testing.T) {
	t.Parallel()
	repo := testutil.NewMemHistoryRepo()
	now := time.Now()
	for i := 0; i < 5; i++ {
		record(t, repo, "alice", now.Add(time.Duration(-i)*time.Minute))
	}
	record(t, repo, "bob", now)

	sw := NewSweeper(repo, Config{HistoryMaxRows: 2}, testLogger())
	require.NoError(t, sw.Sweep(context.Background()))

	var alice, bob int
	for _, e := range repo.Entries() {
		switch e.Principal {
		case "alice":
			alice++
		case "bob":
			bob++
		}
	}
	assert.Equal(t, 2, alice)
	assert.Equal(t, 1, bob)
}

func TestSweep_RemovesExpiredExports(t *testing.T) {
	t.Parallel()
	spool := t.TempDir()

	stale := filepath.Join(spool, "export-old.csv")
	require.NoError(t, os.WriteFile(stale, []byte("id\n"), 0o644))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	fresh := filepath.Join(spool, "export-new.csv")
	require.NoError(t, os.WriteFile(fresh, []byte("id\n"), 0o644))

	// Non-export files are left alone regardless of age.
	other := filepath.Join(spool, "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(other, old, old))

	sw := NewSweeper(testutil.NewMemHistoryRepo(), Config{
		ExportSpoolDir: spool,
		ExportMaxAge:   time.Hour,
	}, testLogger())
	require.NoError(t, sw.Sweep(context.Background()))

	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.FileExists(t, other)
}

func TestSweep_MissingSpoolDirIsFine(t *testing.T) {
	t.Parallel()
	sw := NewSweeper(testutil.NewMemHistoryRepo(), Config{
		ExportSpoolDir: filepath.Join(t.TempDir(), "nope"),
	}, testLogger())
	require.NoError(t, sw.Sweep(context.Background()))
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	t.Parallel()
	sw := NewSweeper(testutil.NewMemHistoryRepo(), Config{Schedule: "not a schedule"}, testLogger())
	err := sw.Start()
	require.Error(t, err)
	assert.ErrorContains(t, err, "retention schedule")
}

func TestStartAndStop(t *testing.T) {
	t.Parallel()
	sw := NewSweeper(testutil.NewMemHistoryRepo(), Config{}, testLogger())
	require.NoError(t, sw.Start())
	sw.Stop()
}
