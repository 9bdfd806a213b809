package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"

	"queryd/internal/db"
	"queryd/internal/domain"
)

var ctx = context.Background()

func sampleDef() *domain.QueryDef {
	return &domain.QueryDef{
		Select: []string{"id", "item"},
		From:   "orders",
		Where:  []domain.Constraint{{Column: "id", Op: domain.OpGt, Value: "10"}},
	}
}

func TestSavedQueryRepo_SaveAndGet(t *testing.T) {
	t.Parallel()
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewSavedQueryRepo(writeDB)

	saved, err := repo.Save(ctx, &domain.SavedQuery{
		Principal: "alice", Name: "daily", Def: sampleDef(),
	})
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())

	got, err := repo.GetByName(ctx, "alice", "daily")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
	require.NotNil(t, got.Def)
	assert.Equal(t, "orders", got.Def.From)
	require.Len(t, got.Def.Where, 1)
	assert.Equal(t, domain.OpGt, got.Def.Where[0].Op)
}

func TestSavedQueryRepo_DuplicateNameConflicts(t *testing.T) {
	t.Parallel()
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewSavedQueryRepo(writeDB)

	_, err := repo.Save(ctx, &domain.SavedQuery{Principal: "alice", Name: "daily", Def: sampleDef()})
	require.NoError(t, err)

	_, err = repo.Save(ctx, &domain.SavedQuery{Principal: "alice", Name: "daily", Def: sampleDef()})
	var conflict *domain.ConflictError
	assert.ErrorAs(t, err, &conflict)

	// Same name under a different principal is fine.
	_, err = repo.Save(ctx, &domain.SavedQuery{Principal: "bob", Name: "daily", Def: sampleDef()})
	assert.NoError(t, err)
}

func TestSavedQueryRepo_GetMissing(t *testing.T) {
	t.Parallel()
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewSavedQueryRepo(writeDB)

	_, err := repo.GetByName(ctx, "alice", "nope")
	assert.True(t, domain.IsNotFound(err))
}

func TestSavedQueryRepo_ListAndNames(t *testing.T) {
	t.Parallel()
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewSavedQueryRepo(writeDB)

	for _, name := range []string{"beta", "alpha", "gamma"} {
		_, err := repo.Save(ctx, &domain.SavedQuery{Principal: "alice", Name: name, Def: sampleDef()})
		require.NoError(t, err)
	}
	_, err := repo.Save(ctx, &domain.SavedQuery{Principal: "bob", Name: "other", Def: sampleDef()})
	require.NoError(t, err)

	list, total, err := repo.List(ctx, "alice", domain.PageRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, list, 3)
	assert.Equal(t, "alpha", list[0].Name)

	page, total, err := repo.List(ctx, "alice", domain.PageRequest{Offset: 1, Size: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "beta", page[0].Name)

	names, err := repo.ListNames(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, names)
}

func TestSavedQueryRepo_RenameAndDelete(t *testing.T) {
	t.Parallel()
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewSavedQueryRepo(writeDB)

	_, err := repo.Save(ctx, &domain.SavedQuery{Principal: "alice", Name: "daily", Def: sampleDef()})
	require.NoError(t, err)

	require.NoError(t, repo.Rename(ctx, "alice", "daily", "weekly"))
	_, err = repo.GetByName(ctx, "alice", "weekly")
	require.NoError(t, err)

	assert.True(t, domain.IsNotFound(repo.Rename(ctx, "alice", "daily", "x")))

	require.NoError(t, repo.Delete(ctx, "alice", "weekly"))
	assert.True(t, domain.IsNotFound(repo.Delete(ctx, "alice", "weekly")))
}
