package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"queryd/internal/db"
	"queryd/internal/domain"
)

func TestAPIKeyRepo(t *testing.T) {
	t.Parallel()
	writeDB, readDB := db.OpenTestSQLite(t)
	repo := NewAPIKeyRepo(readDB)
	writer := NewAPIKeyRepo(writeDB)

	require.NoError(t, writer.Create(ctx, "alice", "hash-1"))

	principal, err := repo.PrincipalForKeyHash(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", principal)

	_, err = repo.PrincipalForKeyHash(ctx, "hash-unknown")
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)

	err = writer.Create(ctx, "bob", "hash-1")
	var conflict *domain.ConflictError
	assert.ErrorAs(t, err, &conflict)
}
