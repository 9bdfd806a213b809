package repository

import (
	"context"
	"database/sql"
)

// APIKeyRepo implements middleware.APIKeyLookup. Keys are stored hashed;
// the plaintext never touches the metastore.
type APIKeyRepo struct {
	db *sql.DB
}

// NewAPIKeyRepo creates an APIKeyRepo on the read pool.
func NewAPIKeyRepo(db *sql.DB) *APIKeyRepo {
	return &APIKeyRepo{db: db}
}

// PrincipalForKeyHash returns the principal owning the key with the given
// hash. An unknown hash maps to a NotFoundError.
func (r *APIKeyRepo) PrincipalForKeyHash(ctx context.Context, keyHash string) (string, error) {
	var principal string
	err := r.db.QueryRowContext(ctx,
		`SELECT principal FROM api_keys WHERE key_hash = ?`, keyHash).Scan(&principal)
	if err != nil {
		return "", mapDBError(err)
	}
	return principal, nil
}

// Create registers a key hash for a principal.
func (r *APIKeyRepo) Create(ctx context.Context, principal, keyHash string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO api_keys (principal, key_hash) VALUES (?, ?)`, principal, keyHash)
	return mapDBError(err)
}
