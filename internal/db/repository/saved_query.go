package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"queryd/internal/domain"
)

// SavedQueryRepo implements domain.SavedQueryRepository.
type SavedQueryRepo struct {
	db *sql.DB
}

var _ domain.SavedQueryRepository = (*SavedQueryRepo)(nil)

// NewSavedQueryRepo creates a SavedQueryRepo on the write pool.
func NewSavedQueryRepo(db *sql.DB) *SavedQueryRepo {
	return &SavedQueryRepo{db: db}
}

// Save inserts a new saved query. A duplicate (principal, name) pair maps
// to a ConflictError.
func (r *SavedQueryRepo) Save(ctx context.Context, q *domain.SavedQuery) (*domain.SavedQuery, error) {
	def, err := marshalDef(q.Def)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO saved_queries (principal, name, definition, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		q.Principal, q.Name, def, formatTime(now), formatTime(now))
	if err != nil {
		return nil, mapDBError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	stored := *q
	stored.ID = id
	stored.CreatedAt = now
	stored.UpdatedAt = now
	return &stored, nil
}

// GetByName returns the principal's saved query with the given name.
func (r *SavedQueryRepo) GetByName(ctx context.Context, principal, name string) (*domain.SavedQuery, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, principal, name, definition, created_at, updated_at
		 FROM saved_queries WHERE principal = ? AND name = ?`,
		principal, name)

	q, err := scanSavedQuery(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound("saved query %q not found", name)
		}
		return nil, err
	}
	return q, nil
}

// List returns a page of the principal's saved queries ordered by name.
func (r *SavedQueryRepo) List(ctx context.Context, principal string, page domain.PageRequest) ([]domain.SavedQuery, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM saved_queries WHERE principal = ?`, principal,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count saved queries: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, principal, name, definition, created_at, updated_at
		 FROM saved_queries WHERE principal = ?
		 ORDER BY name LIMIT ? OFFSET ?`,
		principal, page.Limit(), page.Start())
	if err != nil {
		return nil, 0, fmt.Errorf("list saved queries: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.SavedQuery
	for rows.Next() {
		q, err := scanSavedQuery(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *q)
	}
	return out, total, rows.Err()
}

// ListNames returns the names of all the principal's saved queries.
func (r *SavedQueryRepo) ListNames(ctx context.Context, principal string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name FROM saved_queries WHERE principal = ? ORDER BY name`, principal)
	if err != nil {
		return nil, fmt.Errorf("list saved query names: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// Rename changes a saved query's name in place.
func (r *SavedQueryRepo) Rename(ctx context.Context, principal, name, newName string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE saved_queries SET name = ?, updated_at = ?
		 WHERE principal = ? AND name = ?`,
		newName, formatTime(time.Now()), principal, name)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound("saved query %q not found", name)
	}
	return nil
}

// Delete removes the principal's saved query with the given name.
func (r *SavedQueryRepo) Delete(ctx context.Context, principal, name string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM saved_queries WHERE principal = ? AND name = ?`,
		principal, name)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound("saved query %q not found", name)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSavedQuery(row rowScanner) (*domain.SavedQuery, error) {
	var q domain.SavedQuery
	var def, createdAt, updatedAt string
	if err := row.Scan(&q.ID, &q.Principal, &q.Name, &def, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if q.Def, err = unmarshalDef(def); err != nil {
		return nil, err
	}
	if q.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if q.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &q, nil
}
