package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"queryd/internal/domain"
)

// QueryHistoryRepo implements domain.QueryHistoryRepository.
type QueryHistoryRepo struct {
	db *sql.DB
}

var _ domain.QueryHistoryRepository = (*QueryHistoryRepo)(nil)

// NewQueryHistoryRepo creates a QueryHistoryRepo on the write pool.
func NewQueryHistoryRepo(db *sql.DB) *QueryHistoryRepo {
	return &QueryHistoryRepo{db: db}
}

// Insert records one finished run.
func (r *QueryHistoryRepo) Insert(ctx context.Context, e *domain.QueryHistoryEntry) (*domain.QueryHistoryEntry, error) {
	def, err := marshalDef(e.Def)
	if err != nil {
		return nil, err
	}

	var finishedAt any
	if e.FinishedAt != nil {
		finishedAt = formatTime(*e.FinishedAt)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO query_history
		   (principal, title, definition, sql_text, status, error_message, row_count, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Principal, e.Title, def, e.SQLText, string(e.Status),
		e.ErrorMessage, e.RowCount, formatTime(e.StartedAt), finishedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	stored := *e
	stored.ID = id
	return &stored, nil
}

// List returns a filtered page of history entries, newest first.
func (r *QueryHistoryRepo) List(ctx context.Context, filter domain.QueryHistoryFilter) ([]domain.QueryHistoryEntry, int64, error) {
	var conds []string
	var args []any
	if filter.Principal != nil {
		conds = append(conds, "principal = ?")
		args = append(args, *filter.Principal)
	}
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.From != nil {
		conds = append(conds, "started_at >= ?")
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		conds = append(conds, "started_at <= ?")
		args = append(args, formatTime(*filter.To))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM query_history"+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count query history: %w", err)
	}

	query := `SELECT id, principal, title, definition, sql_text, status, error_message, row_count, started_at, finished_at
		 FROM query_history` + where + ` ORDER BY started_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Page.Limit(), filter.Page.Start())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list query history: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.QueryHistoryEntry
	for rows.Next() {
		var e domain.QueryHistoryEntry
		var def, startedAt string
		var finishedAt, errMsg sql.NullString
		var rowCount sql.NullInt64
		var status string
		if err := rows.Scan(&e.ID, &e.Principal, &e.Title, &def, &e.SQLText,
			&status, &errMsg, &rowCount, &startedAt, &finishedAt); err != nil {
			return nil, 0, err
		}

		e.Status = domain.JobStatus(status)
		if e.Def, err = unmarshalDef(def); err != nil {
			return nil, 0, err
		}
		if e.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, 0, fmt.Errorf("parse started_at: %w", err)
		}
		if finishedAt.Valid {
			t, err := parseTime(finishedAt.String)
			if err != nil {
				return nil, 0, fmt.Errorf("parse finished_at: %w", err)
			}
			e.FinishedAt = &t
		}
		if errMsg.Valid {
			e.ErrorMessage = &errMsg.String
		}
		if rowCount.Valid {
			e.RowCount = &rowCount.Int64
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// PruneOlderThan deletes entries started before cutoff and reports how many
// rows went away.
func (r *QueryHistoryRepo) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM query_history WHERE started_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, mapDBError(err)
	}
	return res.RowsAffected()
}

// PruneToCount keeps the principal's newest keep entries and deletes the rest.
func (r *QueryHistoryRepo) PruneToCount(ctx context.Context, principal string, keep int) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM query_history
		 WHERE principal = ? AND id NOT IN (
		   SELECT id FROM query_history WHERE principal = ?
		   ORDER BY started_at DESC, id DESC LIMIT ?
		 )`,
		principal, principal, keep)
	if err != nil {
		return 0, mapDBError(err)
	}
	return res.RowsAffected()
}

// Principals lists the distinct principals with history rows.
func (r *QueryHistoryRepo) Principals(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT principal FROM query_history ORDER BY principal`)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()

	var principals []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan principal: %w", err)
		}
		principals = append(principals, p)
	}
	return principals, rows.Err()
}
