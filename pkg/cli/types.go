package cli

import (
	"time"

	"queryd/internal/domain"
)

// Response shapes mirrored from the HTTP API.

// SessionInfo describes an open session.
type SessionInfo struct {
	SessionID string    `json:"session_id"`
	Principal string    `json:"principal"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionMessages holds pending informational and error messages.
type SessionMessages struct {
	Messages []string `json:"messages"`
	Errors   []string `json:"errors"`
}

// JobStatus describes a background query job.
type JobStatus struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// ResultPage is a window over a published result table.
type ResultPage struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
	Offset  int             `json:"offset"`
	Total   int             `json:"total"`
	HasMore bool            `json:"has_more"`
}

// SavedQuery is a named stored query definition.
type SavedQuery struct {
	Name      string           `json:"name"`
	Query     *domain.QueryDef `json:"query"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// SavedQueryList is a page of saved queries.
type SavedQueryList struct {
	Queries []SavedQuery `json:"queries"`
	Total   int64        `json:"total"`
}

// HistoryEntry is one recorded query run.
type HistoryEntry struct {
	ID           int64            `json:"id"`
	Title        string           `json:"title"`
	Query        *domain.QueryDef `json:"query,omitempty"`
	SQL          string           `json:"sql"`
	Status       string           `json:"status"`
	ErrorMessage *string          `json:"error_message,omitempty"`
	RowCount     *int64           `json:"row_count,omitempty"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   *time.Time       `json:"finished_at,omitempty"`
}

// HistoryList is a page of history entries.
type HistoryList struct {
	Entries []HistoryEntry `json:"entries"`
	Total   int64          `json:"total"`
}

// ExportResult points at an exported result file.
type ExportResult struct {
	Format    string     `json:"format"`
	URL       string     `json:"url,omitempty"`
	File      string     `json:"file,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// TokenGrant is a dev-mode issued token.
type TokenGrant struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
