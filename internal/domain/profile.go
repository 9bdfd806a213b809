package domain

import "time"

// SavedQuery is a named query definition owned by a principal.
// Names are unique per principal.
type SavedQuery struct {
	ID        int64
	Principal string
	Name      string
	Def       *QueryDef
	CreatedAt time.Time
	UpdatedAt time.Time
}

// QueryHistoryEntry records one finished query run.
type QueryHistoryEntry struct {
	ID           int64
	Principal    string
	Title        string
	Def          *QueryDef
	SQLText      string
	Status       JobStatus
	ErrorMessage *string
	RowCount     *int64
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// QueryHistoryFilter holds filter parameters for listing run history.
type QueryHistoryFilter struct {
	Principal *string
	Status    *JobStatus
	From      *time.Time
	To        *time.Time
	Page      PageRequest
}
