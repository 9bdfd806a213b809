package api

import (
	"net/http"
	"time"

	"queryd/internal/domain"
)

type historyEntryResponse struct {
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

type historyListResponse struct {
	Entries []historyEntryResponse `json:"entries"`
	Total   int64                  `json:"total"`
}

// listHistory returns the principal's run history, newest first. Optional
// filters: status, from, to (RFC 3339), offset, limit.
func (h *Handler) listHistory(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	principal := principalName(r)
	filter := domain.QueryHistoryFilter{Principal: &principal, Page: page}

	if v := r.URL.Query().Get("status"); v != "" {
		status := domain.JobStatus(v)
		switch status {
		case domain.JobStatusCompleted, domain.JobStatusFailed, domain.JobStatusCanceled:
			filter.Status = &status
		default:
			h.writeError(w, r, domain.ErrValidation("unknown status %q", v))
			return
		}
	}
	if v := r.URL.Query().Get("from"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.writeError(w, r, domain.ErrValidation("invalid from timestamp %q", v))
			return
		}
		filter.From = &ts
	}
	if v := r.URL.Query().Get("to"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.writeError(w, r, domain.ErrValidation("invalid to timestamp %q", v))
			return
		}
		filter.To = &ts
	}

	entries, total, err := h.profile.History(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := historyListResponse{Entries: make([]historyEntryResponse, 0, len(entries)), Total: total}
	for i := range entries {
		e := &entries[i]
		out.Entries = append(out.Entries, historyEntryResponse{
			ID:           e.ID,
			Title:        e.Title,
			Query:        e.Def,
			SQL:          e.SQLText,
			Status:       string(e.Status),
			ErrorMessage: e.ErrorMessage,
			RowCount:     e.RowCount,
			StartedAt:    e.StartedAt,
			FinishedAt:   e.FinishedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
