package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"queryd/internal/domain"
)

// getResults pages through the session's published result table.
func (h *Handler) getResults(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	res, ok := sess.Results()
	if !ok {
		h.writeError(w, r, domain.ErrNotFound("session has no results; run a query first"))
		return
	}

	page, err := pageFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Window(page))
}

// exportResults writes the current results to the export destination and
// returns a download URL or local file name.
func (h *Handler) exportResults(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	sess := sessionFromContext(r.Context())
	res, err := h.export.Export(r.Context(), sess, format)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// downloadExport serves a spooled export file.
func (h *Handler) downloadExport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "file")
	path, err := h.export.SpoolPath(name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeFile(w, r, path)
}
