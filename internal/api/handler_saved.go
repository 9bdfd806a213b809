package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"queryd/internal/domain"
)

type savedQueryResponse struct {
	Name      string           `json:"name"`
	Query     *domain.QueryDef `json:"query"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type savedQueryListResponse struct {
	Queries []savedQueryResponse `json:"queries"`
	Total   int64                `json:"total"`
}

type saveQueryRequest struct {
	Name  string           `json:"name"`
	Query *domain.QueryDef `json:"query,omitempty"`
}

type renameRequest struct {
	Name string `json:"name"`
}

func savedToAPI(sq *domain.SavedQuery) savedQueryResponse {
	return savedQueryResponse{
		Name:      sq.Name,
		Query:     sq.Def,
		CreatedAt: sq.CreatedAt,
		UpdatedAt: sq.UpdatedAt,
	}
}

func (h *Handler) listSavedQueries(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	queries, total, err := h.profile.List(r.Context(), principalName(r), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := savedQueryListResponse{Queries: make([]savedQueryResponse, 0, len(queries)), Total: total}
	for i := range queries {
		out.Queries = append(out.Queries, savedToAPI(&queries[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// saveQuery stores a definition under a name. The definition defaults to the
// session's current query.
func (h *Handler) saveQuery(w http.ResponseWriter, r *http.Request) {
	var req saveQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	def := req.Query
	if def == nil {
		sess := sessionFromContext(r.Context())
		current, ok := sess.CurrentQuery()
		if !ok {
			h.writeError(w, r, domain.ErrValidation("no query to save; set one or include it in the request"))
			return
		}
		def = current
	}

	saved, err := h.profile.SaveAs(r.Context(), principalName(r), req.Name, def)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, savedToAPI(saved))
}

func (h *Handler) getSavedQuery(w http.ResponseWriter, r *http.Request) {
	saved, err := h.profile.Get(r.Context(), principalName(r), chi.URLParam(r, "name"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, savedToAPI(saved))
}

func (h *Handler) renameSavedQuery(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	name := chi.URLParam(r, "name")
	if err := h.profile.Rename(r.Context(), principalName(r), name, req.Name); err != nil {
		h.writeError(w, r, err)
		return
	}

	saved, err := h.profile.Get(r.Context(), principalName(r), req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, savedToAPI(saved))
}

func (h *Handler) deleteSavedQuery(w http.ResponseWriter, r *http.Request) {
	if err := h.profile.Delete(r.Context(), principalName(r), chi.URLParam(r, "name")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadSavedQuery sets a saved definition as the session's current query.
func (h *Handler) loadSavedQuery(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	saved, err := h.profile.LoadIntoSession(r.Context(), sess, chi.URLParam(r, "name"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, savedToAPI(saved))
}
