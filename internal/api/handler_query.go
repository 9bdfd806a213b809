package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"queryd/internal/domain"
	"queryd/internal/service/query"
)

type runRequest struct {
	Query *domain.QueryDef `json:"query,omitempty"`
	Save  bool             `json:"save,omitempty"`
}

type startResponse struct {
	JobID string `json:"job_id"`
}

type jobStatusResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// setQuery stores the request body as the session's current query definition.
func (h *Handler) setQuery(w http.ResponseWriter, r *http.Request) {
	var def domain.QueryDef
	if err := decodeJSON(r, &def); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := def.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	sess := sessionFromContext(r.Context())
	sess.SetCurrentQuery(&def)
	writeJSON(w, http.StatusOK, &def)
}

// getQuery returns the session's current query definition.
func (h *Handler) getQuery(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	def, ok := sess.CurrentQuery()
	if !ok {
		h.writeError(w, r, domain.ErrNotFound("session has no current query"))
		return
	}
	writeJSON(w, http.StatusOK, def)
}

// resolveDef picks the definition to run: the request body's, falling back
// to the session's current one.
func (h *Handler) resolveDef(r *http.Request, req *runRequest) (*domain.QueryDef, error) {
	if r.ContentLength != 0 {
		if err := decodeJSON(r, req); err != nil {
			return nil, err
		}
	}
	def := req.Query
	if def == nil {
		sess := sessionFromContext(r.Context())
		current, ok := sess.CurrentQuery()
		if !ok {
			return nil, domain.ErrValidation("no query to run; set one or include it in the request")
		}
		def = current
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// runQuery executes the definition synchronously and returns the first
// result page. No monitor is attached, so the run cannot be canceled.
func (h *Handler) runQuery(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	def, err := h.resolveDef(r, &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	sess := sessionFromContext(r.Context())
	published, err := h.query.Run(r.Context(), sess, def, nil, req.Save)
	if err != nil {
		if !published {
			h.writeError(w, r, err)
			return
		}
		// Results are live; the failure was bookkeeping (history, save).
		h.logger.Warn("query run finished with infrastructure error", "error", err)
	}
	if !published {
		// The user-facing failure message is on the session's error list.
		_, errs := sess.DrainMessages()
		msg := "An error occurred while running your query."
		if len(errs) > 0 {
			msg = errs[len(errs)-1]
		}
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Code:    http.StatusUnprocessableEntity,
			Message: msg,
		})
		return
	}

	res, _ := sess.Results()
	writeJSON(w, http.StatusOK, res.Window(domain.PageRequest{}))
}

// startQuery launches a background run and returns its job id immediately.
// The monitor is a PingMonitor: status polls keep it alive, and an abandoned
// job cancels itself once the liveness window lapses.
func (h *Handler) startQuery(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	def, err := h.resolveDef(r, &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	sess := sessionFromContext(r.Context())
	monitor := query.NewPingMonitor(h.pingTimeout)
	id := h.query.StartQuery(sess, def, monitor, req.Save)
	writeJSON(w, http.StatusAccepted, startResponse{JobID: id})
}

// queryStatus polls a background job. Each poll pings the monitor so the
// liveness deadline moves forward.
func (h *Handler) queryStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess := sessionFromContext(r.Context())

	mon, ok := h.query.GetRunningQueryController(sess, id)
	if !ok {
		h.writeError(w, r, domain.ErrNotFound("job %s not found", id))
		return
	}
	if pm, ok := mon.(*query.PingMonitor); ok {
		pm.Ping()
	}
	writeJSON(w, http.StatusOK, jobStatusResponse{
		JobID:  id,
		Status: string(query.StatusOf(mon)),
	})
}

// cancelQuery requests cancellation of a background job. Cancellation is
// cooperative; the response reports the status at the time of the request.
func (h *Handler) cancelQuery(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess := sessionFromContext(r.Context())

	mon, ok := h.query.GetRunningQueryController(sess, id)
	if !ok {
		h.writeError(w, r, domain.ErrNotFound("job %s not found", id))
		return
	}
	if !query.RequestCancel(mon) {
		h.writeError(w, r, domain.ErrValidation("job %s cannot be canceled", id))
		return
	}
	writeJSON(w, http.StatusAccepted, jobStatusResponse{
		JobID:  id,
		Status: string(query.StatusOf(mon)),
	})
}
