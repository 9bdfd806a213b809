package ui

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"queryd/internal/domain"
	"queryd/internal/service/query"
)

const resultsPageSize = 50

// EditorPage renders the query editor with the session's current definition
// and any pending messages.
func (h *Handler) EditorPage(w http.ResponseWriter, r *http.Request) {
	sess := h.uiSession(w, r)
	defText := ""
	if def, ok := sess.CurrentQuery(); ok {
		if b, err := json.MarshalIndent(def, "", "  "); err == nil {
			defText = string(b)
		}
	}
	messages, errs := sess.DrainMessages()
	renderHTML(w, http.StatusOK, editorPage(r.Context(), principalFromContext(r), defText, messages, errs))
}

// parseDefForm decodes the editor textarea into a validated definition.
func parseDefForm(r *http.Request) (*domain.QueryDef, error) {
	if err := r.ParseForm(); err != nil {
		return nil, domain.ErrValidation("invalid form: %v", err)
	}
	raw := strings.TrimSpace(r.Form.Get("definition"))
	if raw == "" {
		return nil, domain.ErrValidation("query definition is required")
	}
	var def domain.QueryDef
	if err := json.Unmarshal([]byte(raw), &def); err != nil {
		return nil, domain.ErrValidation("definition is not valid JSON: %v", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// RunQuery executes the editor definition synchronously and lands on the
// results page. Failures go back to the editor; the user-facing message is
// on the session's error list.
func (h *Handler) RunQuery(w http.ResponseWriter, r *http.Request) {
	sess := h.uiSession(w, r)
	def, err := parseDefForm(r)
	if err != nil {
		sess.RecordError(err.Error())
		http.Redirect(w, r, "/ui", http.StatusSeeOther)
		return
	}

	published, _ := h.Query.Run(r.Context(), sess, def, nil, r.Form.Get("save") == "on")
	if !published {
		http.Redirect(w, r, "/ui", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/ui/results", http.StatusSeeOther)
}

// StartQuery launches a background run and lands on the jobs page, which
// polls by refresh.
func (h *Handler) StartQuery(w http.ResponseWriter, r *http.Request) {
	sess := h.uiSession(w, r)
	def, err := parseDefForm(r)
	if err != nil {
		sess.RecordError(err.Error())
		http.Redirect(w, r, "/ui", http.StatusSeeOther)
		return
	}

	monitor := query.NewPingMonitor(h.PingTimeout)
	h.Query.StartQuery(sess, def, monitor, r.Form.Get("save") == "on")
	http.Redirect(w, r, "/ui/jobs", http.StatusSeeOther)
}

// JobsPage lists the session's registered background jobs. Rendering a row
// pings its monitor, so an open jobs page keeps the jobs alive.
func (h *Handler) JobsPage(w http.ResponseWriter, r *http.Request) {
	sess := h.uiSession(w, r)

	ids := sess.RunningQueryIDs()
	sort.Strings(ids)
	rows := make([]jobRow, 0, len(ids))
	for _, id := range ids {
		mon, ok := sess.LookupQuery(id)
		if !ok {
			continue
		}
		if pm, ok := mon.(*query.PingMonitor); ok {
			pm.Ping()
		}
		status := query.StatusOf(mon)
		rows = append(rows, jobRow{
			ID:         id,
			Status:     string(status),
			Cancelable: status == domain.JobStatusRunning,
		})
	}

	messages, errs := sess.DrainMessages()
	renderHTML(w, http.StatusOK, jobsPage(r.Context(), principalFromContext(r), rows, messages, errs))
}

// CancelJob requests cancellation of one background job.
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	sess := h.uiSession(w, r)
	id := chi.URLParam(r, "id")

	if mon, ok := h.Query.GetRunningQueryController(sess, id); ok {
		if query.RequestCancel(mon) {
			sess.RecordMessage("Cancellation requested for job " + id + ".")
		}
	} else {
		sess.RecordError("Job " + id + " not found.")
	}
	http.Redirect(w, r, "/ui/jobs", http.StatusSeeOther)
}

// ResultsPage shows one page of the session's result table.
func (h *Handler) ResultsPage(w http.ResponseWriter, r *http.Request) {
	sess := h.uiSession(w, r)
	res, ok := sess.Results()
	if !ok {
		renderHTML(w, http.StatusOK, noResultsPage(r.Context(), principalFromContext(r)))
		return
	}

	page := res.Window(domain.PageRequest{Offset: pageOffset(r), Size: resultsPageSize})
	messages, errs := sess.DrainMessages()
	renderHTML(w, http.StatusOK, resultsPage(r.Context(), principalFromContext(r), page, messages, errs))
}

// DownloadCSV streams the full result table as a CSV attachment.
func (h *Handler) DownloadCSV(w http.ResponseWriter, r *http.Request) {
	sess := h.uiSession(w, r)
	res, ok := sess.Results()
	if !ok {
		http.Redirect(w, r, "/ui/results", http.StatusSeeOther)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="query-results.csv"`)
	_ = res.WriteCSV(w)
}

// SavedPage lists the principal's saved queries.
func (h *Handler) SavedPage(w http.ResponseWriter, r *http.Request) {
	sess := h.uiSession(w, r)
	saved, _, err := h.Profile.List(r.Context(), sess.Principal(), domain.PageRequest{Size: 100})
	if err != nil {
		renderHTML(w, http.StatusInternalServerError, errorPage("Saved Queries", "Could not load saved queries."))
		return
	}
	messages, errs := sess.DrainMessages()
	renderHTML(w, http.StatusOK, savedPage(r.Context(), principalFromContext(r), saved, messages, errs))
}

// SaveQuery names and stores the session's current definition.
func (h *Handler) SaveQuery(w http.ResponseWriter, r *http.Request) {
	sess := h.uiSession(w, r)
	if err := r.ParseForm(); err != nil {
		sess.RecordError("Invalid form.")
		http.Redirect(w, r, "/ui/saved", http.StatusSeeOther)
		return
	}
	name := strings.TrimSpace(r.Form.Get("name"))
	def, ok := sess.CurrentQuery()
	if !ok {
		sess.RecordError("No current query to save. Run one first.")
		http.Redirect(w, r, "/ui/saved", http.StatusSeeOther)
		return
	}

	if _, err := h.Profile.SaveAs(r.Context(), sess.Principal(), name, def); err != nil {
		sess.RecordError(err.Error())
	} else {
		sess.RecordMessage("Query saved as " + strconv.Quote(name) + ".")
	}
	http.Redirect(w, r, "/ui/saved", http.StatusSeeOther)
}

// LoadSaved makes a saved definition the session's current query.
func (h *Handler) LoadSaved(w http.ResponseWriter, r *http.Request) {
	sess := h.uiSession(w, r)
	name, _ := url.PathUnescape(chi.URLParam(r, "name"))

	if _, err := h.Profile.LoadIntoSession(r.Context(), sess, name); err != nil {
		sess.RecordError(err.Error())
		http.Redirect(w, r, "/ui/saved", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/ui", http.StatusSeeOther)
}

// DeleteSaved removes a saved query.
func (h *Handler) DeleteSaved(w http.ResponseWriter, r *http.Request) {
	sess := h.uiSession(w, r)
	name, _ := url.PathUnescape(chi.URLParam(r, "name"))

	if err := h.Profile.Delete(r.Context(), sess.Principal(), name); err != nil {
		sess.RecordError(err.Error())
	}
	http.Redirect(w, r, "/ui/saved", http.StatusSeeOther)
}

// HistoryPage lists the principal's run history, newest first.
func (h *Handler) HistoryPage(w http.ResponseWriter, r *http.Request) {
	sess := h.uiSession(w, r)
	principal := sess.Principal()
	filter := domain.QueryHistoryFilter{
		Principal: &principal,
		Page:      domain.PageRequest{Offset: pageOffset(r), Size: resultsPageSize},
	}

	entries, total, err := h.Profile.History(r.Context(), filter)
	if err != nil {
		renderHTML(w, http.StatusInternalServerError, errorPage("History", "Could not load run history."))
		return
	}
	renderHTML(w, http.StatusOK, historyPage(r.Context(), principalFromContext(r), entries, total))
}
