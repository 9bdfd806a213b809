// Package ui serves a small server-rendered console: a query editor, the
// background job list, the current result table, saved queries, and run
// history. Pages are plain forms plus refresh; no client-side framework.
package ui

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	gomponents "maragu.dev/gomponents"

	"queryd/internal/domain"
	"queryd/internal/service/export"
	"queryd/internal/service/profile"
	"queryd/internal/service/query"
	"queryd/internal/session"
)

// SessionCookie matches the API's session binding so the console and API
// clients share server-side state.
const SessionCookie = "Qsession"

// Handler renders the console pages.
type Handler struct {
	Sessions    *session.Manager
	Query       *query.Service
	Profile     *profile.Service
	Export      *export.Service
	PingTimeout time.Duration
	Production  bool
}

// MountRoutes registers the console under the router's current prefix.
// authMiddleware is the same bearer/API-key middleware the API uses; the
// cookie bridge lets it authenticate browser requests.
func MountRoutes(r chi.Router, h *Handler, authMiddleware func(http.Handler) http.Handler) {
	r.Get("/login", h.LoginPage)
	r.Post("/login", h.LoginSubmit)
	r.Post("/logout", h.Logout)

	r.Get("/static/app.css", serveStylesheet)

	r.Group(func(r chi.Router) {
		r.Use(h.CookieHeaderBridge)
		r.Use(authMiddleware)
		r.Use(h.EnsureCSRFToken)
		r.Use(h.RequireCSRF)

		r.Get("/", h.EditorPage)
		r.Post("/query/run", h.RunQuery)
		r.Post("/query/start", h.StartQuery)

		r.Get("/jobs", h.JobsPage)
		r.Post("/jobs/{id}/cancel", h.CancelJob)

		r.Get("/results", h.ResultsPage)
		r.Get("/results.csv", h.DownloadCSV)

		r.Get("/saved", h.SavedPage)
		r.Post("/saved", h.SaveQuery)
		r.Post("/saved/{name}/load", h.LoadSaved)
		r.Post("/saved/{name}/delete", h.DeleteSaved)

		r.Get("/history", h.HistoryPage)
	})
}

func renderHTML(w http.ResponseWriter, status int, node gomponents.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = node.Render(w)
}

func principalFromContext(r *http.Request) domain.ContextPrincipal {
	p, ok := domain.PrincipalFromContext(r.Context())
	if !ok {
		return domain.ContextPrincipal{Name: "unknown", Type: "user"}
	}
	return p
}

// uiSession resolves the browser's session, creating and binding one on
// first use.
func (h *Handler) uiSession(w http.ResponseWriter, r *http.Request) *session.Session {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		if sess, err := h.Sessions.Get(cookie.Value); err == nil && sess.Principal() == principalFromContext(r).Name {
			return sess
		}
	}
	sess := h.Sessions.Create(principalFromContext(r).Name)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID(),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.Production,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

func pageOffset(r *http.Request) int {
	v := r.URL.Query().Get("offset")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
