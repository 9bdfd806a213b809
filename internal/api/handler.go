// Package api exposes the HTTP surface: session lifecycle, query
// definition and execution, background job control, results paging and
// export, saved queries, and run history.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"queryd/internal/domain"
	"queryd/internal/service/export"
	"queryd/internal/service/profile"
	"queryd/internal/service/query"
	"queryd/internal/session"
)

// SessionCookie is the cookie binding a client to its server-side session.
const SessionCookie = "Qsession"

// DefaultPingTimeout is the monitor liveness window granted to HTTP pollers.
const DefaultPingTimeout = 20 * time.Second

// Pinger checks engine liveness. Implemented by engine.Engine.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options holds the Handler's dependencies.
type Options struct {
	Sessions *session.Manager
	Query    *query.Service
	Profile  *profile.Service
	Export   *export.Service
	Engine   Pinger
	// PingTimeout is the liveness window for background-job monitors created
	// by /query/start.
	PingTimeout time.Duration
	// JWTSecret and TokenTTL configure the dev token endpoint.
	JWTSecret string
	TokenTTL  time.Duration
	// AllowTokenIssue enables POST /auth/token. Leave false in production.
	AllowTokenIssue bool
	Logger          *slog.Logger
}

// Handler implements the HTTP API.
type Handler struct {
	sessions *session.Manager
	query    *query.Service
	profile  *profile.Service
	export   *export.Service
	engine   Pinger

	pingTimeout     time.Duration
	jwtSecret       string
	tokenTTL        time.Duration
	allowTokenIssue bool
	logger          *slog.Logger
}

// NewHandler creates the API handler.
func NewHandler(opts Options) *Handler {
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = DefaultPingTimeout
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 12 * time.Hour
	}
	return &Handler{
		sessions:        opts.Sessions,
		query:           opts.Query,
		profile:         opts.Profile,
		export:          opts.Export,
		engine:          opts.Engine,
		pingTimeout:     opts.PingTimeout,
		jwtSecret:       opts.JWTSecret,
		tokenTTL:        opts.TokenTTL,
		allowTokenIssue: opts.AllowTokenIssue,
		logger:          opts.Logger.With("component", "api"),
	}
}

// Routes registers the authenticated API routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/sessions", h.openSession)

	// Everything below needs a bound session.
	r.Group(func(r chi.Router) {
		r.Use(h.requireSession)

		r.Delete("/sessions", h.closeSession)
		r.Get("/session/messages", h.sessionMessages)

		r.Put("/query", h.setQuery)
		r.Get("/query", h.getQuery)
		r.Post("/query/run", h.runQuery)
		r.Post("/query/start", h.startQuery)

		r.Get("/queries/{id}", h.queryStatus)
		r.Post("/queries/{id}/cancel", h.cancelQuery)

		r.Get("/results", h.getResults)
		r.Get("/results/export", h.exportResults)
		r.Get("/exports/{file}", h.downloadExport)

		r.Get("/saved-queries", h.listSavedQueries)
		r.Post("/saved-queries", h.saveQuery)
		r.Get("/saved-queries/{name}", h.getSavedQuery)
		r.Put("/saved-queries/{name}", h.renameSavedQuery)
		r.Delete("/saved-queries/{name}", h.deleteSavedQuery)
		r.Post("/saved-queries/{name}/load", h.loadSavedQuery)

		r.Get("/history", h.listHistory)
	})
}

// PublicRoutes registers the routes that bypass authentication.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Get("/healthz", h.healthz)
	if h.allowTokenIssue {
		r.Post("/v1/auth/token", h.issueToken)
	}
}

type sessionKey struct{}

// requireSession resolves the Qsession cookie to a live session owned by the
// authenticated principal and stores it in the request context.
func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil {
			h.writeError(w, r, domain.ErrValidation("no session; POST /v1/sessions first"))
			return
		}
		sess, err := h.sessions.Get(cookie.Value)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if cp, ok := domain.PrincipalFromContext(r.Context()); ok && cp.Name != sess.Principal() {
			h.writeError(w, r, domain.ErrNotFound("session %s not found", cookie.Value))
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFromContext(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey{}).(*session.Session)
	return sess
}

func principalName(r *http.Request) string {
	if cp, ok := domain.PrincipalFromContext(r.Context()); ok {
		return cp.Name
	}
	return ""
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if h.engine != nil {
		if err := h.engine.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "engine unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
