package api

import (
	"net/http"
	"time"

	"queryd/internal/domain"
	"queryd/internal/middleware"
)

type sessionResponse struct {
	SessionID string    `json:"session_id"`
	Principal string    `json:"principal"`
	CreatedAt time.Time `json:"created_at"`
}

type messagesResponse struct {
	Messages []string `json:"messages"`
	Errors   []string `json:"errors"`
}

// openSession creates a session for the authenticated principal and binds it
// with the Qsession cookie.
func (h *Handler) openSession(w http.ResponseWriter, r *http.Request) {
	principal := principalName(r)
	if principal == "" {
		h.writeError(w, r, domain.ErrAccessDenied("no authenticated principal"))
		return
	}

	sess := h.sessions.Create(principal)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusCreated, sessionResponse{
		SessionID: sess.ID(),
		Principal: sess.Principal(),
		CreatedAt: sess.CreatedAt(),
	})
}

// closeSession ends the bound session. Background runs launched from it are
// canceled through the session context.
func (h *Handler) closeSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if err := h.sessions.Close(sess.ID()); err != nil {
		h.writeError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

// sessionMessages drains the session's recorded messages and errors.
func (h *Handler) sessionMessages(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	messages, errs := sess.DrainMessages()
	writeJSON(w, http.StatusOK, messagesResponse{Messages: messages, Errors: errs})
}

type tokenRequest struct {
	Username string `json:"username"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// issueToken signs a development HS256 token for the requested username.
// Registered only when token issuing is enabled; production deployments
// bring their own tokens.
func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Username == "" {
		h.writeError(w, r, domain.ErrValidation("username is required"))
		return
	}

	token, err := middleware.IssueHS256(h.jwtSecret, req.Username, h.tokenTTL)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.tokenTTL),
	})
}
