package ui

import (
	"net/http"
	"strings"
	"time"
)

const (
	bearerCookieName = "ui_bearer"
	apiKeyCookieName = "ui_api_key"
)

// LoginPage shows the token form.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	renderHTML(w, http.StatusOK, loginPage(strings.TrimSpace(r.URL.Query().Get("error"))))
}

// LoginSubmit stores the pasted credential in a cookie; the bridge replays
// it as a header on every console request.
func (h *Handler) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/ui/login?error=invalid+form", http.StatusSeeOther)
		return
	}
	kind := strings.TrimSpace(r.Form.Get("kind"))
	token := strings.TrimSpace(r.Form.Get("token"))
	if token == "" {
		http.Redirect(w, r, "/ui/login?error=token+is+required", http.StatusSeeOther)
		return
	}

	name := bearerCookieName
	if kind == "api_key" {
		name = apiKeyCookieName
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(24 * time.Hour),
		HttpOnly: true,
		Secure:   h.Production,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/ui", http.StatusSeeOther)
}

// Logout clears the credential cookies.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	for _, name := range []string{bearerCookieName, apiKeyCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})
	}
	http.Redirect(w, r, "/ui/login", http.StatusSeeOther)
}

// CookieHeaderBridge copies the stored credential cookie onto the request
// headers so the shared auth middleware can validate browser traffic the
// same way it validates API traffic. Requests with no credential are sent
// to the login page instead of getting a JSON 401.
func (h *Handler) CookieHeaderBridge(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			if c, err := r.Cookie(bearerCookieName); err == nil && c.Value != "" {
				r.Header.Set("Authorization", "Bearer "+c.Value)
			}
		}
		if c, err := r.Cookie(apiKeyCookieName); err == nil && c.Value != "" {
			r.Header.Set("X-API-Key", c.Value)
		}
		if r.Header.Get("Authorization") == "" && r.Header.Get("X-API-Key") == "" {
			http.Redirect(w, r, "/ui/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
