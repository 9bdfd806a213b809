package cli

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"queryd/internal/api"
)

// The session cookie is persisted so that consecutive CLI invocations keep
// talking to the same server-side session (and thus see each other's jobs
// and results).

func sessionFilePath() string {
	return filepath.Join(ConfigDir(), "session")
}

func loadSavedSession(c *Client) bool {
	data, err := os.ReadFile(sessionFilePath())
	if err != nil {
		return false
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return false
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return false
	}
	c.hc.Jar.SetCookies(u, []*http.Cookie{{Name: api.SessionCookie, Value: value}})
	return true
}

func saveSession(c *Client) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return
	}
	for _, ck := range c.hc.Jar.Cookies(u) {
		if ck.Name == api.SessionCookie {
			if err := os.MkdirAll(ConfigDir(), 0o700); err != nil {
				return
			}
			_ = os.WriteFile(sessionFilePath(), []byte(ck.Value), 0o600)
			return
		}
	}
}

func clearSavedSession() {
	_ = os.Remove(sessionFilePath())
}

// ensureSession binds the client to a live server-side session, reusing the
// saved one when it is still valid and opening a fresh one otherwise.
func ensureSession(c *Client) error {
	if loadSavedSession(c) {
		// Probe with a cheap, side-effect-free call.
		q := url.Values{"limit": {"1"}}
		err := c.JSON(http.MethodGet, "/v1/history", q, nil, nil)
		if err == nil {
			return nil
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			return err
		}
		if apiErr.HTTPStatus != http.StatusBadRequest && apiErr.HTTPStatus != http.StatusNotFound {
			return err
		}
		// Stale session; fall through and open a new one.
	}

	if _, err := c.OpenSession(); err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	saveSession(c)
	return nil
}
