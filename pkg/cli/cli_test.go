package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand runs the root command with the given args and captures output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	root := newRootCmd()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// newFakeAPI stands in for the queryd server: it issues a session cookie,
// validates it on session-bound routes, and serves canned responses.
func newFakeAPI(t *testing.T) *httptest.Server {
	t.Helper()

	const sessionID = "sess-test-1"
	writeErr := func(w http.ResponseWriter, status int, msg string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{"code": status, "message": msg})
	}
	requireSession := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ck, err := r.Cookie("Qsession")
			if err != nil || ck.Value != sessionID {
				writeErr(w, http.StatusBadRequest, "no session; POST /v1/sessions first")
				return
			}
			next(w, r)
		}
	}

	r := chi.NewRouter()
	r.Post("/v1/sessions", func(w http.ResponseWriter, _ *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "Qsession", Value: sessionID, Path: "/"})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"session_id": sessionID,
			"principal":  "alice",
			"created_at": "2026-08-30T10:00:00Z",
		})
	})
	r.Get("/v1/history", requireSession(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"entries": []map[string]any{
				{
					"id":         1,
					"title":      "orders: id, item",
					"sql":        `SELECT "id" FROM "orders"`,
					"status":     "COMPLETED",
					"row_count":  2,
					"started_at": "2026-08-30T10:01:00Z",
				},
			},
			"total": 1,
		})
	}))
	r.Post("/v1/query/run", requireSession(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"columns":  []string{"id", "item"},
			"rows":     [][]any{{1, "anvil"}, {2, nil}},
			"offset":   0,
			"total":    2,
			"has_more": false,
		})
	}))
	r.Post("/v1/query/start", requireSession(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]any{"job_id": "7", "status": "PENDING"})
	}))
	r.Get("/v1/queries/{id}", requireSession(func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") != "7" {
			writeErr(w, http.StatusNotFound, "job not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"job_id": "7", "status": "RUNNING"})
	}))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestQueryRun_PrintsTable(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())
	srv := newFakeAPI(t)

	def := filepath.Join(t.TempDir(), "query.json")
	require.NoError(t, os.WriteFile(def, []byte(`{"select":["id","item"],"from":"orders"}`), 0o644))

	out, err := executeCommand(t, "--host", srv.URL, "query", "run", "--file", def)
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "anvil")
	assert.Contains(t, out, "NULL")
}

func TestQueryRun_QuietPrintsRowCount(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())
	srv := newFakeAPI(t)

	def := filepath.Join(t.TempDir(), "query.json")
	require.NoError(t, os.WriteFile(def, []byte(`{"select":["id"],"from":"orders"}`), 0o644))

	out, err := executeCommand(t, "--host", srv.URL, "-q", "query", "run", "--file", def)
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
}

func TestQueryStart_ReusesSavedSession(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())
	srv := newFakeAPI(t)

	out, err := executeCommand(t, "--host", srv.URL, "-q", "query", "start")
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)

	// The session cookie is saved, so a second invocation sees the same job.
	data, err := os.ReadFile(filepath.Join(ConfigDir(), "session"))
	require.NoError(t, err)
	assert.Equal(t, "sess-test-1", string(data))

	out, err = executeCommand(t, "--host", srv.URL, "query", "status", "7")
	require.NoError(t, err)
	assert.Equal(t, "RUNNING\n", out)
}

func TestQueryRun_CSVOutput(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())
	srv := newFakeAPI(t)

	def := filepath.Join(t.TempDir(), "query.json")
	require.NoError(t, os.WriteFile(def, []byte(`{"select":["id","item"],"from":"orders"}`), 0o644))

	out, err := executeCommand(t, "--host", srv.URL, "-o", "csv", "query", "run", "--file", def)
	require.NoError(t, err)
	assert.Equal(t, "id,item\n1,anvil\n2,NULL\n", out)
}

func TestQueryStatus_UnknownJob(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())
	srv := newFakeAPI(t)

	_, err := executeCommand(t, "--host", srv.URL, "query", "status", "99")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.HTTPStatus)
	assert.Equal(t, "job not found", apiErr.Message)
}

func TestHistory_JSONOutput(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())
	srv := newFakeAPI(t)

	out, err := executeCommand(t, "--host", srv.URL, "-o", "json", "history")
	require.NoError(t, err)

	var list HistoryList
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list.Entries, 1)
	assert.Equal(t, "COMPLETED", list.Entries[0].Status)
}

func TestHostPrecedence_EnvOverProfile(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())
	require.NoError(t, SaveUserConfig(&UserConfig{
		CurrentProfile: "default",
		Profiles: map[string]Profile{
			"default": {Host: "http://from-profile:1"},
		},
	}))
	srv := newFakeAPI(t)
	t.Setenv("QUERYD_HOST", srv.URL)

	// Env beats the profile host: the command reaches the fake server.
	out, err := executeCommand(t, "-q", "query", "start")
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)
}

func TestRejectsUnknownOutputFormat(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())

	_, err := executeCommand(t, "-o", "yaml", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}
