// ABOUTME: Tests for the cobra command tree against an httptest backend
// ABOUTME: Each run builds a fresh runtime over the same storage dir, like separate invocations
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadlab/app"
	"github.com/harperreed/leadlab/config"
)

const testUser = `{"id":"6f1b8a52-3c1e-4f43-9c1f-0d6f0c1e8a11","email":"ada@example.com","name":"Ada"}`

type request struct {
	method string
	path   string
	body   map[string]any
}

type backend struct {
	mu       sync.Mutex
	requests []request
	routes   map[string]string
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := request{method: r.Method, path: r.URL.Path}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		_ = json.Unmarshal(data, &req.body)
	}
	b.mu.Lock()
	b.requests = append(b.requests, req)
	resp, ok := b.routes[r.Method+" "+r.URL.Path]
	b.mu.Unlock()
	if !ok {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte("[]"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Not Found"}`))
		return
	}
	_, _ = w.Write([]byte(resp))
}

func (b *backend) on(route, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[route] = body
}

// writes skips reads and the login call itself.
func (b *backend) writes() []request {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []request
	for _, r := range b.requests {
		if r.method != http.MethodGet && r.path != "/auth/login" {
			out = append(out, r)
		}
	}
	return out
}

type cliEnv struct {
	backend *backend
	cfg     *config.Config
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	b := &backend{routes: map[string]string{
		"POST /auth/login": `{"access_token":"tok","token_type":"bearer","user":` + testUser + `}`,
		"GET /auth/me":     testUser,
	}}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.APIURL = srv.URL
	cfg.LocalStorageDir = t.TempDir()
	cfg.SessionStorageDir = ""
	cfg.LogFile = filepath.Join(t.TempDir(), "leadlab.log")
	return &cliEnv{backend: b, cfg: cfg}
}

type result struct {
	stdout string
	stderr string
	err    error
}

func (e *cliEnv) run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	root, rt := newRoot("test", app.Options{Config: e.cfg, LogOutput: io.Discard})
	var stdout, stderr bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := rt.execute(context.Background(), root)
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func (e *cliEnv) signIn(t *testing.T) {
	t.Helper()
	res := e.run(t, "secret\n", "login", "--email", "ada@example.com")
	require.NoError(t, res.err)
}

func TestLoginPromptsAndPersistsSession(t *testing.T) {
	env := newCLIEnv(t)

	res := env.run(t, "ada@example.com\nsecret\n", "login")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Signed in as ada@example.com")
	assert.Contains(t, res.stderr, "Email: ")
	assert.Contains(t, res.stderr, "Password: ")

	res = env.run(t, "", "whoami")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Ada <ada@example.com>")
	assert.Contains(t, res.stdout, "Role: member")
}

func TestLoginFailureExitsWithError(t *testing.T) {
	env := newCLIEnv(t)
	env.backend.mu.Lock()
	delete(env.backend.routes, "POST /auth/login")
	env.backend.mu.Unlock()

	res := env.run(t, "wrong\n", "login", "--email", "ada@example.com")
	require.Error(t, res.err)
	assert.Equal(t, 1, exitCode(res.err))
}

func TestCommandsRequireSession(t *testing.T) {
	env := newCLIEnv(t)

	res := env.run(t, "", "deals", "list")
	require.Error(t, res.err)
	assert.True(t, errors.Is(res.err, ErrNotLoggedIn))
	assert.Equal(t, 2, exitCode(res.err))
}

func TestDealsMoveSendsOneStatusWrite(t *testing.T) {
	env := newCLIEnv(t)
	env.signIn(t)
	id := uuid.New()
	env.backend.on("PATCH /deals/"+id.String()+"/status", `{"id":"`+id.String()+`","name":"Acme renewal","amount":1200,"status":"won"}`)

	res := env.run(t, "", "deals", "move", id.String(), "won")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Deal Acme renewal moved to Won")

	writes := env.backend.writes()
	require.Len(t, writes, 1)
	assert.Equal(t, http.MethodPatch, writes[0].method)
	assert.Equal(t, map[string]any{"status": "won"}, writes[0].body)
}

func TestDealsMoveRejectsUnknownStatus(t *testing.T) {
	env := newCLIEnv(t)
	env.signIn(t)

	res := env.run(t, "", "deals", "move", uuid.NewString(), "archived")
	require.Error(t, res.err)
	assert.Empty(t, env.backend.writes())
}

func TestDealsListJSON(t *testing.T) {
	env := newCLIEnv(t)
	env.signIn(t)
	env.backend.on("GET /deals", `{"items":[{"id":"`+uuid.NewString()+`","name":"Acme","amount":500,"currency":"USD","status":"proposal"}],"total":1}`)

	res := env.run(t, "", "deals", "list", "--json")
	require.NoError(t, res.err)

	var deals []map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &deals))
	require.Len(t, deals, 1)
	assert.Equal(t, "Acme", deals[0]["name"])
	assert.Equal(t, "proposal", deals[0]["status"])
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	env := newCLIEnv(t)
	env.signIn(t)
	id := uuid.New()
	env.backend.on("DELETE /leads/"+id.String(), `{}`)

	res := env.run(t, "n\n", "leads", "delete", id.String())
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Cancelled")
	assert.Empty(t, env.backend.writes())

	res = env.run(t, "", "leads", "delete", id.String(), "--yes")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Deleted lead")
	require.Len(t, env.backend.writes(), 1)
}

func TestEventsImportReportsSummary(t *testing.T) {
	env := newCLIEnv(t)
	env.signIn(t)
	env.backend.on("POST /events", `{"id":"`+uuid.NewString()+`","title":"Kickoff","start_date":"2026-03-02T15:00:00Z"}`)

	path := filepath.Join(t.TempDir(), "team.ics")
	cal := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"BEGIN:VEVENT",
		"SUMMARY:Kickoff",
		"DTSTART:20260302T150000Z",
		"DTEND:20260302T160000Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"DTSTART:20260303T150000Z",
		"END:VEVENT",
		"END:VCALENDAR",
	}, "\r\n")
	require.NoError(t, os.WriteFile(path, []byte(cal), 0o600))

	res := env.run(t, "", "events", "import", path)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Imported 1 event")
	assert.Contains(t, res.stdout, "skipped 1")
	assert.Contains(t, res.stderr, "Kickoff")

	writes := env.backend.writes()
	require.Len(t, writes, 1)
	assert.Equal(t, "/events", writes[0].path)
}

func TestEventsImportRejectsOtherExtensions(t *testing.T) {
	env := newCLIEnv(t)
	res := env.run(t, "", "events", "import", "calendar.csv")
	require.Error(t, res.err)
	assert.Empty(t, env.backend.writes())
}

func TestTUIRejectsUnknownScreen(t *testing.T) {
	env := newCLIEnv(t)
	res := env.run(t, "", "tui", "/nowhere")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "unknown screen")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 2, exitCode(ErrNotLoggedIn))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
}
