// ABOUTME: Tests for the shell, the kanban drag flow, forms and the error boundary
// ABOUTME: Screens run against an httptest backend that records every write
package tui

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadlab/api"
	"github.com/harperreed/leadlab/app"
	"github.com/harperreed/leadlab/config"
	"github.com/harperreed/leadlab/kanban"
	"github.com/harperreed/leadlab/models"
	"github.com/harperreed/leadlab/router"
)

const loginBody = `{"access_token":"tok","token_type":"bearer","user":{"id":"6f1b8a52-3c1e-4f43-9c1f-0d6f0c1e8a11","email":"ada@example.com","name":"Ada"}}`

type request struct {
	method string
	path   string
	body   string
}

// backend records every request and answers from a small route table.
type backend struct {
	mu       sync.Mutex
	requests []request
	routes   map[string]string
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	b.requests = append(b.requests, request{method: r.Method, path: r.URL.Path, body: string(body)})
	resp, ok := b.routes[r.Method+" "+r.URL.Path]
	b.mu.Unlock()
	if !ok {
		resp = "[]"
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, resp)
}

// writes returns the non-GET requests seen so far.
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

func newTestEnv(t *testing.T, b *backend) *Env {
	t.Helper()
	if b.routes == nil {
		b.routes = map[string]string{}
	}
	b.routes["POST /auth/login"] = loginBody
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.APIURL = srv.URL
	cfg.LocalStorageDir = t.TempDir()
	cfg.SessionStorageDir = ""

	a, err := app.New(app.Options{Config: cfg, LogOutput: io.Discard})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return NewEnv(context.Background(), a)
}

func signIn(t *testing.T, env *Env) {
	t.Helper()
	require.NoError(t, env.Auth.Login(context.Background(), "ada@example.com", "secret"))
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestDealDropIssuesOneStatusUpdate(t *testing.T) {
	deal := models.Deal{ID: uuid.New(), Name: "Acme renewal", Amount: 1200, Status: models.DealLead}
	b := &backend{routes: map[string]string{
		"PATCH /deals/" + deal.ID.String() + "/status": `{"id":"` + deal.ID.String() + `","name":"Acme renewal","status":"qualified"}`,
	}}
	env := newTestEnv(t, b)
	signIn(t, env)
	env.Cache.SetData(dealListKey, []models.Deal{deal})
	env.Cache.SetData(leadListKey, api.Page[models.Lead]{})

	s := newDealsScreen(env)
	s.Init()
	t.Cleanup(s.Close)

	_, cmd := s.Update(key(" "))
	assert.Nil(t, cmd)
	assert.True(t, s.Capturing(), "a held card captures keys")
	_, cmd = s.Update(key("right"))
	assert.Nil(t, cmd)
	_, cmd = s.Update(key(" "))
	require.NotNil(t, cmd)

	msg, ok := cmd().(mutationMsg)
	require.True(t, ok)
	require.NoError(t, msg.err)

	writes := b.writes()
	require.Len(t, writes, 1)
	assert.Equal(t, http.MethodPatch, writes[0].method)
	assert.Equal(t, "/deals/"+deal.ID.String()+"/status", writes[0].path)
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(writes[0].body), &body))
	assert.Equal(t, map[string]any{"status": "qualified"}, body)
}

func TestDropOnOriginColumnWritesNothing(t *testing.T) {
	b := &backend{}
	env := newTestEnv(t, b)
	signIn(t, env)
	env.Cache.SetData(dealListKey, []models.Deal{{ID: uuid.New(), Name: "Stay", Status: models.DealProposal}})
	env.Cache.SetData(leadListKey, api.Page[models.Lead]{})

	s := newDealsScreen(env)
	s.Init()
	t.Cleanup(s.Close)
	s.board.board.Select(s.deals[0].ID.String())

	s.Update(key(" "))
	s.Update(key("right"))
	s.Update(key("left"))
	_, cmd := s.Update(key(" "))
	assert.Nil(t, cmd)
	assert.Empty(t, b.writes())
}

func TestBoardDefersRefetchWhileHolding(t *testing.T) {
	cards := []kanban.Card{{ID: "a", Title: "A", Column: "todo"}}
	cols := []kanban.Column{{Key: "todo", Title: "Todo"}, {Key: "done", Title: "Done"}}
	state := boardState{build: func() *kanban.Board { return kanban.New(cols, cards) }}
	state.refresh()

	state.key(" ")
	require.True(t, state.holding())

	cards = []kanban.Card{{ID: "a", Title: "A", Column: "todo"}, {ID: "b", Title: "B", Column: "todo"}}
	state.refresh()
	assert.True(t, state.stale)
	assert.Len(t, state.board.Columns()[0].Cards, 1, "board unchanged mid-drag")

	_, moved, handled := state.key("esc")
	assert.True(t, handled)
	assert.False(t, moved)
	assert.False(t, state.stale)
	assert.Len(t, state.board.Columns()[0].Cards, 2, "refetch applied after the drag")
	card, ok := state.board.Selected()
	require.True(t, ok)
	assert.Equal(t, "a", card.ID)
}

func TestShellWaitsForSessionCheck(t *testing.T) {
	env := newTestEnv(t, &backend{})
	m := New(env, "/deals")
	t.Cleanup(m.stop)

	next, _ := m.navigate("/deals", false)
	m = next.(Model)
	assert.Nil(t, m.screen)
	assert.Equal(t, "/deals", m.pending)
	assert.Contains(t, m.View(), "Checking your session")
}

func TestShellRedirectsAnonymousToSignIn(t *testing.T) {
	env := newTestEnv(t, &backend{})
	m := New(env, "/deals")
	t.Cleanup(m.stop)

	next, _ := m.Update(sessionCheckedMsg{})
	m = next.(Model)
	next, _ = m.navigate("/deals", false)
	m = next.(Model)

	assert.Equal(t, router.SignIn, m.route.Route.Pattern)
	assert.Equal(t, "/deals", m.route.Location.Query.Get("from"))
	_, ok := m.screen.(*signInScreen)
	assert.True(t, ok)
	assert.Empty(t, m.CurrentPath(), "public routes are not restored")
}

func TestShellResetsHistoryWhenSessionEnds(t *testing.T) {
	env := newTestEnv(t, &backend{})
	signIn(t, env)
	m := New(env, "")
	t.Cleanup(m.stop)
	m.session = session{Snapshot: env.Auth.Snapshot()}
	env.History.Push("/deals")
	env.History.Push("/tasks")

	env.Auth.Logout()
	assert.Equal(t, "/tasks", env.History.Current(), "logout alone leaves history to the shell")

	next, _ := m.Update(authChangedMsg{snapshot: env.Auth.Snapshot()})
	m = next.(Model)
	assert.False(t, m.session.IsAuthenticated())
	assert.Equal(t, router.SignIn, env.History.Current())
	_, moved := env.History.Back()
	assert.False(t, moved)
}

func TestShellRedirectsMembersAwayFromAdmin(t *testing.T) {
	env := newTestEnv(t, &backend{})
	signIn(t, env)
	m := New(env, "")
	t.Cleanup(m.stop)
	m.session = session{Snapshot: env.Auth.Snapshot()}
	env.Cache.SetData(dealListKey, []models.Deal{})
	env.Cache.SetData(leadListKey, api.Page[models.Lead]{})

	next, _ := m.navigate("/admin/users", false)
	m = next.(Model)
	assert.Equal(t, router.DashboardPath, m.route.Route.Pattern)

	next, _ = m.navigate("/deals", false)
	m = next.(Model)
	assert.Equal(t, "/deals", m.CurrentPath())
	next, _ = m.handleKeyPress(key("backspace"))
	m = next.(Model)
	assert.Equal(t, router.DashboardPath, m.route.Route.Pattern, "back skips the redirected admin visit")
}

type panicScreen struct{ messageScreen }

func (p *panicScreen) Update(tea.Msg) (Screen, tea.Cmd) { panic("boom") }

func TestBoundaryRecoversFromScreenPanic(t *testing.T) {
	env := newTestEnv(t, &backend{})
	m := New(env, "")
	t.Cleanup(m.stop)
	m.session = session{Snapshot: env.Auth.Snapshot()}
	m.screen = &panicScreen{}

	m, _ = m.updateScreen(key("x"))
	require.True(t, m.crash.tripped())
	assert.Contains(t, m.View(), "Something went wrong")

	next, _ := m.handleCrashKeys(key("h"))
	m = next.(Model)
	assert.False(t, m.crash.tripped())
	assert.Equal(t, router.SignIn, m.route.Route.Pattern)
}

func TestDealFormValidatesBeforeSending(t *testing.T) {
	b := &backend{}
	env := newTestEnv(t, b)
	signIn(t, env)
	env.Cache.SetData(dealListKey, []models.Deal{})
	env.Cache.SetData(leadListKey, api.Page[models.Lead]{})

	s := newDealsScreen(env)
	s.Init()
	t.Cleanup(s.Close)

	s.Update(key("n"))
	require.NotNil(t, s.form)
	_, cmd := s.Update(key("enter"))
	assert.Nil(t, cmd)
	assert.Equal(t, "Name is required", s.form.err)
	assert.Equal(t, "name", s.form.fields[s.form.focus].key)
	assert.False(t, s.form.submitting)
	assert.Empty(t, b.writes())
}

func TestDealEditKeepsFieldsTheFormDoesNotShow(t *testing.T) {
	owner := uuid.New()
	deal := models.Deal{ID: uuid.New(), Name: "Acme renewal", Amount: 1200, Currency: "USD", Status: models.DealProposal, AssignedToID: &owner}
	b := &backend{routes: map[string]string{
		"PUT /deals/" + deal.ID.String(): `{"id":"` + deal.ID.String() + `","name":"Acme renewal","status":"proposal"}`,
	}}
	env := newTestEnv(t, b)
	signIn(t, env)
	env.Cache.SetData(dealListKey, []models.Deal{deal})
	env.Cache.SetData(leadListKey, api.Page[models.Lead]{})

	s := newDealsScreen(env)
	s.Init()
	t.Cleanup(s.Close)
	s.board.board.Select(deal.ID.String())

	s.Update(key("e"))
	require.NotNil(t, s.form)
	require.Equal(t, deal.ID.String(), s.form.target)
	_, cmd := s.Update(key("enter"))
	require.NotNil(t, cmd)
	msg, ok := cmd().(mutationMsg)
	require.True(t, ok)
	require.NoError(t, msg.err)

	writes := b.writes()
	require.Len(t, writes, 1)
	assert.Equal(t, http.MethodPut, writes[0].method)
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(writes[0].body), &body))
	assert.Equal(t, owner.String(), body["assigned_to_id"])
	assert.Equal(t, "Acme renewal", body["name"])
}

func TestSignInScreenLogsIn(t *testing.T) {
	env := newTestEnv(t, &backend{})
	s := newSignInScreen(env, router.Parse("/signin?from=/deals"))

	_, cmd := s.Update(key("enter"))
	assert.Nil(t, cmd)
	assert.Equal(t, "Email and password are required", s.form.err)

	s.form.set("email", "ada@example.com")
	s.form.set("password", "secret")
	_, cmd = s.Update(key("enter"))
	require.NotNil(t, cmd)
	res, ok := cmd().(resultMsg)
	require.True(t, ok)
	require.NoError(t, res.err)
	assert.True(t, env.Auth.Snapshot().IsAuthenticated())
	assert.Contains(t, s.View(80, 20), "Sign in to continue to /deals")
}

func TestConfirmRunsOnlyOnYes(t *testing.T) {
	ran := false
	run := func() tea.Msg { ran = true; return nil }

	c := newConfirm("deal", "Acme", run)
	done, cmd := c.update(key("x"))
	assert.False(t, done)
	assert.Nil(t, cmd)

	done, cmd = c.update(key("n"))
	assert.True(t, done)
	assert.Nil(t, cmd)

	done, cmd = c.update(key("y"))
	assert.True(t, done)
	require.NotNil(t, cmd)
	cmd()
	assert.True(t, ran)
	assert.Contains(t, c.view(80, 20), "Acme")
}

func TestMatchLead(t *testing.T) {
	l := models.Lead{FirstName: "Grace", LastName: "Hopper", Company: "Navy", Email: "grace@navy.mil"}
	assert.True(t, matchLead(l, ""))
	assert.True(t, matchLead(l, "hop"))
	assert.True(t, matchLead(l, "NAVY"))
	assert.False(t, matchLead(l, "ada"))
}

func TestToastsExpireAndCap(t *testing.T) {
	env := newTestEnv(t, &backend{})
	m := New(env, "")
	t.Cleanup(m.stop)

	for i := 0; i < 5; i++ {
		next, cmd := m.pushToast(toastMsg{text: strings.Repeat("x", i+1)})
		require.NotNil(t, cmd)
		m = next.(Model)
	}
	require.Len(t, m.toasts, maxToastCount)
	assert.Equal(t, "xxxxx", m.toasts[len(m.toasts)-1].text)

	next, _ := m.Update(toastExpiredMsg{id: m.toasts[0].id})
	m = next.(Model)
	assert.Len(t, m.toasts, maxToastCount-1)
}

func TestMonthRange(t *testing.T) {
	start, end := monthRange(time.Date(2026, 2, 17, 15, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), end)
}
