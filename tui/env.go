// ABOUTME: Shared dependencies and async commands for every screen
// ABOUTME: Bridges cache events, fetches and mutations into bubbletea messages
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/harperreed/leadlab/api"
	"github.com/harperreed/leadlab/app"
	"github.com/harperreed/leadlab/auth"
	"github.com/harperreed/leadlab/calendly"
	"github.com/harperreed/leadlab/config"
	"github.com/harperreed/leadlab/query"
	"github.com/harperreed/leadlab/router"
	"github.com/harperreed/leadlab/services"
)

// Env is what screens reach for. It is built once per program.
type Env struct {
	Ctx      context.Context
	Config   *config.Config
	Logger   *log.Logger
	Services *services.Services
	Cache    *query.Cache
	Auth     *auth.Store
	Session  router.SessionKV
	History  *router.History
	Now      func() time.Time

	// calendly is the authorization in progress, kept so the callback
	// screen can check its state.
	calendly *calendly.Flow
}

func NewEnv(ctx context.Context, a *app.App) *Env {
	return &Env{
		Ctx:      ctx,
		Config:   a.Config,
		Logger:   a.Logger,
		Services: a.Services,
		Cache:    a.Cache,
		Auth:     a.Auth,
		Session:  a.Session,
		History:  a.History,
		Now:      time.Now,
	}
}

// Messages
type (
	cacheEventMsg  struct{ event query.Event }
	cacheClosedMsg struct{}

	// authChangedMsg carries a new auth snapshot from the store.
	authChangedMsg struct{ snapshot auth.Snapshot }

	// mutationMsg reports a finished write.
	mutationMsg struct {
		success string
		action  string
		err     error
	}

	// navigateMsg asks the shell to go somewhere.
	navigateMsg struct {
		path    string
		replace bool
	}

	toastMsg struct {
		text  string
		isErr bool
	}
	toastExpiredMsg struct{ id int }

	// resultMsg hands a one-off command result back to the screen that asked.
	resultMsg struct {
		tag string
		val any
		err error
	}
)

func navigate(path string) tea.Cmd {
	return func() tea.Msg { return navigateMsg{path: path} }
}

func toast(text string) tea.Cmd {
	return func() tea.Msg { return toastMsg{text: text} }
}

func toastErr(err error, action string) tea.Cmd {
	return func() tea.Msg { return toastMsg{text: api.UserMessage(err, action), isErr: true} }
}

// waitForEvent turns the next cache event into a message.
func waitForEvent(ch <-chan query.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return cacheClosedMsg{}
		}
		return cacheEventMsg{event: ev}
	}
}

// mutate runs fn through the cache so the given keys refetch on success.
func (e *Env) mutate(action, success string, fn func(ctx context.Context) error, keys []query.Key) tea.Cmd {
	return func() tea.Msg {
		err := query.Exec(e.Ctx, e.Cache, fn, keys...)
		if err != nil {
			e.Logger.Debug("mutation failed", "action", action, "err", err)
		}
		return mutationMsg{success: success, action: action, err: err}
	}
}

// run performs a one-off call whose result only the calling screen wants.
func (e *Env) run(tag string, fn func(ctx context.Context) (any, error)) tea.Cmd {
	return func() tea.Msg {
		v, err := fn(e.Ctx)
		return resultMsg{tag: tag, val: v, err: err}
	}
}

// queries tracks the keys a screen observes. Observed keys refetch on
// invalidation and their snapshots arrive as cache events.
type queries struct {
	cache    *query.Cache
	snaps    map[query.Key]query.Snapshot
	releases []func()
}

func newQueries(c *query.Cache) *queries {
	return &queries{cache: c, snaps: map[query.Key]query.Snapshot{}}
}

func (q *queries) watch(key query.Key, fn query.Fetcher) {
	if _, ok := q.snaps[key]; ok {
		return
	}
	snap, release := q.cache.Observe(key, fn)
	q.snaps[key] = snap
	q.releases = append(q.releases, release)
}

// apply stores ev if this screen watches its key.
func (q *queries) apply(ev query.Event) bool {
	if _, ok := q.snaps[ev.Key]; !ok {
		return false
	}
	q.snaps[ev.Key] = ev.Snapshot
	return true
}

func (q *queries) snap(key query.Key) query.Snapshot { return q.snaps[key] }

func (q *queries) release() {
	for _, fn := range q.releases {
		fn()
	}
	q.releases = nil
}

func get[T any](q *queries, key query.Key) T {
	v, _ := query.Data[T](q.snap(key))
	return v
}

// calendlyFlow returns the pending flow, starting one if needed.
func (e *Env) calendlyFlow() (*calendly.Flow, error) {
	if e.calendly != nil {
		return e.calendly, nil
	}
	flow, err := calendly.NewFlow(e.Config.CalendlyClientID, e.Config.CalendlyRedirectURI, e.Services.Calendly, e.Logger)
	if err != nil {
		return nil, err
	}
	e.calendly = flow
	return flow, nil
}
