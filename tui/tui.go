// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Root shell model that routes between screens behind the auth guards
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/leadlab/app"
	"github.com/harperreed/leadlab/auth"
	"github.com/harperreed/leadlab/query"
	"github.com/harperreed/leadlab/router"
)

const (
	toastTTL      = 4 * time.Second
	maxRedirects  = 5
	sidebarWidth  = 24
	chromeHeight  = 4
	maxToastCount = 3
)

type toastItem struct {
	id    int
	text  string
	isErr bool
}

// session adapts the auth snapshot for the guards. Until the saved
// session has been checked every private route waits.
type session struct {
	auth.Snapshot
	booting bool
}

func (s session) Pending() bool { return s.booting || s.Snapshot.Pending() }

// Model is the main bubbletea model
type Model struct {
	env *Env

	screen  Screen
	route   router.Decision
	pending string // path waiting on the session check

	session session
	events  <-chan query.Event
	authCh  chan auth.Snapshot
	stop    func()

	// polling runs the bell and health pollers for the signed-in user.
	pollCancel context.CancelFunc

	unread  int
	healthy *bool

	toasts    []toastItem
	nextToast int

	spinner spinner.Model
	crash   *boundary
	dark    bool

	width  int
	height int
}

// New builds the shell. start is the first path to open; an empty start
// consumes the saved restore path, falling back to the dashboard.
func New(env *Env, start string) Model {
	events, unsubscribe := env.Cache.Subscribe()
	authCh := make(chan auth.Snapshot, 16)
	env.Auth.OnChange(func(s auth.Snapshot) {
		select {
		case authCh <- s:
		default:
		}
	})

	if start == "" {
		if restored, ok, err := router.TakeRestorePath(env.Session); err == nil && ok {
			start = restored
		} else {
			start = router.DashboardPath
		}
	}

	applyTheme(true)
	return Model{
		env:     env,
		pending: start,
		session: session{Snapshot: env.Auth.Snapshot(), booting: true},
		events:  events,
		authCh:  authCh,
		stop:    unsubscribe,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
		crash:   &boundary{},
		dark:    true,
		width:   100,
		height:  30,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.events),
		waitForAuth(m.authCh),
		m.restoreSession(),
		m.spinner.Tick,
	)
}

// sessionCheckedMsg ends the boot wait.
type sessionCheckedMsg struct{}

func (m Model) restoreSession() tea.Cmd {
	env := m.env
	return func() tea.Msg {
		if err := env.Auth.Restore(env.Ctx); err != nil {
			env.Logger.Debug("session not restored", "err", err)
		}
		return sessionCheckedMsg{}
	}
}

func waitForAuth(ch <-chan auth.Snapshot) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return authChangedMsg{snapshot: s}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.crash.tripped() {
		if key, ok := msg.(tea.KeyMsg); ok {
			return m.handleCrashKeys(key)
		}
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case sessionCheckedMsg:
		m.session = session{Snapshot: m.env.Auth.Snapshot()}
		return m, tea.Batch(m.syncPolling(), m.reroute())

	case authChangedMsg:
		// Events can arrive out of order with the boot check; trust the store.
		before := m.session.IsAuthenticated()
		m.session.Snapshot = m.env.Auth.Snapshot()
		if before && !m.session.IsAuthenticated() {
			m.env.History.Reset(router.SignIn)
		}
		cmds := []tea.Cmd{waitForAuth(m.authCh)}
		if before != m.session.IsAuthenticated() || (m.pending != "" && !m.session.Pending()) {
			cmds = append(cmds, m.syncPolling(), m.reroute())
		}
		if m.screen != nil {
			var cmd tea.Cmd
			m, cmd = m.updateScreen(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case cacheEventMsg:
		m.observeShellKeys(msg.event)
		cmds := []tea.Cmd{waitForEvent(m.events)}
		if m.screen != nil {
			var cmd tea.Cmd
			m, cmd = m.updateScreen(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case cacheClosedMsg:
		return m, nil

	case navigateMsg:
		return m.navigate(msg.path, msg.replace)

	case mutationMsg:
		var cmds []tea.Cmd
		if msg.err != nil {
			cmds = append(cmds, toastErr(msg.err, msg.action))
		} else if msg.success != "" {
			cmds = append(cmds, toast(msg.success))
		}
		if m.screen != nil {
			var cmd tea.Cmd
			m, cmd = m.updateScreen(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case toastMsg:
		return m.pushToast(msg)

	case toastExpiredMsg:
		for i, t := range m.toasts {
			if t.id == msg.id {
				m.toasts = append(m.toasts[:i:i], m.toasts[i+1:]...)
				break
			}
		}
		return m, nil
	}

	if m.screen != nil {
		return m.updateScreen(msg)
	}
	return m, nil
}

func (m Model) View() string {
	if m.crash.tripped() {
		return m.renderCrashView()
	}
	return m.renderShell()
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m.quit()
	case "ctrl+t":
		m.dark = !m.dark
		applyTheme(m.dark)
		return m, nil
	}
	if m.screen != nil && m.screen.Capturing() {
		return m.updateScreen(msg)
	}

	switch msg.String() {
	case "q":
		return m.quit()
	case "ctrl+o":
		if m.session.IsAuthenticated() {
			m.env.Auth.Logout()
			return m, toast("Signed out")
		}
	case "backspace":
		if prev, ok := m.env.History.Back(); ok {
			return m.navigate(prev, true)
		}
		return m, nil
	case "b":
		if m.session.IsAuthenticated() {
			return m.navigate("/notifications", false)
		}
	case "[", "]":
		if m.session.IsAuthenticated() {
			return m.navigate(m.adjacentNav(msg.String() == "]"), false)
		}
	default:
		if m.session.IsAuthenticated() {
			for _, r := range router.Nav(m.session.IsAdmin()) {
				if r.Key != "" && r.Key == msg.String() {
					return m.navigate(r.Pattern, false)
				}
			}
		}
	}

	if m.screen != nil {
		return m.updateScreen(msg)
	}
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.closeScreen()
	if m.pollCancel != nil {
		m.pollCancel()
	}
	m.stop()
	return m, tea.Quit
}

// navigate resolves path through the guards and mounts its screen.
func (m Model) navigate(path string, replace bool) (tea.Model, tea.Cmd) {
	for i := 0; i < maxRedirects; i++ {
		d := router.Resolve(path, m.session)
		switch d.Kind {
		case router.Redirect:
			m.env.Logger.Debug("redirect", "from", path, "to", d.Target)
			path, replace = d.Target, true
			continue
		case router.Wait:
			m.closeScreen()
			m.pending = path
			return m, nil
		}

		m.closeScreen()
		m.pending = ""
		m.route = d
		if replace {
			m.env.History.Replace(d.Location.String())
		} else {
			m.env.History.Push(d.Location.String())
		}
		m.env.Logger.Debug("route", "route", d.Route.Pattern, "path", d.Location.String())
		return m.mountScreen(d)
	}
	m.env.Logger.Warn("redirect loop", "path", path)
	return m, nil
}

// reroute re-applies the guards to wherever the user is or was heading.
func (m Model) reroute() tea.Cmd {
	target := m.pending
	if target == "" {
		target = m.env.History.Current()
		if m.route.Route.Pattern != "" {
			target = m.route.Location.String()
		}
	}
	return func() tea.Msg { return navigateMsg{path: target, replace: true} }
}

func (m *Model) closeScreen() {
	if m.screen != nil {
		m.screen.Close()
		m.screen = nil
	}
}

// syncPolling starts the bell and health pollers after sign-in and stops
// them after sign-out.
func (m *Model) syncPolling() tea.Cmd {
	if m.session.IsAuthenticated() {
		if m.pollCancel == nil {
			ctx, cancel := context.WithCancel(m.env.Ctx)
			m.pollCancel = cancel
			m.env.Cache.Poll(ctx, query.UnreadCount, m.env.Config.NotificationsPoll, m.env.unreadFetcher())
			m.env.Cache.Poll(ctx, query.Health, m.env.Config.HealthPoll, m.env.healthFetcher())
		}
		return nil
	}
	if m.pollCancel != nil {
		m.pollCancel()
		m.pollCancel = nil
	}
	m.unread = 0
	m.healthy = nil
	return nil
}

func (m *Model) observeShellKeys(ev query.Event) {
	switch ev.Key {
	case query.UnreadCount:
		if n, ok := query.Data[int](ev.Snapshot); ok {
			m.unread = n
		}
	case query.Health:
		ok := ev.Snapshot.Err == nil && ev.Snapshot.Status == query.StatusSuccess
		if ev.Snapshot.Status == query.StatusLoading {
			return
		}
		m.healthy = &ok
	}
}

func (m Model) pushToast(t toastMsg) (tea.Model, tea.Cmd) {
	m.nextToast++
	id := m.nextToast
	m.toasts = append(m.toasts, toastItem{id: id, text: t.text, isErr: t.isErr})
	if len(m.toasts) > maxToastCount {
		m.toasts = m.toasts[len(m.toasts)-maxToastCount:]
	}
	if t.isErr {
		m.env.Logger.Debug("error toast", "text", t.text)
	}
	return m, tea.Tick(toastTTL, func(time.Time) tea.Msg { return toastExpiredMsg{id: id} })
}

func (m Model) adjacentNav(forward bool) string {
	nav := router.Nav(m.session.IsAdmin())
	if len(nav) == 0 {
		return router.DashboardPath
	}
	idx := -1
	for i, r := range nav {
		if r.Pattern == m.route.Route.Pattern {
			idx = i
			break
		}
	}
	if forward {
		idx = (idx + 1) % len(nav)
	} else {
		idx = (idx - 1 + len(nav)) % len(nav)
	}
	return nav[idx].Pattern
}

// CurrentPath is where the user ended up, for the restore path.
func (m Model) CurrentPath() string {
	if m.route.Route.Access == router.Public {
		return ""
	}
	return m.route.Location.String()
}

// Run starts the program in the alternate screen and saves the route the
// user ended on so the next start can restore it.
func Run(ctx context.Context, a *app.App, start string) error {
	env := NewEnv(ctx, a)
	p := tea.NewProgram(New(env, start), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	if m, ok := final.(Model); ok {
		if path := m.CurrentPath(); path != "" {
			if err := router.SaveRestorePath(env.Session, path); err != nil {
				a.Logger.Warn("could not save restore path", "err", err)
			}
		}
	}
	return nil
}
