// ABOUTME: Error boundary around screen updates and rendering
// ABOUTME: A recovered panic replaces the UI with a recovery card offering reload or reset
package tui

import (
	"fmt"
	"runtime/debug"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/leadlab/router"
)

// boundary is shared by value copies of the model so a panic during View
// still trips it.
type boundary struct {
	err   error
	route string
}

func (b *boundary) tripped() bool { return b.err != nil }

func (b *boundary) trip(env *Env, r any, route string) {
	b.err = fmt.Errorf("%v", r)
	b.route = route
	env.Logger.Error("screen crashed", "route", route, "err", b.err, "stack", string(debug.Stack()))
}

func (b *boundary) reset() {
	b.err = nil
	b.route = ""
}

// updateScreen forwards msg to the mounted screen under the boundary.
func (m Model) updateScreen(msg tea.Msg) (mm Model, cmd tea.Cmd) {
	defer func() {
		if r := recover(); r != nil {
			m.crash.trip(m.env, r, m.route.Route.Pattern)
			mm, cmd = m, nil
		}
	}()
	m.screen, cmd = m.screen.Update(msg)
	return m, cmd
}

func (m Model) mountScreen(d router.Decision) (mm tea.Model, cmd tea.Cmd) {
	defer func() {
		if r := recover(); r != nil {
			m.crash.trip(m.env, r, d.Route.Pattern)
			mm, cmd = m, nil
		}
	}()
	m.screen = newScreen(m.env, d)
	return m, m.screen.Init()
}

// screenView renders the screen, tripping the boundary on a panic.
func (m Model) screenView(width, height int) (out string) {
	defer func() {
		if r := recover(); r != nil {
			m.crash.trip(m.env, r, m.route.Route.Pattern)
			out = ""
		}
	}()
	return m.screen.View(width, height)
}

var (
	crashBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(1, 2).
			Width(64).
			Align(lipgloss.Center)

	crashTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)
)

func (m Model) renderCrashView() string {
	title := crashTitleStyle.Render("Something went wrong")
	detail := mutedStyle.Render(truncate(m.crash.err.Error(), 180))

	buttons := lipgloss.JoinHorizontal(
		lipgloss.Left,
		primaryButtonStyle.Render("Reload (r)"),
		secondaryButtonStyle.Render("Reset (h)"),
		secondaryButtonStyle.Render("Quit (q)"),
	)

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		"",
		"This screen hit an unexpected error. Reload it, or reset to the dashboard.",
		"",
		detail,
		"",
		buttons,
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, crashBoxStyle.Render(content))
}

func (m Model) handleCrashKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch strings.ToLower(msg.String()) {
	case "r":
		m.crash.reset()
		m.closeScreen()
		return m.navigate(m.route.Location.String(), true)
	case "h":
		m.crash.reset()
		m.closeScreen()
		m.env.Cache.Clear()
		m.env.History.Reset(router.DashboardPath)
		m.route = router.Decision{}
		return m.navigate(router.DashboardPath, true)
	case "q", "ctrl+c":
		m.crash.reset()
		return m.quit()
	}
	return m, nil
}
