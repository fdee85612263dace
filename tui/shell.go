// ABOUTME: Layout shell: sidebar navigation, header with bell and health, toasts and help
// ABOUTME: Also holds the shared styles and the light/dark theme switch
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/leadlab/router"
)

type palette struct {
	accent, muted, text, surface, border, danger, ok, warn lipgloss.Color
}

var (
	darkPalette = palette{
		accent: "170", muted: "240", text: "252", surface: "235", border: "238",
		danger: "9", ok: "10", warn: "11",
	}
	lightPalette = palette{
		accent: "125", muted: "245", text: "235", surface: "254", border: "250",
		danger: "160", ok: "28", warn: "136",
	}
)

// Styles
var (
	titleStyle           lipgloss.Style
	tabActiveStyle       lipgloss.Style
	tabInactiveStyle     lipgloss.Style
	helpStyle            lipgloss.Style
	mutedStyle           lipgloss.Style
	selectedStyle        lipgloss.Style
	errorStyle           lipgloss.Style
	okStyle              lipgloss.Style
	warnStyle            lipgloss.Style
	sidebarStyle         lipgloss.Style
	navSectionStyle      lipgloss.Style
	navActiveStyle       lipgloss.Style
	navItemStyle         lipgloss.Style
	headerStyle          lipgloss.Style
	cardStyle            lipgloss.Style
	columnStyle          lipgloss.Style
	columnFocusStyle     lipgloss.Style
	primaryButtonStyle   lipgloss.Style
	secondaryButtonStyle lipgloss.Style
	toastStyle           lipgloss.Style
	toastErrStyle        lipgloss.Style
	spinnerStyle         lipgloss.Style
	dangerBoxStyle       lipgloss.Style
	dangerButtonStyle    lipgloss.Style
)

func init() { applyTheme(true) }

func applyTheme(dark bool) {
	p := lightPalette
	if dark {
		p = darkPalette
	}
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(p.accent).MarginBottom(1)
	tabActiveStyle = lipgloss.NewStyle().Bold(true).Foreground(p.accent).Background(p.surface).Padding(0, 2)
	tabInactiveStyle = lipgloss.NewStyle().Foreground(p.muted).Padding(0, 2)
	helpStyle = lipgloss.NewStyle().Foreground(p.muted).MarginTop(1)
	mutedStyle = lipgloss.NewStyle().Foreground(p.muted)
	selectedStyle = lipgloss.NewStyle().Background(p.surface).Foreground(p.text).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(p.danger)
	okStyle = lipgloss.NewStyle().Foreground(p.ok)
	warnStyle = lipgloss.NewStyle().Foreground(p.warn).Bold(true)
	sidebarStyle = lipgloss.NewStyle().Width(sidebarWidth).PaddingRight(1).
		Border(lipgloss.NormalBorder(), false, true, false, false).BorderForeground(p.border)
	navSectionStyle = lipgloss.NewStyle().Foreground(p.muted).Bold(true).MarginTop(1)
	navActiveStyle = lipgloss.NewStyle().Foreground(p.accent).Bold(true)
	navItemStyle = lipgloss.NewStyle().Foreground(p.text)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(p.text).
		Border(lipgloss.NormalBorder(), false, false, true, false).BorderForeground(p.border)
	cardStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(p.border).Padding(1, 2)
	columnStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(p.border).Padding(0, 1)
	columnFocusStyle = columnStyle.BorderForeground(p.accent)
	primaryButtonStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(p.accent).Padding(0, 2).MarginRight(2)
	secondaryButtonStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8")).Padding(0, 2).MarginRight(2)
	toastStyle = lipgloss.NewStyle().Foreground(p.ok).Border(lipgloss.RoundedBorder()).BorderForeground(p.ok).Padding(0, 1)
	toastErrStyle = toastStyle.Foreground(p.danger).BorderForeground(p.danger)
	spinnerStyle = lipgloss.NewStyle().Foreground(p.accent)
	dangerBoxStyle = cardStyle.BorderForeground(p.danger).Width(56).Align(lipgloss.Center)
	dangerButtonStyle = primaryButtonStyle.Background(p.danger)
}

func (m Model) renderShell() string {
	if m.screen == nil {
		return m.renderWaiting()
	}
	if m.route.Route.Access == router.Public {
		body := m.screenView(m.width-4, m.height-chromeHeight)
		help := helpStyle.Render(strings.Join(append(m.screen.Help(), "ctrl+t: Theme", "ctrl+c: Quit"), " • "))
		page := lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("LEADLAB"), body, help, m.renderToasts())
		return lipgloss.NewStyle().Padding(1, 2).Render(page)
	}

	bodyWidth := m.width - sidebarWidth - 3
	bodyHeight := m.height - chromeHeight - 2
	body := m.screenView(bodyWidth, bodyHeight)

	main := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(bodyWidth),
		lipgloss.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(body),
		m.renderHelp(),
		m.renderToasts(),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), " ", main)
}

func (m Model) renderWaiting() string {
	msg := m.spinner.View() + " Checking your session..."
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, msg)
}

func (m Model) renderSidebar() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("LEADLAB"))
	section := ""
	for _, r := range router.Nav(m.session.IsAdmin()) {
		if r.Nav != section {
			section = r.Nav
			s.WriteString("\n")
			s.WriteString(navSectionStyle.Render(strings.ToUpper(section)))
		}
		label := r.Title
		if r.Key != "" {
			label = r.Key + " " + label
		} else {
			label = "  " + label
		}
		s.WriteString("\n")
		if r.Pattern == m.route.Route.Pattern || (r.Pattern == "/leads" && m.route.Route.Pattern == "/leads/:id") {
			s.WriteString(navActiveStyle.Render("▶ " + label))
		} else {
			s.WriteString(navItemStyle.Render("  " + label))
		}
	}
	return sidebarStyle.Height(m.height - 1).Render(s.String())
}

func (m Model) renderHeader(width int) string {
	left := m.route.Route.Title
	var right []string
	switch {
	case m.healthy == nil:
		right = append(right, mutedStyle.Render("○ API"))
	case *m.healthy:
		right = append(right, okStyle.Render("● API"))
	default:
		right = append(right, errorStyle.Render("● API down"))
	}
	bell := fmt.Sprintf("🔔 %d", m.unread)
	if m.unread > 0 {
		bell = warnStyle.Render(bell)
	}
	right = append(right, bell)
	if u := m.session.User; u != nil {
		who := u.Name
		if who == "" {
			who = u.Email
		}
		if u.IsAdmin {
			who += " (admin)"
		}
		right = append(right, who)
	}
	r := strings.Join(right, "  ")
	gap := width - lipgloss.Width(left) - lipgloss.Width(r)
	if gap < 1 {
		gap = 1
	}
	return headerStyle.Width(width).Render(left + strings.Repeat(" ", gap) + r)
}

func (m Model) renderHelp() string {
	help := append([]string{}, m.screen.Help()...)
	help = append(help, "1-9/[/]: Navigate", "b: Notifications", "ctrl+t: Theme", "ctrl+o: Sign out", "q: Quit")
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) renderToasts() string {
	if len(m.toasts) == 0 {
		return ""
	}
	var rendered []string
	for _, t := range m.toasts {
		if t.isErr {
			rendered = append(rendered, toastErrStyle.Render("✗ "+t.text))
		} else {
			rendered = append(rendered, toastStyle.Render("✓ "+t.text))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rendered...)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
