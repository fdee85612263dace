// ABOUTME: Delete confirmation dialog shared by every screen
// ABOUTME: Renders a centered danger card and reports yes or no
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// confirm asks before a destructive action. run is the command fired on yes.
type confirm struct {
	kind string
	name string
	run  tea.Cmd
}

func newConfirm(kind, name string, run tea.Cmd) *confirm {
	return &confirm{kind: kind, name: name, run: run}
}

// update returns done=true once the user answered, plus the command to run.
func (c *confirm) update(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		return true, c.run
	case "n", "N", "esc":
		return true, nil
	}
	return false, nil
}

func (c *confirm) view(width, height int) string {
	name := c.name
	if name == "" {
		name = "(untitled)"
	}
	card := lipgloss.JoinVertical(
		lipgloss.Center,
		errorStyle.Bold(true).Render(fmt.Sprintf("Delete %s?", c.kind)),
		"",
		selectedStyle.Render(name),
		mutedStyle.Render("The backend removes it for everyone in your organization."),
		"",
		lipgloss.JoinHorizontal(lipgloss.Left,
			dangerButtonStyle.Render("Delete (y)"),
			secondaryButtonStyle.Render("Keep (n/esc)"),
		),
	)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, dangerBoxStyle.Render(card))
}
