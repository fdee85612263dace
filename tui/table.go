// ABOUTME: Table helpers shared by the list screens
// ABOUTME: Wraps bubbles/table with the shell palette and cursor-preserving row updates
package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

func newTable(cols ...table.Column) table.Model {
	t := table.New(table.WithColumns(cols), table.WithFocused(true), table.WithHeight(10))
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		Bold(true)
	styles.Selected = selectedStyle
	t.SetStyles(styles)
	return t
}

// setRows swaps the rows and keeps the cursor on the same index when it can.
func setRows(t *table.Model, rows []table.Row) {
	cursor := t.Cursor()
	t.SetRows(rows)
	if cursor >= len(rows) {
		cursor = len(rows) - 1
	}
	t.SetCursor(max(cursor, 0))
}

func tableView(t *table.Model, height int, empty string) string {
	if len(t.Rows()) == 0 {
		return mutedStyle.Render(empty)
	}
	t.SetHeight(max(height, 3))
	return t.View()
}
