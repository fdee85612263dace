// ABOUTME: Renders a kanban board as side-by-side columns and maps keys onto it
// ABOUTME: Space picks up or drops a card, arrows move it, esc puts it back
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/leadlab/kanban"
)

const minColumnWidth = 18

// boardKey applies one key to b. handled is false for keys the board does
// not use; moved is set when a drop produced a transition.
func boardKey(b *kanban.Board, key string) (t kanban.Transition, moved, handled bool) {
	switch key {
	case "left", "h":
		b.Focus(-1, 0)
	case "right", "l":
		b.Focus(1, 0)
	case "up", "k":
		b.Focus(0, -1)
	case "down", "j":
		b.Focus(0, 1)
	case " ":
		if b.Holding() == "" {
			b.Pick()
			return kanban.Transition{}, false, true
		}
		t, moved = b.Drop()
		return t, moved, true
	case "esc":
		if b.Holding() == "" {
			return kanban.Transition{}, false, false
		}
		b.Cancel()
	default:
		return kanban.Transition{}, false, false
	}
	return kanban.Transition{}, false, true
}

func renderBoard(b *kanban.Board, width, height int) string {
	cols := b.Columns()
	if len(cols) == 0 {
		return mutedStyle.Render("No columns configured.")
	}
	colWidth := (width - 2*len(cols)) / len(cols)
	if colWidth < minColumnWidth {
		colWidth = minColumnWidth
	}
	maxCards := (height - 4) / 2
	if maxCards < 1 {
		maxCards = 1
	}
	focusCol, focusRow := b.Cursor()

	rendered := make([]string, 0, len(cols))
	for ci, col := range cols {
		var s strings.Builder
		s.WriteString(lipgloss.NewStyle().Bold(true).Render(truncate(fmt.Sprintf("%s (%d)", col.Title, len(col.Cards)), colWidth-2)))
		s.WriteString("\n")

		start := 0
		if ci == focusCol && focusRow >= maxCards {
			start = focusRow - maxCards + 1
		}
		for ri := start; ri < len(col.Cards) && ri < start+maxCards; ri++ {
			card := col.Cards[ri]
			title := card.Title
			if card.ID == b.Holding() {
				title = "✥ " + title
			}
			line := truncate(title, colWidth-2)
			sub := mutedStyle.Render(truncate(card.Subtitle, colWidth-2))
			if ci == focusCol && ri == focusRow {
				line = selectedStyle.Render(line)
			}
			s.WriteString(line + "\n" + sub + "\n")
		}
		if len(col.Cards) == 0 {
			s.WriteString(mutedStyle.Render("empty"))
		} else if hidden := len(col.Cards) - start - maxCards; hidden > 0 {
			s.WriteString(mutedStyle.Render(fmt.Sprintf("+%d more", hidden)))
		}

		style := columnStyle
		if ci == focusCol {
			style = columnFocusStyle
		}
		rendered = append(rendered, style.Width(colWidth).Render(s.String()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func boardHelp(b *kanban.Board) []string {
	if b != nil && b.Holding() != "" {
		return []string{"←/→: Move card", "Space: Drop", "Esc: Put back"}
	}
	return []string{"←/→/↑/↓: Navigate", "Space: Pick up"}
}

// boardState holds a board built from cached data. A refetch that lands
// while a card is held waits until the drag ends so the card stays put.
type boardState struct {
	board *kanban.Board
	stale bool
	build func() *kanban.Board
}

func (s *boardState) refresh() {
	if s.board != nil && s.board.Holding() != "" {
		s.stale = true
		return
	}
	next := s.build()
	if s.board != nil {
		col, row := s.board.Cursor()
		card, ok := s.board.Selected()
		if !ok || !next.Select(card.ID) {
			next.SetCursor(col, row)
		}
	}
	s.board, s.stale = next, false
}

func (s *boardState) holding() bool { return s.board != nil && s.board.Holding() != "" }

// key forwards a key to the board. A successful drop keeps the moved card
// in place until the refetch after the write replaces the board.
func (s *boardState) key(key string) (t kanban.Transition, moved, handled bool) {
	if s.board == nil {
		return kanban.Transition{}, false, false
	}
	t, moved, handled = boardKey(s.board, key)
	if handled && s.stale && s.board.Holding() == "" {
		if moved {
			s.stale = false
		} else {
			s.refresh()
		}
	}
	return t, moved, handled
}

func (s *boardState) view(width, height int) string {
	if s.board == nil {
		return ""
	}
	return renderBoard(s.board, width, height)
}

func (s *boardState) help() []string { return boardHelp(s.board) }
