// ABOUTME: Tests for the kanban board model
// ABOUTME: Drag moves must produce exactly one transition per drop
package kanban

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dealBoard() *Board {
	return New(
		[]Column{{Key: "lead", Title: "Lead"}, {Key: "qualified", Title: "Qualified"}, {Key: "won", Title: "Won"}},
		[]Card{
			{ID: "d1", Title: "Acme", Column: "lead"},
			{ID: "d2", Title: "Globex", Column: "lead"},
			{ID: "d3", Title: "Initech", Column: "qualified"},
			{ID: "d4", Title: "Orphan", Column: "archived"},
		},
	)
}

func TestNewPlacesCards(t *testing.T) {
	b := dealBoard()
	cols := b.Columns()
	assert.Len(t, cols[0].Cards, 3, "unknown column falls back to the first")
	assert.Len(t, cols[1].Cards, 1)
	assert.Empty(t, cols[2].Cards)
}

func TestDragLeadToQualified(t *testing.T) {
	b := dealBoard()
	require.True(t, b.Pick())
	b.Focus(1, 0)

	assert.Equal(t, "d1", b.Holding())
	col, _ := b.Cursor()
	assert.Equal(t, 1, col)

	tr, ok := b.Drop()
	require.True(t, ok)
	assert.Equal(t, Transition{CardID: "d1", From: "lead", To: "qualified"}, tr)

	_, ok = b.Drop()
	assert.False(t, ok, "a second drop without a pick yields nothing")
	assert.Len(t, b.Columns()[1].Cards, 2)
}

func TestDragAcrossSeveralColumnsIsOneTransition(t *testing.T) {
	b := dealBoard()
	require.True(t, b.Pick())
	b.Focus(1, 0)
	b.Focus(1, 0)
	b.Focus(1, 0)

	tr, ok := b.Drop()
	require.True(t, ok)
	assert.Equal(t, "lead", tr.From)
	assert.Equal(t, "won", tr.To)
}

func TestDropOnOriginIsNoop(t *testing.T) {
	b := dealBoard()
	require.True(t, b.Pick())
	b.Focus(1, 0)
	b.Focus(-1, 0)
	_, ok := b.Drop()
	assert.False(t, ok)
}

func TestCancelRestoresCard(t *testing.T) {
	b := dealBoard()
	require.True(t, b.Pick())
	b.Focus(2, 0)
	b.Cancel()

	assert.Empty(t, b.Holding())
	assert.Len(t, b.Columns()[0].Cards, 3)
	assert.Empty(t, b.Columns()[2].Cards)
}

func TestMoveTo(t *testing.T) {
	b := dealBoard()
	tr, ok := b.MoveTo("d3", "won")
	require.True(t, ok)
	assert.Equal(t, Transition{CardID: "d3", From: "qualified", To: "won"}, tr)

	_, ok = b.MoveTo("d3", "won")
	assert.False(t, ok)
	_, ok = b.MoveTo("missing", "won")
	assert.False(t, ok)
}

func TestCursorNavigation(t *testing.T) {
	b := dealBoard()
	b.Focus(0, 5)
	card, ok := b.Selected()
	require.True(t, ok)
	assert.Equal(t, "d4", card.ID)

	b.Focus(2, 0)
	_, ok = b.Selected()
	assert.False(t, ok, "empty column has no selection")
	assert.False(t, b.Pick())

	require.True(t, b.Select("d3"))
	card, _ = b.Selected()
	assert.Equal(t, "Initech", card.Title)
}
