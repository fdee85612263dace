// ABOUTME: Column board model for leads, deals and tasks
// ABOUTME: Keyboard drag-and-drop where each drop yields exactly one status transition
package kanban

type Card struct {
	ID       string
	Title    string
	Subtitle string
	Column   string
}

type Column struct {
	Key   string
	Title string
	Cards []Card
}

// Transition is the single status change a drop produces.
type Transition struct {
	CardID string
	From   string
	To     string
}

// Board keeps columns in display order plus a card cursor.
type Board struct {
	columns []Column
	col     int
	row     int
	// holding is the card picked up for a drag, if any.
	holding string
	origin  string
}

// New lays cards into columns by key. Cards whose column is unknown land
// in the first column so nothing silently disappears.
func New(columns []Column, cards []Card) *Board {
	b := &Board{columns: make([]Column, len(columns))}
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		b.columns[i] = Column{Key: c.Key, Title: c.Title}
		index[c.Key] = i
	}
	for _, card := range cards {
		i, ok := index[card.Column]
		if !ok {
			if len(b.columns) == 0 {
				continue
			}
			i = 0
		}
		b.columns[i].Cards = append(b.columns[i].Cards, card)
	}
	return b
}

func (b *Board) Columns() []Column { return b.columns }

// Cursor returns the focused column and row.
func (b *Board) Cursor() (int, int) { return b.col, b.row }

// Holding returns the ID of the card being dragged.
func (b *Board) Holding() string { return b.holding }

func (b *Board) Selected() (Card, bool) {
	if b.col >= len(b.columns) {
		return Card{}, false
	}
	cards := b.columns[b.col].Cards
	if b.row >= len(cards) {
		return Card{}, false
	}
	return cards[b.row], true
}

// Focus moves the cursor by columns and rows. While a card is held the
// card travels with the cursor between columns.
func (b *Board) Focus(dCol, dRow int) {
	if len(b.columns) == 0 {
		return
	}
	if b.holding != "" && dCol != 0 {
		b.shift(dCol)
		return
	}
	b.col = clamp(b.col+dCol, 0, len(b.columns)-1)
	b.row = clamp(b.row+dRow, 0, max(len(b.columns[b.col].Cards)-1, 0))
}

// Pick starts dragging the selected card.
func (b *Board) Pick() bool {
	card, ok := b.Selected()
	if !ok {
		return false
	}
	b.holding = card.ID
	b.origin = card.Column
	return true
}

// Drop releases the held card. Dropping back on the origin column is a no-op.
func (b *Board) Drop() (Transition, bool) {
	if b.holding == "" {
		return Transition{}, false
	}
	t := Transition{CardID: b.holding, From: b.origin, To: b.columns[b.col].Key}
	b.holding, b.origin = "", ""
	if t.From == t.To {
		return Transition{}, false
	}
	return t, true
}

// Cancel puts a held card back where it came from.
func (b *Board) Cancel() {
	if b.holding == "" {
		return
	}
	id, origin := b.holding, b.origin
	b.holding, b.origin = "", ""
	b.MoveTo(id, origin)
}

// MoveTo drops card id onto column key in one step.
func (b *Board) MoveTo(id, key string) (Transition, bool) {
	from, row, ok := b.find(id)
	if !ok {
		return Transition{}, false
	}
	to := b.indexOf(key)
	if to < 0 || to == from {
		return Transition{}, false
	}
	card := b.columns[from].Cards[row]
	b.columns[from].Cards = append(b.columns[from].Cards[:row:row], b.columns[from].Cards[row+1:]...)
	t := Transition{CardID: id, From: card.Column, To: key}
	card.Column = key
	b.columns[to].Cards = append(b.columns[to].Cards, card)
	if b.col == from {
		b.row = clamp(b.row, 0, max(len(b.columns[from].Cards)-1, 0))
	}
	return t, true
}

func (b *Board) shift(dCol int) {
	from, row, ok := b.find(b.holding)
	if !ok {
		b.holding = ""
		return
	}
	to := clamp(from+dCol, 0, len(b.columns)-1)
	if to == from {
		return
	}
	card := b.columns[from].Cards[row]
	b.columns[from].Cards = append(b.columns[from].Cards[:row:row], b.columns[from].Cards[row+1:]...)
	card.Column = b.columns[to].Key
	b.columns[to].Cards = append(b.columns[to].Cards, card)
	b.col = to
	b.row = len(b.columns[to].Cards) - 1
}

func (b *Board) find(id string) (col, row int, ok bool) {
	for c, column := range b.columns {
		for r, card := range column.Cards {
			if card.ID == id {
				return c, r, true
			}
		}
	}
	return 0, 0, false
}

func (b *Board) indexOf(key string) int {
	for i, c := range b.columns {
		if c.Key == key {
			return i
		}
	}
	return -1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Select puts the cursor on card id, used to keep focus across refetches.
func (b *Board) Select(id string) bool {
	col, row, ok := b.find(id)
	if ok {
		b.col, b.row = col, row
	}
	return ok
}

// SetCursor restores a cursor position, clamped to the board.
func (b *Board) SetCursor(col, row int) {
	if len(b.columns) == 0 {
		return
	}
	b.col = clamp(col, 0, len(b.columns)-1)
	b.row = clamp(row, 0, max(len(b.columns[b.col].Cards)-1, 0))
}
