// ABOUTME: Deals screen with a status kanban and a table view
// ABOUTME: Dropping a card on another column issues exactly one status update
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/harperreed/leadlab/api"
	"github.com/harperreed/leadlab/kanban"
	"github.com/harperreed/leadlab/models"
	"github.com/harperreed/leadlab/query"
	"github.com/harperreed/leadlab/viz"
)

type dealsScreen struct {
	env *Env
	q   *queries

	tableMode bool
	board     boardState
	table     table.Model
	deals     []models.Deal

	form    *form
	confirm *confirm
}

func newDealsScreen(env *Env) *dealsScreen {
	s := &dealsScreen{
		env: env,
		q:   newQueries(env.Cache),
		table: newTable(
			table.Column{Title: "Name", Width: 30},
			table.Column{Title: "Status", Width: 12},
			table.Column{Title: "Amount", Width: 12},
			table.Column{Title: "Valid until", Width: 12},
		),
	}
	s.board.build = s.buildBoard
	return s
}

func (s *dealsScreen) Init() tea.Cmd {
	s.q.watch(dealListKey, s.env.dealsFetcher())
	s.q.watch(leadListKey, s.env.leadsFetcher(""))
	s.reload()
	return nil
}

func (s *dealsScreen) Capturing() bool {
	return s.form != nil || s.confirm != nil || s.board.holding()
}

func (s *dealsScreen) Close() { s.q.release() }

func (s *dealsScreen) Help() []string {
	if s.board.holding() {
		return s.board.help()
	}
	help := []string{"n: New", "e: Edit", "d: Delete", "v: Toggle board/table", "r: Refresh"}
	if !s.tableMode {
		help = append(s.board.help(), help...)
	}
	return help
}

func (s *dealsScreen) reload() {
	s.deals = get[[]models.Deal](s.q, dealListKey)
	rows := make([]table.Row, 0, len(s.deals))
	for _, d := range s.deals {
		rows = append(rows, table.Row{d.Name, d.Status.Label(), viz.Money(d.Amount), d.ValidUntil.Date()})
	}
	setRows(&s.table, rows)
	s.board.refresh()
}

func (s *dealsScreen) buildBoard() *kanban.Board {
	cols := make([]kanban.Column, 0, len(models.DealStatuses))
	for _, st := range models.DealStatuses {
		cols = append(cols, kanban.Column{Key: string(st), Title: st.Label()})
	}
	cards := make([]kanban.Card, 0, len(s.deals))
	for _, d := range s.deals {
		cards = append(cards, kanban.Card{
			ID:       d.ID.String(),
			Title:    d.Name,
			Subtitle: viz.Money(d.Amount),
			Column:   string(d.Status),
		})
	}
	return kanban.New(cols, cards)
}

func (s *dealsScreen) selected() (models.Deal, bool) {
	if s.tableMode {
		i := s.table.Cursor()
		if i >= 0 && i < len(s.deals) {
			return s.deals[i], true
		}
		return models.Deal{}, false
	}
	if s.board.board == nil {
		return models.Deal{}, false
	}
	card, ok := s.board.board.Selected()
	if !ok {
		return models.Deal{}, false
	}
	for _, d := range s.deals {
		if d.ID.String() == card.ID {
			return d, true
		}
	}
	return models.Deal{}, false
}

func (s *dealsScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case cacheEventMsg:
		if s.q.apply(msg.event) && msg.event.Key == dealListKey {
			s.reload()
		}
	case mutationMsg:
		if msg.action == "move deal" && msg.err != nil {
			s.board.refresh()
		}
		if s.form != nil {
			if msg.err != nil {
				s.form.fail(msg.err)
			} else {
				s.form = nil
			}
		}
	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *dealsScreen) handleKey(msg tea.KeyMsg) (Screen, tea.Cmd) {
	if s.form != nil {
		action, cmd := s.form.update(msg)
		switch action {
		case formCancel:
			s.form = nil
		case formSubmit:
			return s, s.submit()
		}
		return s, cmd
	}
	if s.confirm != nil {
		done, cmd := s.confirm.update(msg)
		if done {
			s.confirm = nil
		}
		return s, cmd
	}

	if !s.tableMode {
		t, moved, handled := s.board.key(msg.String())
		if moved {
			return s, s.move(t)
		}
		if handled {
			return s, nil
		}
	}

	switch msg.String() {
	case "v":
		s.tableMode = !s.tableMode
	case "r":
		s.env.Cache.Invalidate(query.Deals)
	case "n":
		s.form = s.dealForm(models.Deal{Status: models.DealLead}, "")
	case "e", "enter":
		if d, ok := s.selected(); ok {
			s.form = s.dealForm(d, d.ID.String())
		}
	case "d":
		if d, ok := s.selected(); ok {
			id := d.ID
			s.confirm = newConfirm("deal", d.Name, s.env.mutate("delete deal", "Deal deleted", func(ctx context.Context) error {
				return s.env.Services.Deals.Remove(ctx, id)
			}, query.OnDealChange))
		}
	default:
		if s.tableMode {
			var cmd tea.Cmd
			s.table, cmd = s.table.Update(msg)
			return s, cmd
		}
	}
	return s, nil
}

// move sends the single status write for a drop.
func (s *dealsScreen) move(t kanban.Transition) tea.Cmd {
	id, err := uuid.Parse(t.CardID)
	if err != nil {
		return nil
	}
	status := models.DealStatus(t.To)
	return s.env.mutate("move deal", "Deal moved to "+status.Label(), func(ctx context.Context) error {
		_, err := s.env.Services.Deals.UpdateStatus(ctx, id, status)
		return err
	}, query.OnDealChange)
}

func (s *dealsScreen) dealForm(d models.Deal, target string) *form {
	f := models.DealFormFrom(d)
	title := "New deal"
	if target != "" {
		title = "Edit deal"
	}
	leads := get[api.Page[models.Lead]](s.q, leadListKey).Items
	fm := newForm(title,
		textField("name", "Name", f.Name),
		textField("amount", "Amount", f.Amount),
		textField("currency", "Currency", f.Currency),
		selectField("status", "Status", dealStatusOptions(), f.Status),
		selectField("lead", "Lead", leadOptions(leads), f.LeadID),
		textField("valid until", "Valid until", f.ValidUntil),
	)
	fm.target = target
	fm.base = f
	return fm
}

func (s *dealsScreen) submit() tea.Cmd {
	f, _ := s.form.base.(models.DealForm)
	f.Name = s.form.value("name")
	f.Amount = s.form.value("amount")
	f.Currency = s.form.value("currency")
	f.Status = s.form.value("status")
	f.LeadID = s.form.value("lead")
	f.ValidUntil = s.form.value("valid until")
	if _, err := f.Payload(); err != nil {
		s.form.fail(err)
		return nil
	}
	if s.form.target == "" {
		return s.env.mutate("create deal", fmt.Sprintf("Deal %q created", f.Name), func(ctx context.Context) error {
			_, err := s.env.Services.Deals.Create(ctx, f)
			return err
		}, query.OnDealChange)
	}
	id, err := uuid.Parse(s.form.target)
	if err != nil {
		s.form.fail(err)
		return nil
	}
	return s.env.mutate("update deal", "Deal updated", func(ctx context.Context) error {
		_, err := s.env.Services.Deals.Update(ctx, id, f)
		return err
	}, query.OnDealChange)
}

func (s *dealsScreen) View(width, height int) string {
	if s.form != nil {
		return s.form.view()
	}
	if s.confirm != nil {
		return s.confirm.view(width, height)
	}
	if msg, ok := stateView(s.q, "deals", dealListKey); ok {
		return msg
	}
	header := titleStyle.Render(fmt.Sprintf("DEALS (%d)", len(s.deals))) + "\n"
	if s.tableMode {
		return header + tableView(&s.table, height-2, "No deals yet. Press n to add one.")
	}
	return header + s.board.view(width, height-2)
}
