// ABOUTME: Leads screen with a filterable table and a stage kanban
// ABOUTME: Filtering runs over the fetched page; dropping a card moves the lead's stage
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/harperreed/leadlab/api"
	"github.com/harperreed/leadlab/kanban"
	"github.com/harperreed/leadlab/models"
	"github.com/harperreed/leadlab/query"
	"github.com/harperreed/leadlab/router"
	"github.com/harperreed/leadlab/viz"
)

// noStage is the board column for leads outside the pipeline.
const noStage = "none"

type leadsScreen struct {
	env *Env
	q   *queries

	boardMode bool
	board     boardState
	table     table.Model
	leads     []models.Lead
	total     int

	searching bool
	search    textinput.Model

	form    *form
	confirm *confirm
}

func newLeadsScreen(env *Env) *leadsScreen {
	search := textinput.New()
	search.Placeholder = "Filter by name, email or company"
	search.CharLimit = 100
	s := &leadsScreen{
		env:    env,
		q:      newQueries(env.Cache),
		search: search,
		table: newTable(
			table.Column{Title: "Name", Width: 24},
			table.Column{Title: "Company", Width: 20},
			table.Column{Title: "Email", Width: 28},
			table.Column{Title: "Stage", Width: 14},
			table.Column{Title: "Value", Width: 10},
		),
	}
	s.board.build = s.buildBoard
	return s
}

func (s *leadsScreen) Init() tea.Cmd {
	s.q.watch(leadListKey, s.env.leadsFetcher(""))
	s.q.watch(stagesKey, s.env.stagesFetcher())
	s.reload()
	return nil
}

func (s *leadsScreen) Capturing() bool {
	return s.searching || s.form != nil || s.confirm != nil || s.board.holding()
}

func (s *leadsScreen) Close() { s.q.release() }

func (s *leadsScreen) Help() []string {
	if s.searching {
		return []string{"Enter: Apply", "Esc: Clear"}
	}
	if s.board.holding() {
		return s.board.help()
	}
	help := []string{"Enter: Open", "/: Filter", "n: New", "e: Edit", "d: Delete", "v: Toggle table/board"}
	if s.boardMode {
		help = append(s.board.help(), help...)
	}
	return help
}

func (s *leadsScreen) stages() []models.Stage {
	stages := append([]models.Stage(nil), get[[]models.Stage](s.q, stagesKey)...)
	sort.SliceStable(stages, func(i, j int) bool { return stages[i].Position < stages[j].Position })
	return stages
}

func (s *leadsScreen) stageName(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	for _, st := range get[[]models.Stage](s.q, stagesKey) {
		if st.ID == *id {
			return st.Name
		}
	}
	return ""
}

// matchLead is the client-side filter over the fetched page.
func matchLead(l models.Lead, term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	for _, field := range []string{l.FullName(), l.Email, l.Company} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func (s *leadsScreen) reload() {
	page := get[api.Page[models.Lead]](s.q, leadListKey)
	s.total = page.Total
	term := strings.TrimSpace(s.search.Value())
	s.leads = s.leads[:0]
	for _, l := range page.Items {
		if matchLead(l, term) {
			s.leads = append(s.leads, l)
		}
	}
	rows := make([]table.Row, 0, len(s.leads))
	for _, l := range s.leads {
		rows = append(rows, table.Row{l.FullName(), l.Company, l.Email, s.stageName(l.StageID), viz.Money(l.Value)})
	}
	setRows(&s.table, rows)
	s.board.refresh()
}

func (s *leadsScreen) buildBoard() *kanban.Board {
	cols := []kanban.Column{{Key: noStage, Title: "No stage"}}
	for _, st := range s.stages() {
		cols = append(cols, kanban.Column{Key: st.ID.String(), Title: st.Name})
	}
	cards := make([]kanban.Card, 0, len(s.leads))
	for _, l := range s.leads {
		col := noStage
		if l.StageID != nil {
			col = l.StageID.String()
		}
		cards = append(cards, kanban.Card{ID: l.ID.String(), Title: l.FullName(), Subtitle: l.Company, Column: col})
	}
	return kanban.New(cols, cards)
}

func (s *leadsScreen) selected() (models.Lead, bool) {
	if !s.boardMode {
		i := s.table.Cursor()
		if i >= 0 && i < len(s.leads) {
			return s.leads[i], true
		}
		return models.Lead{}, false
	}
	if s.board.board == nil {
		return models.Lead{}, false
	}
	card, ok := s.board.board.Selected()
	if !ok {
		return models.Lead{}, false
	}
	for _, l := range s.leads {
		if l.ID.String() == card.ID {
			return l, true
		}
	}
	return models.Lead{}, false
}

func (s *leadsScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case cacheEventMsg:
		if s.q.apply(msg.event) {
			s.reload()
		}
	case mutationMsg:
		if msg.action == "move lead" && msg.err != nil {
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

func (s *leadsScreen) handleKey(msg tea.KeyMsg) (Screen, tea.Cmd) {
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
	if s.searching {
		switch msg.String() {
		case "enter":
			s.searching = false
			s.search.Blur()
		case "esc":
			s.searching = false
			s.search.Blur()
			s.search.SetValue("")
			s.reload()
		default:
			var cmd tea.Cmd
			s.search, cmd = s.search.Update(msg)
			s.reload()
			return s, cmd
		}
		return s, nil
	}

	if s.boardMode {
		t, moved, handled := s.board.key(msg.String())
		if moved {
			return s, s.move(t)
		}
		if handled {
			return s, nil
		}
	}

	switch msg.String() {
	case "/":
		s.searching = true
		return s, s.search.Focus()
	case "v":
		s.boardMode = !s.boardMode
	case "r":
		s.env.Cache.Invalidate(query.Leads, query.Stages)
	case "enter":
		if l, ok := s.selected(); ok {
			return s, navigate(router.LeadPath(l.ID))
		}
	case "n":
		s.form = s.leadForm(models.Lead{}, "")
	case "e":
		if l, ok := s.selected(); ok {
			s.form = s.leadForm(l, l.ID.String())
		}
	case "d":
		if l, ok := s.selected(); ok {
			id := l.ID
			s.confirm = newConfirm("lead", l.FullName(), s.env.mutate("delete lead", "Lead deleted", func(ctx context.Context) error {
				return s.env.Services.Leads.Remove(ctx, id)
			}, query.OnLeadChange))
		}
	default:
		if !s.boardMode {
			var cmd tea.Cmd
			s.table, cmd = s.table.Update(msg)
			return s, cmd
		}
	}
	return s, nil
}

// move sends the single stage write for a drop. The unstaged column is
// not a valid target.
func (s *leadsScreen) move(t kanban.Transition) tea.Cmd {
	id, err := uuid.Parse(t.CardID)
	if err != nil {
		return nil
	}
	stageID, err := uuid.Parse(t.To)
	if err != nil {
		s.board.refresh()
		return toast("Drop the lead on a stage column")
	}
	return s.env.mutate("move lead", "Lead moved", func(ctx context.Context) error {
		_, err := s.env.Services.Leads.MoveStage(ctx, id, stageID)
		return err
	}, query.OnLeadChange)
}

func (s *leadsScreen) leadForm(l models.Lead, target string) *form {
	f := models.LeadFormFrom(l)
	title := "New lead"
	if target != "" {
		title = "Edit lead"
	}
	fm := newForm(title,
		textField("first name", "First name", f.FirstName),
		textField("last name", "Last name", f.LastName),
		textField("email", "Email", f.Email),
		textField("phone", "Phone", f.Phone),
		textField("company", "Company", f.Company),
		textField("job title", "Job title", f.JobTitle),
		textField("source", "Source", f.Source),
		textField("value", "Value", f.Value),
		selectField("stage", "Stage", stageOptions(s.stages()), f.StageID),
	)
	fm.target = target
	fm.base = f
	return fm
}

func (s *leadsScreen) submit() tea.Cmd {
	f, _ := s.form.base.(models.LeadForm)
	f.FirstName = s.form.value("first name")
	f.LastName = s.form.value("last name")
	f.Email = s.form.value("email")
	f.Phone = s.form.value("phone")
	f.Company = s.form.value("company")
	f.JobTitle = s.form.value("job title")
	f.Source = s.form.value("source")
	f.Value = s.form.value("value")
	f.StageID = s.form.value("stage")
	if _, err := f.Payload(); err != nil {
		s.form.fail(err)
		return nil
	}
	if s.form.target == "" {
		return s.env.mutate("create lead", "Lead created", func(ctx context.Context) error {
			_, err := s.env.Services.Leads.Create(ctx, f)
			return err
		}, query.OnLeadChange)
	}
	id, err := uuid.Parse(s.form.target)
	if err != nil {
		s.form.fail(err)
		return nil
	}
	return s.env.mutate("update lead", "Lead updated", func(ctx context.Context) error {
		_, err := s.env.Services.Leads.Update(ctx, id, f)
		return err
	}, query.OnLeadChange)
}

func (s *leadsScreen) View(width, height int) string {
	if s.form != nil {
		return s.form.view()
	}
	if s.confirm != nil {
		return s.confirm.view(width, height)
	}
	if msg, ok := stateView(s.q, "leads", leadListKey); ok {
		return msg
	}
	var b strings.Builder
	count := fmt.Sprintf("LEADS (%d)", s.total)
	if term := strings.TrimSpace(s.search.Value()); term != "" {
		count = fmt.Sprintf("LEADS (%d of %d)", len(s.leads), s.total)
	}
	b.WriteString(titleStyle.Render(count) + "\n")
	if s.searching || s.search.Value() != "" {
		b.WriteString("Filter: " + s.search.View() + "\n")
	}
	body := height - 3
	if s.boardMode {
		b.WriteString(s.board.view(width, body))
	} else {
		b.WriteString(tableView(&s.table, body, "No leads match. Press n to add one."))
	}
	return b.String()
}
