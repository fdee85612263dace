// ABOUTME: Calendar screen with a month grid, a day agenda and ICS import
// ABOUTME: Each visible month is its own cached range query
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/harperreed/leadlab/ics"
	"github.com/harperreed/leadlab/models"
	"github.com/harperreed/leadlab/query"
)

const dayLayout = "2006-01-02"

type calendarScreen struct {
	env *Env
	q   *queries

	day    time.Time
	cursor int

	form      *form
	formKind  string
	confirm   *confirm
	importing bool
}

func newCalendarScreen(env *Env) *calendarScreen {
	now := env.Now()
	return &calendarScreen{
		env: env,
		q:   newQueries(env.Cache),
		day: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()),
	}
}

// monthRange is the first day of day's month and the first of the next.
func monthRange(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	return start, start.AddDate(0, 1, 0)
}

func (s *calendarScreen) key() query.Key {
	start, end := monthRange(s.day)
	return query.EventRange(start.Format(dayLayout), end.Format(dayLayout))
}

func (s *calendarScreen) Init() tea.Cmd {
	s.watchMonth()
	return nil
}

func (s *calendarScreen) watchMonth() {
	start, end := monthRange(s.day)
	s.q.watch(s.key(), s.env.eventsFetcher(start, end))
}

func (s *calendarScreen) Capturing() bool { return s.form != nil || s.confirm != nil }
func (s *calendarScreen) Close()          { s.q.release() }

func (s *calendarScreen) Help() []string {
	return []string{"←/→/↑/↓: Day", "</>: Month", "Tab: Next event", "n: New", "e: Edit", "d: Delete", "i: Import .ics", "t: Today"}
}

func (s *calendarScreen) dayEvents() []models.Event {
	var out []models.Event
	for _, ev := range get[[]models.Event](s.q, s.key()) {
		if ev.OnDay(s.day) {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate.Time) })
	return out
}

func (s *calendarScreen) selected() (models.Event, bool) {
	evs := s.dayEvents()
	if s.cursor < len(evs) {
		return evs[s.cursor], true
	}
	return models.Event{}, false
}

func (s *calendarScreen) moveDay(days int) {
	s.day = s.day.AddDate(0, 0, days)
	s.cursor = 0
	s.watchMonth()
}

func (s *calendarScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case cacheEventMsg:
		s.q.apply(msg.event)
	case mutationMsg:
		if s.form != nil {
			if msg.err != nil {
				s.form.fail(msg.err)
			} else {
				s.form = nil
			}
		}
	case resultMsg:
		if msg.tag != "ics" {
			return s, nil
		}
		s.importing = false
		s.form = nil
		// Partial imports still created events.
		s.env.Cache.Invalidate(query.OnEventChange...)
		res, _ := msg.val.(ics.Result)
		if msg.err != nil && res.Imported == 0 && res.Failed == 0 {
			return s, toastErr(msg.err, "import calendar")
		}
		return s, func() tea.Msg { return toastMsg{text: res.Summary(), isErr: res.Failed > 0} }
	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *calendarScreen) handleKey(msg tea.KeyMsg) (Screen, tea.Cmd) {
	if s.form != nil {
		if s.importing {
			return s, nil
		}
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

	switch msg.String() {
	case "left", "h":
		s.moveDay(-1)
	case "right", "l":
		s.moveDay(1)
	case "up", "k":
		s.moveDay(-7)
	case "down", "j":
		s.moveDay(7)
	case "<", ",":
		s.day = s.day.AddDate(0, -1, 0)
		s.moveDay(0)
	case ">", ".":
		s.day = s.day.AddDate(0, 1, 0)
		s.moveDay(0)
	case "t":
		now := s.env.Now()
		s.day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		s.moveDay(0)
	case "tab":
		if n := len(s.dayEvents()); n > 0 {
			s.cursor = (s.cursor + 1) % n
		}
	case "r":
		s.env.Cache.Invalidate(query.Events)
	case "n":
		start := s.day.Add(9 * time.Hour)
		s.openEventForm(models.EventForm{
			StartDate: start.Format("2006-01-02 15:04"),
			EndDate:   start.Add(time.Hour).Format("2006-01-02 15:04"),
			EventType: string(models.EventMeeting),
		}, "")
	case "e", "enter":
		if ev, ok := s.selected(); ok {
			s.openEventForm(models.EventFormFrom(ev), ev.ID.String())
		}
	case "d":
		if ev, ok := s.selected(); ok {
			id := ev.ID
			s.confirm = newConfirm("event", ev.Title, s.env.mutate("delete event", "Event deleted", func(ctx context.Context) error {
				return s.env.Services.Events.Remove(ctx, id)
			}, query.OnEventChange))
		}
	case "i":
		s.form, s.formKind = newForm("Import calendar", textField("path", "File (.ics)", "")), "ics"
	}
	return s, nil
}

func (s *calendarScreen) openEventForm(f models.EventForm, target string) {
	title := "New event"
	if target != "" {
		title = "Edit event"
	}
	s.form = newForm(title,
		textField("title", "Title", f.Title),
		textField("start", "Start", f.StartDate),
		textField("end", "End", f.EndDate),
		textField("location", "Location", f.Location),
		textField("description", "Description", f.Description),
		selectField("type", "Type", eventTypeOptions(), f.EventType),
	)
	s.form.target = target
	s.formKind = "event"
}

func (s *calendarScreen) submit() tea.Cmd {
	if s.formKind == "ics" {
		path := s.form.value("path")
		if err := ics.CheckName(path); err != nil {
			s.form.fail(&models.ValidationError{Field: "path", Message: "must be an .ics file"})
			return nil
		}
		s.importing = true
		events := s.env.Services.Events
		return s.env.run("ics", func(ctx context.Context) (any, error) {
			return ics.ImportFile(ctx, path, events, nil)
		})
	}

	f := models.EventForm{
		Title:       s.form.value("title"),
		StartDate:   s.form.value("start"),
		EndDate:     s.form.value("end"),
		Location:    s.form.value("location"),
		Description: s.form.value("description"),
		EventType:   s.form.value("type"),
	}
	if _, err := f.Payload(); err != nil {
		s.form.fail(err)
		return nil
	}
	if s.form.target == "" {
		return s.env.mutate("create event", fmt.Sprintf("Event %q created", f.Title), func(ctx context.Context) error {
			_, err := s.env.Services.Events.Create(ctx, f)
			return err
		}, query.OnEventChange)
	}
	id, err := uuid.Parse(s.form.target)
	if err != nil {
		s.form.fail(err)
		return nil
	}
	return s.env.mutate("update event", "Event updated", func(ctx context.Context) error {
		_, err := s.env.Services.Events.Update(ctx, id, f)
		return err
	}, query.OnEventChange)
}

func (s *calendarScreen) View(width, height int) string {
	if s.form != nil {
		view := s.form.view()
		if s.importing {
			view += "\n" + mutedStyle.Render("Importing events...")
		}
		return view
	}
	if s.confirm != nil {
		return s.confirm.view(width, height)
	}
	if msg, ok := stateView(s.q, "events", s.key()); ok {
		return msg
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, s.monthView(), "  ", s.agendaView(max(width-40, 20)))
}

func (s *calendarScreen) monthView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(strings.ToUpper(s.day.Format("January 2006"))) + "\n")
	b.WriteString(mutedStyle.Render(" Mo  Tu  We  Th  Fr  Sa  Su") + "\n")

	start, end := monthRange(s.day)
	events := get[[]models.Event](s.q, s.key())
	offset := (int(start.Weekday()) + 6) % 7
	b.WriteString(strings.Repeat("    ", offset))
	today := s.env.Now()
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		mark := " "
		for _, ev := range events {
			if ev.OnDay(d) {
				mark = "•"
				break
			}
		}
		cell := fmt.Sprintf("%3d%s", d.Day(), mark)
		switch {
		case d.Equal(s.day):
			cell = selectedStyle.Render(cell)
		case d.Year() == today.Year() && d.YearDay() == today.YearDay():
			cell = okStyle.Render(cell)
		}
		b.WriteString(cell)
		if d.Weekday() == time.Sunday {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (s *calendarScreen) agendaView(width int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(s.day.Format("Monday, Jan 2")) + "\n")
	evs := s.dayEvents()
	if len(evs) == 0 {
		b.WriteString(mutedStyle.Render("Nothing scheduled."))
		return b.String()
	}
	for i, ev := range evs {
		when := ev.StartDate.Local().Format("15:04")
		if !ev.EndDate.IsZero() {
			when += "–" + ev.EndDate.Local().Format("15:04")
		}
		line := fmt.Sprintf("%-11s %s", when, truncate(ev.Title, width-13))
		if i == s.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
		if ev.Location != "" {
			b.WriteString(mutedStyle.Render("            "+truncate(ev.Location, width-13)) + "\n")
		}
	}
	return b.String()
}
