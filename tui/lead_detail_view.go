// ABOUTME: Lead detail screen with notes, info requests and tags
// ABOUTME: Tags are attached by name, creating the tag on first use
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/harperreed/leadlab/models"
	"github.com/harperreed/leadlab/query"
	"github.com/harperreed/leadlab/viz"
)

type leadDetailScreen struct {
	env *Env
	id  uuid.UUID
	q   *queries

	form     *form
	formKind string
	confirm  *confirm
}

func newLeadDetailScreen(env *Env, id uuid.UUID) *leadDetailScreen {
	return &leadDetailScreen{env: env, id: id, q: newQueries(env.Cache)}
}

func (s *leadDetailScreen) Init() tea.Cmd {
	s.q.watch(query.LeadDetail(s.id), s.env.leadFetcher(s.id))
	s.q.watch(query.LeadNotes(s.id), s.env.notesFetcher(s.id))
	s.q.watch(query.LeadInfoRequests(s.id), s.env.infoRequestsFetcher(s.id))
	s.q.watch(stagesKey, s.env.stagesFetcher())
	s.q.watch(tagsKey, s.env.tagsFetcher())
	return nil
}

func (s *leadDetailScreen) Capturing() bool { return s.form != nil || s.confirm != nil }
func (s *leadDetailScreen) Close()          { s.q.release() }

func (s *leadDetailScreen) Help() []string {
	return []string{"a: Add note", "i: Request info", "t: Tag", "x: Remove tag", "s: Stage", "d: Delete", "Esc: Back"}
}

func (s *leadDetailScreen) lead() (*models.Lead, bool) {
	return query.Data[*models.Lead](s.q.snap(query.LeadDetail(s.id)))
}

func (s *leadDetailScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
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
		if msg.action == "delete lead" && msg.err == nil {
			return s, navigate("/leads")
		}
	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *leadDetailScreen) handleKey(msg tea.KeyMsg) (Screen, tea.Cmd) {
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

	lead, ok := s.lead()
	switch msg.String() {
	case "esc":
		return s, navigate("/leads")
	case "r":
		s.env.Cache.Invalidate(query.LeadDetail(s.id), query.Tags)
	case "a":
		s.open("note", newForm("Add note", textField("content", "Note", "")))
	case "i":
		s.open("info", newForm("Request info", textField("subject", "Subject", ""), textField("message", "Message", "")))
	case "t":
		s.open("tag", newForm("Add tag", textField("tag", "Tag name", "")))
	case "x":
		if ok && len(lead.Tags) > 0 {
			opts := make([]option, 0, len(lead.Tags))
			for _, t := range lead.Tags {
				opts = append(opts, option{label: t.Name, value: t.ID.String()})
			}
			s.open("untag", newForm("Remove tag", selectField("tag", "Tag", opts, "")))
		}
	case "s":
		if ok {
			current := ""
			if lead.StageID != nil {
				current = lead.StageID.String()
			}
			s.open("stage", newForm("Move stage", selectField("stage", "Stage", stageOptions(get[[]models.Stage](s.q, stagesKey)), current)))
		}
	case "d":
		if ok {
			s.confirm = newConfirm("lead", lead.FullName(), s.env.mutate("delete lead", "Lead deleted", func(ctx context.Context) error {
				return s.env.Services.Leads.Remove(ctx, s.id)
			}, query.OnLeadChange))
		}
	}
	return s, nil
}

func (s *leadDetailScreen) open(kind string, f *form) {
	s.form, s.formKind = f, kind
}

func (s *leadDetailScreen) submit() tea.Cmd {
	leads := s.env.Services.Leads
	switch s.formKind {
	case "note":
		content := s.form.value("content")
		if content == "" {
			s.form.fail(&models.ValidationError{Field: "content", Message: "is required"})
			return nil
		}
		return s.env.mutate("add note", "Note added", func(ctx context.Context) error {
			_, err := leads.AddNote(ctx, s.id, content)
			return err
		}, query.OnLeadDetailChange)
	case "info":
		subject, message := s.form.value("subject"), s.form.value("message")
		if subject == "" {
			s.form.fail(&models.ValidationError{Field: "subject", Message: "is required"})
			return nil
		}
		return s.env.mutate("request info", "Info request sent", func(ctx context.Context) error {
			_, err := leads.RequestInfo(ctx, s.id, subject, message)
			return err
		}, query.OnLeadDetailChange)
	case "tag":
		name := s.form.value("tag")
		if name == "" {
			s.form.fail(&models.ValidationError{Field: "tag", Message: "is required"})
			return nil
		}
		existing := get[[]models.Tag](s.q, tagsKey)
		return s.env.mutate("add tag", fmt.Sprintf("Tagged %q", name), func(ctx context.Context) error {
			tag, err := s.env.Services.Tags.Ensure(ctx, existing, name)
			if err != nil {
				return err
			}
			return leads.AttachTag(ctx, s.id, tag.ID)
		}, query.OnTagChange)
	case "untag":
		tagID, err := uuid.Parse(s.form.value("tag"))
		if err != nil {
			s.form.fail(err)
			return nil
		}
		return s.env.mutate("remove tag", "Tag removed", func(ctx context.Context) error {
			return leads.DetachTag(ctx, s.id, tagID)
		}, query.OnTagChange)
	case "stage":
		stageID, err := uuid.Parse(s.form.value("stage"))
		if err != nil {
			s.form.fail(&models.ValidationError{Field: "stage", Message: "must be a stage"})
			return nil
		}
		return s.env.mutate("move lead", "Lead moved", func(ctx context.Context) error {
			_, err := leads.MoveStage(ctx, s.id, stageID)
			return err
		}, query.OnLeadChange)
	}
	return nil
}

func (s *leadDetailScreen) View(width, height int) string {
	if s.form != nil {
		return s.form.view()
	}
	if s.confirm != nil {
		return s.confirm.view(width, height)
	}
	if msg, ok := stateView(s.q, "lead", query.LeadDetail(s.id)); ok {
		return msg
	}
	lead, _ := s.lead()

	var b strings.Builder
	b.WriteString(titleStyle.Render(strings.ToUpper(lead.FullName())))
	b.WriteString("\n")

	info := [][2]string{
		{"Email", lead.Email},
		{"Phone", lead.Phone},
		{"Company", lead.Company},
		{"Job title", lead.JobTitle},
		{"Source", lead.Source},
		{"Value", viz.Money(lead.Value)},
		{"Stage", s.stageName(lead.StageID)},
		{"Created", lead.CreatedAt.Date()},
	}
	for _, kv := range info {
		if kv[1] == "" {
			continue
		}
		b.WriteString(mutedStyle.Render(padRight(kv[0], 12)) + kv[1] + "\n")
	}

	if len(lead.Tags) > 0 {
		tags := make([]string, 0, len(lead.Tags))
		for _, t := range lead.Tags {
			style := tabInactiveStyle
			if t.Color != "" {
				style = style.Foreground(lipgloss.Color(t.Color))
			}
			tags = append(tags, style.Render("#"+t.Name))
		}
		b.WriteString(mutedStyle.Render(padRight("Tags", 12)) + strings.Join(tags, " ") + "\n")
	}

	b.WriteString("\n" + titleStyle.Render("NOTES") + "\n")
	notes := get[[]models.Note](s.q, query.LeadNotes(s.id))
	if len(notes) == 0 {
		b.WriteString(mutedStyle.Render("No notes yet.") + "\n")
	}
	for _, n := range notes {
		b.WriteString(mutedStyle.Render(n.CreatedAt.Date()) + "  " + truncate(n.Content, width-14) + "\n")
	}

	b.WriteString("\n" + titleStyle.Render("INFO REQUESTS") + "\n")
	requests := get[[]models.InfoRequest](s.q, query.LeadInfoRequests(s.id))
	if len(requests) == 0 {
		b.WriteString(mutedStyle.Render("None sent.") + "\n")
	}
	for _, r := range requests {
		line := r.Subject
		if r.Status != "" {
			line += " (" + r.Status + ")"
		}
		b.WriteString(mutedStyle.Render(r.CreatedAt.Date()) + "  " + truncate(line, width-14) + "\n")
	}
	return b.String()
}

func (s *leadDetailScreen) stageName(id *uuid.UUID) string {
	if id == nil {
		return "No stage"
	}
	for _, st := range get[[]models.Stage](s.q, stagesKey) {
		if st.ID == *id {
			return st.Name
		}
	}
	return ""
}
