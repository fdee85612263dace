// ABOUTME: Tasks screen with a status kanban and a table view
// ABOUTME: Overdue tasks are flagged; x marks the selected task done
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
)

type tasksScreen struct {
	env *Env
	q   *queries

	tableMode bool
	board     boardState
	table     table.Model
	tasks     []models.Task

	form    *form
	confirm *confirm
}

func newTasksScreen(env *Env) *tasksScreen {
	s := &tasksScreen{
		env: env,
		q:   newQueries(env.Cache),
		table: newTable(
			table.Column{Title: "Title", Width: 34},
			table.Column{Title: "Status", Width: 12},
			table.Column{Title: "Priority", Width: 10},
			table.Column{Title: "Due", Width: 12},
		),
	}
	s.board.build = s.buildBoard
	return s
}

func (s *tasksScreen) Init() tea.Cmd {
	s.q.watch(taskListKey, s.env.tasksFetcher())
	s.q.watch(leadListKey, s.env.leadsFetcher(""))
	s.reload()
	return nil
}

func (s *tasksScreen) Capturing() bool {
	return s.form != nil || s.confirm != nil || s.board.holding()
}

func (s *tasksScreen) Close() { s.q.release() }

func (s *tasksScreen) Help() []string {
	if s.board.holding() {
		return s.board.help()
	}
	help := []string{"n: New", "e: Edit", "x: Done", "d: Delete", "v: Toggle board/table"}
	if !s.tableMode {
		help = append(s.board.help(), help...)
	}
	return help
}

func (s *tasksScreen) dueLabel(t models.Task) string {
	due := t.DueDate.Date()
	if t.Overdue(s.env.Now()) {
		due += " !"
	}
	return due
}

func (s *tasksScreen) reload() {
	s.tasks = get[[]models.Task](s.q, taskListKey)
	rows := make([]table.Row, 0, len(s.tasks))
	for _, t := range s.tasks {
		rows = append(rows, table.Row{t.Title, t.Status.Label(), t.Priority.Label(), s.dueLabel(t)})
	}
	setRows(&s.table, rows)
	s.board.refresh()
}

func (s *tasksScreen) buildBoard() *kanban.Board {
	cols := make([]kanban.Column, 0, len(models.TaskStatuses))
	for _, st := range models.TaskStatuses {
		cols = append(cols, kanban.Column{Key: string(st), Title: st.Label()})
	}
	cards := make([]kanban.Card, 0, len(s.tasks))
	for _, t := range s.tasks {
		sub := t.Priority.Label()
		if due := s.dueLabel(t); due != "" {
			sub += " · " + due
		}
		cards = append(cards, kanban.Card{ID: t.ID.String(), Title: t.Title, Subtitle: sub, Column: string(t.Status)})
	}
	return kanban.New(cols, cards)
}

func (s *tasksScreen) selected() (models.Task, bool) {
	if s.tableMode {
		i := s.table.Cursor()
		if i >= 0 && i < len(s.tasks) {
			return s.tasks[i], true
		}
		return models.Task{}, false
	}
	if s.board.board == nil {
		return models.Task{}, false
	}
	card, ok := s.board.board.Selected()
	if !ok {
		return models.Task{}, false
	}
	for _, t := range s.tasks {
		if t.ID.String() == card.ID {
			return t, true
		}
	}
	return models.Task{}, false
}

func (s *tasksScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case cacheEventMsg:
		if s.q.apply(msg.event) && msg.event.Key == taskListKey {
			s.reload()
		}
	case mutationMsg:
		if msg.action == "move task" && msg.err != nil {
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

func (s *tasksScreen) handleKey(msg tea.KeyMsg) (Screen, tea.Cmd) {
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
			id, err := uuid.Parse(t.CardID)
			if err != nil {
				return s, nil
			}
			return s, s.setStatus(id, models.TaskStatus(t.To))
		}
		if handled {
			return s, nil
		}
	}

	switch msg.String() {
	case "v":
		s.tableMode = !s.tableMode
	case "r":
		s.env.Cache.Invalidate(query.Tasks)
	case "n":
		s.form = s.taskForm(models.Task{Status: models.TaskTodo, Priority: models.PriorityMedium}, "")
	case "e", "enter":
		if t, ok := s.selected(); ok {
			s.form = s.taskForm(t, t.ID.String())
		}
	case "x":
		if t, ok := s.selected(); ok && t.Status != models.TaskDone {
			return s, s.setStatus(t.ID, models.TaskDone)
		}
	case "d":
		if t, ok := s.selected(); ok {
			id := t.ID
			s.confirm = newConfirm("task", t.Title, s.env.mutate("delete task", "Task deleted", func(ctx context.Context) error {
				return s.env.Services.Tasks.Remove(ctx, id)
			}, query.OnTaskChange))
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

func (s *tasksScreen) setStatus(id uuid.UUID, status models.TaskStatus) tea.Cmd {
	return s.env.mutate("move task", "Task moved to "+status.Label(), func(ctx context.Context) error {
		_, err := s.env.Services.Tasks.UpdateStatus(ctx, id, status)
		return err
	}, query.OnTaskChange)
}

func (s *tasksScreen) taskForm(t models.Task, target string) *form {
	f := models.TaskFormFrom(t)
	title := "New task"
	if target != "" {
		title = "Edit task"
	}
	leads := get[api.Page[models.Lead]](s.q, leadListKey).Items
	fm := newForm(title,
		textField("title", "Title", f.Title),
		textField("description", "Description", f.Description),
		selectField("status", "Status", taskStatusOptions(), f.Status),
		selectField("priority", "Priority", taskPriorityOptions(), f.Priority),
		textField("due date", "Due date", f.DueDate),
		selectField("lead", "Lead", leadOptions(leads), f.LeadID),
	)
	fm.target = target
	fm.base = f
	return fm
}

func (s *tasksScreen) submit() tea.Cmd {
	f, _ := s.form.base.(models.TaskForm)
	f.Title = s.form.value("title")
	f.Description = s.form.value("description")
	f.Status = s.form.value("status")
	f.Priority = s.form.value("priority")
	f.DueDate = s.form.value("due date")
	f.LeadID = s.form.value("lead")
	if _, err := f.Payload(); err != nil {
		s.form.fail(err)
		return nil
	}
	if s.form.target == "" {
		return s.env.mutate("create task", fmt.Sprintf("Task %q created", f.Title), func(ctx context.Context) error {
			_, err := s.env.Services.Tasks.Create(ctx, f)
			return err
		}, query.OnTaskChange)
	}
	id, err := uuid.Parse(s.form.target)
	if err != nil {
		s.form.fail(err)
		return nil
	}
	return s.env.mutate("update task", "Task updated", func(ctx context.Context) error {
		_, err := s.env.Services.Tasks.Update(ctx, id, f)
		return err
	}, query.OnTaskChange)
}

func (s *tasksScreen) View(width, height int) string {
	if s.form != nil {
		return s.form.view()
	}
	if s.confirm != nil {
		return s.confirm.view(width, height)
	}
	if msg, ok := stateView(s.q, "tasks", taskListKey); ok {
		return msg
	}
	header := titleStyle.Render(fmt.Sprintf("TASKS (%d)", len(s.tasks))) + "\n"
	if s.tableMode {
		return header + tableView(&s.table, height-2, "No tasks yet. Press n to add one.")
	}
	return header + s.board.view(width, height-2)
}
