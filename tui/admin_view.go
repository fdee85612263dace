// ABOUTME: Admin screens for users, pipeline stages and the organization
// ABOUTME: Only reachable through the admin guard
package tui

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/harperreed/leadlab/models"
	"github.com/harperreed/leadlab/query"
)

type usersScreen struct {
	env *Env
	q   *queries
	crud

	table table.Model
	users []models.User
}

func newUsersScreen(env *Env) *usersScreen {
	return &usersScreen{
		env: env,
		q:   newQueries(env.Cache),
		table: newTable(
			table.Column{Title: "Name", Width: 24},
			table.Column{Title: "Email", Width: 30},
			table.Column{Title: "Role", Width: 8},
			table.Column{Title: "Active", Width: 6},
		),
	}
}

func (s *usersScreen) Init() tea.Cmd {
	s.q.watch(query.Users, s.env.usersFetcher())
	s.reload()
	return nil
}

func (s *usersScreen) Capturing() bool { return s.capturing() }
func (s *usersScreen) Close()          { s.q.release() }
func (s *usersScreen) Help() []string {
	return []string{"n: New", "a: Toggle admin", "d: Delete", "r: Refresh"}
}

func (s *usersScreen) reload() {
	s.users = get[[]models.User](s.q, query.Users)
	rows := make([]table.Row, 0, len(s.users))
	for _, u := range s.users {
		role, active := "Member", "no"
		if u.IsAdmin {
			role = "Admin"
		}
		if u.IsActive {
			active = "yes"
		}
		rows = append(rows, table.Row{u.Name, u.Email, role, active})
	}
	setRows(&s.table, rows)
}

func (s *usersScreen) selected() (models.User, bool) {
	i := s.table.Cursor()
	if i >= 0 && i < len(s.users) {
		return s.users[i], true
	}
	return models.User{}, false
}

func (s *usersScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case cacheEventMsg:
		if s.q.apply(msg.event) {
			s.reload()
		}
	case mutationMsg:
		s.done(msg)
	case tea.KeyMsg:
		if cmd, ok := s.key(msg, s.submit); ok {
			return s, cmd
		}
		users := s.env.Services.Users
		switch msg.String() {
		case "r":
			s.env.Cache.Invalidate(query.Users)
		case "n":
			s.form = newForm("New user",
				textField("name", "Name", ""),
				textField("email", "Email", ""),
				passwordField("password", "Password"),
				toggleField("admin", "Admin", false),
			)
		case "a":
			if u, ok := s.selected(); ok {
				if me := s.env.Auth.Snapshot().User; me != nil && me.ID == u.ID {
					return s, func() tea.Msg { return toastMsg{text: "You cannot change your own role", isErr: true} }
				}
				f := models.UserForm{Name: u.Name, Email: u.Email, IsAdmin: !u.IsAdmin}
				return s, s.env.mutate("update user", "Role updated", func(ctx context.Context) error {
					_, err := users.Update(ctx, u.ID, f)
					return err
				}, query.OnUserChange)
			}
		case "d":
			if u, ok := s.selected(); ok {
				id := u.ID
				s.confirm = newConfirm("user", u.Email, s.env.mutate("delete user", "User deleted", func(ctx context.Context) error {
					return users.Remove(ctx, id)
				}, query.OnUserChange))
			}
		default:
			var cmd tea.Cmd
			s.table, cmd = s.table.Update(msg)
			return s, cmd
		}
	}
	return s, nil
}

func (s *usersScreen) submit() tea.Cmd {
	f := models.UserForm{
		Name:     s.form.value("name"),
		Email:    s.form.value("email"),
		Password: s.form.value("password"),
		IsAdmin:  s.form.on("admin"),
	}
	if _, err := f.Payload(); err != nil {
		s.form.fail(err)
		return nil
	}
	return s.env.mutate("create user", "User created", func(ctx context.Context) error {
		_, err := s.env.Services.Users.Create(ctx, f)
		return err
	}, query.OnUserChange)
}

func (s *usersScreen) View(width, height int) string {
	if v, ok := s.crud.view(width, height); ok {
		return v
	}
	if msg, ok := stateView(s.q, "users", query.Users); ok {
		return msg
	}
	return titleStyle.Render(fmt.Sprintf("USERS (%d)", len(s.users))) + "\n" + tableView(&s.table, height-2, "No users.")
}

type stagesScreen struct {
	env *Env
	q   *queries
	crud

	table  table.Model
	stages []models.Stage
}

func newStagesScreen(env *Env) *stagesScreen {
	return &stagesScreen{
		env: env,
		q:   newQueries(env.Cache),
		table: newTable(
			table.Column{Title: "#", Width: 4},
			table.Column{Title: "Name", Width: 28},
			table.Column{Title: "Color", Width: 10},
		),
	}
}

func (s *stagesScreen) Init() tea.Cmd {
	s.q.watch(stagesKey, s.env.stagesFetcher())
	s.reload()
	return nil
}

func (s *stagesScreen) Capturing() bool { return s.capturing() }
func (s *stagesScreen) Close()          { s.q.release() }
func (s *stagesScreen) Help() []string {
	return []string{"n: New", "e: Edit", "d: Delete", "r: Refresh"}
}

func (s *stagesScreen) reload() {
	s.stages = append(s.stages[:0], get[[]models.Stage](s.q, stagesKey)...)
	sort.SliceStable(s.stages, func(i, j int) bool { return s.stages[i].Position < s.stages[j].Position })
	rows := make([]table.Row, 0, len(s.stages))
	for _, st := range s.stages {
		rows = append(rows, table.Row{strconv.Itoa(st.Position), st.Name, st.Color})
	}
	setRows(&s.table, rows)
}

func (s *stagesScreen) selected() (models.Stage, bool) {
	i := s.table.Cursor()
	if i >= 0 && i < len(s.stages) {
		return s.stages[i], true
	}
	return models.Stage{}, false
}

func (s *stagesScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case cacheEventMsg:
		if s.q.apply(msg.event) {
			s.reload()
		}
	case mutationMsg:
		s.done(msg)
	case tea.KeyMsg:
		if cmd, ok := s.key(msg, s.submit); ok {
			return s, cmd
		}
		switch msg.String() {
		case "r":
			s.env.Cache.Invalidate(query.Stages)
		case "n":
			s.form = stageForm(models.Stage{Position: len(s.stages)}, "")
		case "e", "enter":
			if st, ok := s.selected(); ok {
				s.form = stageForm(st, st.ID.String())
			}
		case "d":
			if st, ok := s.selected(); ok {
				id := st.ID
				s.confirm = newConfirm("stage", st.Name, s.env.mutate("delete stage", "Stage deleted", func(ctx context.Context) error {
					return s.env.Services.Stages.Remove(ctx, id)
				}, query.OnStageChange))
			}
		default:
			var cmd tea.Cmd
			s.table, cmd = s.table.Update(msg)
			return s, cmd
		}
	}
	return s, nil
}

func stageForm(st models.Stage, target string) *form {
	title := "New stage"
	if target != "" {
		title = "Edit stage"
	}
	f := newForm(title,
		textField("name", "Name", st.Name),
		textField("color", "Color", st.Color),
		textField("position", "Position", strconv.Itoa(st.Position)),
	)
	f.target = target
	return f
}

func (s *stagesScreen) submit() tea.Cmd {
	f := models.StageForm{
		Name:     s.form.value("name"),
		Color:    s.form.value("color"),
		Position: s.form.value("position"),
	}
	if _, err := f.Payload(); err != nil {
		s.form.fail(err)
		return nil
	}
	stages := s.env.Services.Stages
	if s.form.target == "" {
		return s.env.mutate("create stage", "Stage created", func(ctx context.Context) error {
			_, err := stages.Create(ctx, f)
			return err
		}, query.OnStageChange)
	}
	id, err := uuid.Parse(s.form.target)
	if err != nil {
		s.form.fail(err)
		return nil
	}
	return s.env.mutate("update stage", "Stage updated", func(ctx context.Context) error {
		_, err := stages.Update(ctx, id, f)
		return err
	}, query.OnStageChange)
}

func (s *stagesScreen) View(width, height int) string {
	if v, ok := s.crud.view(width, height); ok {
		return v
	}
	if msg, ok := stateView(s.q, "stages", stagesKey); ok {
		return msg
	}
	return titleStyle.Render(fmt.Sprintf("PIPELINE STAGES (%d)", len(s.stages))) + "\n" + tableView(&s.table, height-2, "No stages. Press n to add one.")
}

type organizationScreen struct {
	env *Env
	q   *queries
	crud
}

func newOrganizationScreen(env *Env) *organizationScreen {
	return &organizationScreen{env: env, q: newQueries(env.Cache)}
}

func (s *organizationScreen) Init() tea.Cmd {
	s.q.watch(query.Organization, s.env.organizationFetcher())
	return nil
}

func (s *organizationScreen) Capturing() bool { return s.capturing() }
func (s *organizationScreen) Close()          { s.q.release() }
func (s *organizationScreen) Help() []string  { return []string{"e: Rename"} }

func (s *organizationScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case cacheEventMsg:
		s.q.apply(msg.event)
	case mutationMsg:
		s.done(msg)
	case tea.KeyMsg:
		if cmd, ok := s.key(msg, s.submit); ok {
			return s, cmd
		}
		switch msg.String() {
		case "r":
			s.env.Cache.Invalidate(query.Organization)
		case "e":
			if org, ok := query.Data[*models.Organization](s.q.snap(query.Organization)); ok {
				s.form = newForm("Rename organization", textField("name", "Name", org.Name))
			}
		}
	}
	return s, nil
}

func (s *organizationScreen) submit() tea.Cmd {
	name := s.form.value("name")
	if name == "" {
		s.form.fail(&models.ValidationError{Field: "name", Message: "is required"})
		return nil
	}
	return s.env.mutate("rename organization", "Organization renamed", func(ctx context.Context) error {
		_, err := s.env.Services.Organization.Rename(ctx, name)
		return err
	}, query.OnOrganizationChange)
}

func (s *organizationScreen) View(width, height int) string {
	if v, ok := s.crud.view(width, height); ok {
		return v
	}
	if msg, ok := stateView(s.q, "organization", query.Organization); ok {
		return msg
	}
	org := get[*models.Organization](s.q, query.Organization)
	return titleStyle.Render("ORGANIZATION") + "\n" +
		cardStyle.Render(fmt.Sprintf("%s\n%s", org.Name, mutedStyle.Render("Created "+org.CreatedAt.Date()+"  ·  "+org.ID.String())))
}
