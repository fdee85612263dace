// ABOUTME: Public screens: sign in, sign up and the legal pages
// ABOUTME: Sign-in drives the auth store; the shell reroutes when the session changes
package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/leadlab/auth"
	"github.com/harperreed/leadlab/models"
	"github.com/harperreed/leadlab/router"
)

type signInScreen struct {
	env  *Env
	form *form
	from string
}

func newSignInScreen(env *Env, loc router.Location) *signInScreen {
	return &signInScreen{
		env:  env,
		from: loc.Query.Get("from"),
		form: newForm("Sign in", textField("email", "Email", ""), passwordField("password", "Password")),
	}
}

func (s *signInScreen) Init() tea.Cmd   { return nil }
func (s *signInScreen) Capturing() bool { return true }
func (s *signInScreen) Close()          {}

func (s *signInScreen) Help() []string {
	return []string{"ctrl+n: Create account"}
}

func (s *signInScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+n" {
			return s, navigate(router.SignUp)
		}
		action, cmd := s.form.update(msg)
		if action == formSubmit {
			return s, s.submit()
		}
		if action == formCancel {
			s.form.err = ""
		}
		return s, cmd
	case resultMsg:
		if msg.tag != "login" {
			return s, nil
		}
		s.form.submitting = false
		if msg.err != nil {
			snap := s.env.Auth.Snapshot()
			if snap.State == auth.Failed && snap.Error != "" {
				s.form.err = snap.Error
			} else {
				s.form.fail(msg.err)
			}
			s.env.Auth.Acknowledge()
		}
	}
	return s, nil
}

func (s *signInScreen) submit() tea.Cmd {
	email, password := s.form.value("email"), s.form.value("password")
	if email == "" || password == "" {
		s.form.submitting = false
		s.form.err = "Email and password are required"
		return nil
	}
	return s.env.run("login", func(ctx context.Context) (any, error) {
		return nil, s.env.Auth.Login(ctx, email, password)
	})
}

func (s *signInScreen) View(width, height int) string {
	var b strings.Builder
	if s.from != "" {
		b.WriteString(mutedStyle.Render("Sign in to continue to "+s.from) + "\n\n")
	}
	b.WriteString(s.form.view())
	return b.String()
}

type signUpScreen struct {
	env  *Env
	form *form
}

func newSignUpScreen(env *Env) *signUpScreen {
	return &signUpScreen{
		env: env,
		form: newForm("Create your account",
			textField("name", "Name", ""),
			textField("email", "Email", ""),
			passwordField("password", "Password"),
			textField("organization_name", "Organization", ""),
		),
	}
}

func (s *signUpScreen) Init() tea.Cmd   { return nil }
func (s *signUpScreen) Capturing() bool { return true }
func (s *signUpScreen) Close()          {}

func (s *signUpScreen) Help() []string {
	return []string{"Esc: Back to sign in", "f1: Terms", "f2: Privacy"}
}

func (s *signUpScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "f1":
			return s, navigate("/terms")
		case "f2":
			return s, navigate("/privacy")
		}
		action, cmd := s.form.update(msg)
		switch action {
		case formCancel:
			return s, navigate(router.SignIn)
		case formSubmit:
			return s, s.submit()
		}
		return s, cmd
	case resultMsg:
		if msg.tag == "signup" && msg.err != nil {
			s.form.fail(msg.err)
			s.env.Auth.Acknowledge()
		}
	}
	return s, nil
}

// submit creates the account and signs straight in with it.
func (s *signUpScreen) submit() tea.Cmd {
	f := models.SignupForm{
		Name:             s.form.value("name"),
		Email:            s.form.value("email"),
		Password:         s.form.value("password"),
		OrganizationName: s.form.value("organization_name"),
	}
	return s.env.run("signup", func(ctx context.Context) (any, error) {
		if _, err := s.env.Services.Auth.Signup(ctx, f); err != nil {
			return nil, err
		}
		return nil, s.env.Auth.Login(ctx, f.Email, f.Password)
	})
}

func (s *signUpScreen) View(width, height int) string {
	return s.form.view()
}

type legalScreen struct {
	route router.Route
}

func newLegalScreen(r router.Route) *legalScreen { return &legalScreen{route: r} }

func (s *legalScreen) Init() tea.Cmd   { return nil }
func (s *legalScreen) Capturing() bool { return false }
func (s *legalScreen) Close()          {}
func (s *legalScreen) Help() []string  { return []string{"Esc: Back"} }

func (s *legalScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
		return s, navigate(router.SignUp)
	}
	return s, nil
}

func (s *legalScreen) View(width, height int) string {
	body := termsText
	if s.route.Pattern == "/privacy" {
		body = privacyText
	}
	return titleStyle.Render(s.route.Title) + "\n" + cardStyle.Width(min(width, 80)).Render(body)
}

const termsText = `LeadLab is provided to your organization under its subscription agreement.

You are responsible for the accuracy of the records you enter and for keeping
your credentials private. Administrators of your organization can see and
manage every lead, deal, task and event in the workspace.

Connected services such as email accounts and Calendly are used only to sync
data into your workspace and can be disconnected at any time from Settings.`

const privacyText = `LeadLab stores the records you create on your organization's LeadLab server.

This terminal client keeps your sign-in token in your local data directory and
the last screen you visited in your session directory. Nothing else is stored
on this machine. Sign out to remove the token.

Connected email and calendar data is fetched by the server, not by this client.`
