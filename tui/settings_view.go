// ABOUTME: Settings screen with profile, Calendly connection and email accounts
// ABOUTME: Also hosts the Calendly callback screen that finishes the authorization
package tui

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/leadlab/api"
	"github.com/harperreed/leadlab/calendly"
	"github.com/harperreed/leadlab/models"
	"github.com/harperreed/leadlab/query"
	"github.com/harperreed/leadlab/router"
)

type settingsScreen struct {
	env *Env
	q   *queries
	crud

	cursor  int
	pasting bool

	// listening is set while the local callback listener waits.
	listening  bool
	stopListen context.CancelFunc
	authURL    string
}

func newSettingsScreen(env *Env) *settingsScreen {
	return &settingsScreen{env: env, q: newQueries(env.Cache)}
}

func (s *settingsScreen) Init() tea.Cmd {
	s.q.watch(query.EmailAccounts, s.env.accountsFetcher())
	if s.env.Config.CalendlyEnabled() {
		s.q.watch(query.Calendly, s.env.calendlyFetcher())
	}
	return nil
}

func (s *settingsScreen) Capturing() bool { return s.capturing() }

func (s *settingsScreen) Close() {
	if s.stopListen != nil {
		s.stopListen()
	}
	s.q.release()
}

func (s *settingsScreen) Help() []string {
	help := []string{"a: Add account", "d: Remove account", "y: Sync account"}
	if s.env.Config.CalendlyEnabled() {
		help = append(help, "c: Connect Calendly", "p: Paste callback", "x: Disconnect")
	}
	return append(help, "ctrl+t: Theme")
}

func (s *settingsScreen) accounts() []models.EmailAccount {
	return get[[]models.EmailAccount](s.q, query.EmailAccounts)
}

func (s *settingsScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case cacheEventMsg:
		s.q.apply(msg.event)
		s.cursor = min(s.cursor, max(len(s.accounts())-1, 0))
	case mutationMsg:
		s.done(msg)
	case resultMsg:
		switch msg.tag {
		case "calendly":
			s.listening, s.authURL = false, ""
			s.env.calendly = nil
			if msg.err != nil {
				if errors.Is(msg.err, context.Canceled) {
					return s, nil
				}
				return s, func() tea.Msg { return toastMsg{text: calendlyMessage(msg.err), isErr: true} }
			}
			s.env.Cache.Invalidate(query.OnCalendlyChange...)
			return s, toast("Calendly connected")
		case "sync":
			if msg.err != nil {
				return s, toastErr(msg.err, "sync account")
			}
			s.env.Cache.Invalidate(query.OnMessageChange...)
			if res, ok := msg.val.(*models.SyncResult); ok {
				return s, toast(fmt.Sprintf("Synced %d new messages", res.NewMessages))
			}
		}
	case tea.KeyMsg:
		if cmd, ok := s.key(msg, s.submit); ok {
			return s, cmd
		}
		return s, s.handleKey(msg)
	}
	return s, nil
}

func (s *settingsScreen) handleKey(msg tea.KeyMsg) tea.Cmd {
	accts := s.accounts()
	switch msg.String() {
	case "up", "k":
		s.cursor = max(s.cursor-1, 0)
	case "down", "j":
		s.cursor = min(s.cursor+1, max(len(accts)-1, 0))
	case "r":
		s.env.Cache.Invalidate(query.EmailAccounts, query.Calendly)
	case "a":
		s.pasting = false
		s.form = newForm("Add email account",
			textField("email", "Email", ""),
			textField("display name", "Display name", ""),
			textField("provider", "Provider", "imap"),
			textField("imap host", "IMAP host", ""),
			textField("imap port", "IMAP port", "993"),
			textField("smtp host", "SMTP host", ""),
			textField("smtp port", "SMTP port", "587"),
			textField("username", "Username", ""),
			passwordField("password", "Password"),
		)
	case "d":
		if s.cursor < len(accts) {
			acct := accts[s.cursor]
			s.confirm = newConfirm("email account", acct.Email, s.env.mutate("remove account", "Account removed", func(ctx context.Context) error {
				return s.env.Services.Email.RemoveAccount(ctx, acct.ID)
			}, query.OnEmailAccountChange))
		}
	case "y":
		if s.cursor < len(accts) {
			id := accts[s.cursor].ID
			return s.env.run("sync", func(ctx context.Context) (any, error) {
				return s.env.Services.Email.Sync(ctx, id)
			})
		}
	case "c":
		return s.connect()
	case "p":
		if s.env.Config.CalendlyEnabled() {
			s.form, s.pasting = newForm("Paste Calendly callback", textField("callback", "Callback URL", "")), true
		}
	case "x":
		if st, ok := query.Data[*models.CalendlyStatus](s.q.snap(query.Calendly)); ok && st.Connected {
			s.confirm = newConfirm("Calendly connection", st.Email, s.env.mutate("disconnect Calendly", "Calendly disconnected", s.env.Services.Calendly.Disconnect, query.OnCalendlyChange))
		}
	}
	return nil
}

// connect opens the authorize page and waits for the redirect on the
// configured callback address.
func (s *settingsScreen) connect() tea.Cmd {
	if !s.env.Config.CalendlyEnabled() || s.listening {
		return nil
	}
	flow, err := s.env.calendlyFlow()
	if err != nil {
		return toastErr(err, "connect Calendly")
	}
	s.authURL = flow.AuthURL()
	if err := calendly.OpenBrowser(s.authURL); err != nil {
		s.env.Logger.Debug("could not open browser", "err", err)
	}
	ctx, cancel := context.WithCancel(s.env.Ctx)
	s.listening, s.stopListen = true, cancel
	return func() tea.Msg {
		st, err := flow.Listen(ctx)
		return resultMsg{tag: "calendly", val: st, err: err}
	}
}

func (s *settingsScreen) submit() tea.Cmd {
	if s.pasting {
		cb, err := calendly.ParseCallbackURL(s.form.value("callback"))
		if err != nil {
			s.form.fail(&models.ValidationError{Field: "callback", Message: "is not a callback URL or code"})
			return nil
		}
		s.form = nil
		if s.stopListen != nil {
			s.stopListen()
		}
		return navigate(router.CalendlyCallback + "?" + callbackQuery(cb).Encode())
	}

	f := models.EmailAccountForm{
		Email:       s.form.value("email"),
		DisplayName: s.form.value("display name"),
		Provider:    s.form.value("provider"),
		IMAPHost:    s.form.value("imap host"),
		IMAPPort:    s.form.value("imap port"),
		SMTPHost:    s.form.value("smtp host"),
		SMTPPort:    s.form.value("smtp port"),
		Username:    s.form.value("username"),
		Password:    s.form.value("password"),
	}
	if _, err := f.Payload(); err != nil {
		s.form.fail(err)
		return nil
	}
	return s.env.mutate("add account", "Account added", func(ctx context.Context) error {
		_, err := s.env.Services.Email.AddAccount(ctx, f)
		return err
	}, query.OnEmailAccountChange)
}

func (s *settingsScreen) View(width, height int) string {
	if v, ok := s.crud.view(width, height); ok {
		return v
	}
	var b strings.Builder
	snap := s.env.Auth.Snapshot()
	b.WriteString(titleStyle.Render("PROFILE") + "\n")
	if snap.User != nil {
		role := "Member"
		if snap.User.IsAdmin {
			role = "Admin"
		}
		b.WriteString(fmt.Sprintf("%s  %s  %s\n", snap.User.Name, mutedStyle.Render(snap.User.Email), role))
	}
	b.WriteString(mutedStyle.Render("API  "+s.env.Config.APIURL) + "\n\n")

	b.WriteString(titleStyle.Render("CALENDLY") + "\n")
	b.WriteString(s.calendlyView(width) + "\n\n")

	b.WriteString(titleStyle.Render("EMAIL ACCOUNTS") + "\n")
	if msg, ok := stateView(s.q, "email accounts", query.EmailAccounts); ok {
		b.WriteString(msg)
		return b.String()
	}
	accts := s.accounts()
	if len(accts) == 0 {
		b.WriteString(mutedStyle.Render("No accounts. Press a to add one."))
	}
	for i, a := range accts {
		synced := "never synced"
		if !a.LastSyncedAt.IsZero() {
			synced = "synced " + a.LastSyncedAt.Date()
		}
		line := fmt.Sprintf("%-32s %-10s %s", truncate(a.Email, 32), a.Provider, synced)
		if i == s.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (s *settingsScreen) calendlyView(width int) string {
	if !s.env.Config.CalendlyEnabled() {
		return mutedStyle.Render("Not configured. Set LEADLAB_CALENDLY_CLIENT_ID to enable.")
	}
	if s.listening {
		return warnStyle.Render("Waiting for Calendly on "+s.env.Config.CalendlyRedirectURI) + "\n" +
			mutedStyle.Render("If the browser did not open, visit:") + "\n" + truncate(s.authURL, width)
	}
	snap := s.q.snap(query.Calendly)
	if snap.Err != nil {
		return errorStyle.Render(api.UserMessage(snap.Err, "load Calendly status"))
	}
	st, ok := query.Data[*models.CalendlyStatus](snap)
	switch {
	case !ok:
		return mutedStyle.Render("Checking...")
	case st.Connected:
		return okStyle.Render("Connected") + " " + st.Email + mutedStyle.Render(" since "+st.ConnectedAt.Date())
	}
	return mutedStyle.Render("Not connected. Press c to connect.")
}

type calendlyCallbackScreen struct {
	env      *Env
	callback calendly.Callback
	done     bool
	status   *models.CalendlyStatus
	err      error
}

func newCalendlyCallbackScreen(env *Env, loc router.Location) *calendlyCallbackScreen {
	return &calendlyCallbackScreen{env: env, callback: calendly.ParseCallback(loc.Query)}
}

func (s *calendlyCallbackScreen) Init() tea.Cmd {
	flow, err := s.env.calendlyFlow()
	if err != nil {
		s.done, s.err = true, err
		return nil
	}
	cb := s.callback
	return s.env.run("calendly callback", func(ctx context.Context) (any, error) {
		return flow.Complete(ctx, cb)
	})
}

func (s *calendlyCallbackScreen) Capturing() bool { return false }
func (s *calendlyCallbackScreen) Close()          {}
func (s *calendlyCallbackScreen) Help() []string  { return []string{"Enter: Back to settings"} }

func (s *calendlyCallbackScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case resultMsg:
		if msg.tag != "calendly callback" {
			return s, nil
		}
		s.done, s.err = true, msg.err
		s.status, _ = msg.val.(*models.CalendlyStatus)
		s.env.calendly = nil
		if msg.err == nil {
			s.env.Cache.Invalidate(query.OnCalendlyChange...)
		}
	case tea.KeyMsg:
		if s.done && (msg.String() == "enter" || msg.String() == "esc") {
			return s, func() tea.Msg { return navigateMsg{path: "/settings", replace: true} }
		}
	}
	return s, nil
}

func (s *calendlyCallbackScreen) View(width, height int) string {
	var body string
	switch {
	case !s.done:
		body = "Connecting Calendly..."
	case s.err != nil:
		body = errorStyle.Render("Calendly was not connected") + "\n\n" + calendlyMessage(s.err)
	default:
		body = okStyle.Render("Calendly connected")
		if s.status != nil && s.status.Email != "" {
			body += "\n\n" + s.status.Email
		}
	}
	return cardStyle.Width(min(width, 60)).Render(titleStyle.Render("CALENDLY") + "\n\n" + body)
}

func callbackQuery(cb calendly.Callback) url.Values {
	q := url.Values{}
	for k, v := range map[string]string{"code": cb.Code, "state": cb.State, "error": cb.Error, "error_description": cb.Description} {
		if v != "" {
			q.Set(k, v)
		}
	}
	return q
}

// calendlyMessage keeps the provider's own wording for flow errors.
func calendlyMessage(err error) string {
	var denied *calendly.DeniedError
	switch {
	case errors.As(err, &denied), errors.Is(err, calendly.ErrNoCode), errors.Is(err, calendly.ErrNotConfigured):
		return capitalize(err.Error())
	case errors.Is(err, calendly.ErrStateMismatch):
		return "This authorization link has expired. Start again from Settings."
	}
	return api.UserMessage(err, "connect Calendly")
}
