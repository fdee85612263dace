// ABOUTME: Email screen with accounts, folders, a message list and a reader
// ABOUTME: Sync all fans out per account and reports each account on its own
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/leadlab/models"
	"github.com/harperreed/leadlab/query"
	"github.com/harperreed/leadlab/services"
)

type emailScreen struct {
	env *Env
	q   *queries

	account int
	folder  int
	cursor  int

	reading bool
	reader  viewport.Model

	form     *form
	formKind string
	confirm  *confirm
	syncing  bool
}

func newEmailScreen(env *Env) *emailScreen {
	return &emailScreen{env: env, q: newQueries(env.Cache), reader: viewport.New(80, 20)}
}

func (s *emailScreen) Init() tea.Cmd {
	s.q.watch(query.EmailAccounts, s.env.accountsFetcher())
	s.watchMessages()
	return nil
}

func (s *emailScreen) Capturing() bool { return s.form != nil || s.confirm != nil }
func (s *emailScreen) Close()          { s.q.release() }

func (s *emailScreen) Help() []string {
	if s.reading {
		return []string{"↑/↓: Scroll", "s: Star", "u: Unread", "m: Move", "d: Delete", "Esc: Close"}
	}
	return []string{"Tab: Account", "f: Folder", "Enter: Read", "c: Compose", "y: Sync", "Y: Sync all"}
}

func (s *emailScreen) accounts() []models.EmailAccount {
	return get[[]models.EmailAccount](s.q, query.EmailAccounts)
}

func (s *emailScreen) currentAccount() (models.EmailAccount, bool) {
	accts := s.accounts()
	if s.account < len(accts) {
		return accts[s.account], true
	}
	return models.EmailAccount{}, false
}

func (s *emailScreen) currentFolder() models.EmailFolder { return models.EmailFolders[s.folder] }

func (s *emailScreen) messagesKey() (query.Key, bool) {
	acct, ok := s.currentAccount()
	if !ok {
		return "", false
	}
	return query.Messages(acct.ID, string(s.currentFolder())), true
}

func (s *emailScreen) watchMessages() {
	acct, ok := s.currentAccount()
	if !ok {
		return
	}
	key, _ := s.messagesKey()
	s.q.watch(key, s.env.messagesFetcher(acct.ID, s.currentFolder()))
}

func (s *emailScreen) messages() []models.EmailMessage {
	key, ok := s.messagesKey()
	if !ok {
		return nil
	}
	return get[[]models.EmailMessage](s.q, key)
}

func (s *emailScreen) selected() (models.EmailMessage, bool) {
	msgs := s.messages()
	if s.cursor < len(msgs) {
		return msgs[s.cursor], true
	}
	return models.EmailMessage{}, false
}

func (s *emailScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case cacheEventMsg:
		if s.q.apply(msg.event) && msg.event.Key == query.EmailAccounts {
			s.watchMessages()
		}
		if s.cursor >= len(s.messages()) {
			s.cursor = max(len(s.messages())-1, 0)
		}
	case mutationMsg:
		if s.form != nil {
			if msg.err != nil {
				s.form.fail(msg.err)
			} else {
				s.form = nil
			}
		}
		if msg.err == nil && (msg.action == "delete message" || msg.action == "move message") {
			s.reading = false
		}
	case resultMsg:
		if msg.tag == "sync" {
			return s, s.syncDone(msg)
		}
	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

// syncDone reports every account separately; one failure does not hide
// the others.
func (s *emailScreen) syncDone(msg resultMsg) tea.Cmd {
	s.syncing = false
	s.env.Cache.Invalidate(query.OnMessageChange...)
	outcomes, _ := msg.val.([]services.SyncOutcome)
	cmds := make([]tea.Cmd, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Err != nil {
			cmds = append(cmds, toastErr(o.Err, "sync "+o.Account.Email))
			continue
		}
		text := fmt.Sprintf("%s: %d new", o.Account.Email, o.Result.NewMessages)
		cmds = append(cmds, toast(text))
	}
	return tea.Batch(cmds...)
}

func (s *emailScreen) handleKey(msg tea.KeyMsg) (Screen, tea.Cmd) {
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

	if s.reading {
		switch msg.String() {
		case "esc":
			s.reading = false
			return s, nil
		case "s", "u", "m", "d", "r":
			return s.messageKey(msg.String())
		}
		var cmd tea.Cmd
		s.reader, cmd = s.reader.Update(msg)
		return s, cmd
	}

	switch msg.String() {
	case "tab":
		if n := len(s.accounts()); n > 0 {
			s.account = (s.account + 1) % n
			s.cursor = 0
			s.watchMessages()
		}
	case "f":
		s.folder = (s.folder + 1) % len(models.EmailFolders)
		s.cursor = 0
		s.watchMessages()
	case "up", "k":
		s.cursor = max(s.cursor-1, 0)
	case "down", "j":
		s.cursor = min(s.cursor+1, max(len(s.messages())-1, 0))
	case "enter":
		m, ok := s.selected()
		if !ok {
			return s, nil
		}
		s.reading = true
		s.reader.SetContent(m.Body)
		s.reader.GotoTop()
		if !m.IsRead {
			id := m.ID
			return s, s.env.mutate("mark read", "", func(ctx context.Context) error {
				_, err := s.env.Services.Email.MarkRead(ctx, id, true)
				return err
			}, query.OnMessageChange)
		}
	case "c":
		if _, ok := s.currentAccount(); ok {
			s.form, s.formKind = newForm("Compose", textField("to", "To", ""), textField("subject", "Subject", ""), textField("body", "Body", "")), "compose"
		}
	case "y":
		if acct, ok := s.currentAccount(); ok && !s.syncing {
			s.syncing = true
			return s, s.sync([]models.EmailAccount{acct})
		}
	case "Y":
		if accts := s.accounts(); len(accts) > 0 && !s.syncing {
			s.syncing = true
			return s, s.sync(accts)
		}
	case "s", "u", "m", "d", "r":
		return s.messageKey(msg.String())
	}
	return s, nil
}

func (s *emailScreen) sync(accts []models.EmailAccount) tea.Cmd {
	email := s.env.Services.Email
	return s.env.run("sync", func(ctx context.Context) (any, error) {
		return email.SyncAll(ctx, accts), nil
	})
}

func (s *emailScreen) messageKey(key string) (Screen, tea.Cmd) {
	if key == "r" {
		s.env.Cache.Invalidate(query.EmailAccounts, query.EmailMessages)
		return s, nil
	}
	m, ok := s.selected()
	if !ok {
		return s, nil
	}
	email := s.env.Services.Email
	id := m.ID
	switch key {
	case "s":
		return s, s.env.mutate("star message", "", func(ctx context.Context) error {
			_, err := email.Star(ctx, id, !m.IsStarred)
			return err
		}, query.OnMessageChange)
	case "u":
		return s, s.env.mutate("mark unread", "", func(ctx context.Context) error {
			_, err := email.MarkRead(ctx, id, !m.IsRead)
			return err
		}, query.OnMessageChange)
	case "m":
		opts := make([]option, 0, len(models.EmailFolders))
		for _, f := range models.EmailFolders {
			opts = append(opts, option{label: f.Label(), value: string(f)})
		}
		s.form, s.formKind = newForm("Move message", selectField("folder", "Folder", opts, string(m.Folder))), "move"
		s.form.target = id.String()
	case "d":
		s.confirm = newConfirm("message", m.Subject, s.env.mutate("delete message", "Message deleted", func(ctx context.Context) error {
			return email.RemoveMessage(ctx, id)
		}, query.OnMessageChange))
	}
	return s, nil
}

func (s *emailScreen) submit() tea.Cmd {
	email := s.env.Services.Email
	switch s.formKind {
	case "compose":
		acct, ok := s.currentAccount()
		if !ok {
			s.form = nil
			return nil
		}
		f := models.ComposeForm{To: s.form.value("to"), Subject: s.form.value("subject"), Body: s.form.value("body")}
		if _, err := f.Payload(); err != nil {
			s.form.fail(err)
			return nil
		}
		return s.env.mutate("send message", "Message sent", func(ctx context.Context) error {
			_, err := email.Send(ctx, acct.ID, f)
			return err
		}, query.OnMessageChange)
	case "move":
		m, ok := s.selected()
		if !ok {
			s.form = nil
			return nil
		}
		folder := models.EmailFolder(s.form.value("folder"))
		return s.env.mutate("move message", "Moved to "+folder.Label(), func(ctx context.Context) error {
			_, err := email.Move(ctx, m.ID, folder)
			return err
		}, query.OnMessageChange)
	}
	return nil
}

func (s *emailScreen) View(width, height int) string {
	if s.form != nil {
		return s.form.view()
	}
	if s.confirm != nil {
		return s.confirm.view(width, height)
	}
	if msg, ok := stateView(s.q, "email accounts", query.EmailAccounts); ok {
		return msg
	}
	accts := s.accounts()
	if len(accts) == 0 {
		return titleStyle.Render("EMAIL") + "\n" + mutedStyle.Render("No email accounts yet. Add one under Settings.")
	}

	var b strings.Builder
	tabs := make([]string, 0, len(accts))
	for i, a := range accts {
		style := tabInactiveStyle
		if i == s.account {
			style = tabActiveStyle
		}
		tabs = append(tabs, style.Render(a.Email))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n")

	folders := make([]string, 0, len(models.EmailFolders))
	for i, f := range models.EmailFolders {
		label := f.Label()
		if i == s.folder {
			label = selectedStyle.Render(label)
		} else {
			label = mutedStyle.Render(label)
		}
		folders = append(folders, label)
	}
	b.WriteString(strings.Join(folders, "  "))
	if s.syncing {
		b.WriteString("  " + warnStyle.Render("Syncing..."))
	}
	b.WriteString("\n\n")

	if s.reading {
		if m, ok := s.selected(); ok {
			b.WriteString(titleStyle.Render(m.Subject) + "\n")
			b.WriteString(mutedStyle.Render("From: "+m.From+"  "+m.ReceivedAt.Date()) + "\n\n")
		}
		s.reader.Width = width
		s.reader.Height = max(height-7, 3)
		b.WriteString(s.reader.View())
		return b.String()
	}

	key, _ := s.messagesKey()
	if msg, ok := stateView(s.q, "messages", key); ok {
		return b.String() + msg
	}
	msgs := s.messages()
	if len(msgs) == 0 {
		b.WriteString(mutedStyle.Render("No messages in " + s.currentFolder().Label() + "."))
		return b.String()
	}
	for i, m := range msgs {
		if i >= height-5 {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("+%d more", len(msgs)-i)))
			break
		}
		flags := "  "
		if !m.IsRead {
			flags = "● "
		}
		if m.IsStarred {
			flags = "★ "
		}
		line := fmt.Sprintf("%s%-24s %s", flags, truncate(m.From, 24), truncate(m.Subject, max(width-40, 10)))
		if i == s.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}
