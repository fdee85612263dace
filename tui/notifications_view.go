// ABOUTME: Notifications screen listing alerts newest first
// ABOUTME: Opening one marks it read and follows its in-app link
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/leadlab/models"
	"github.com/harperreed/leadlab/query"
)

type notificationsScreen struct {
	env    *Env
	q      *queries
	cursor int
	unread bool
}

func newNotificationsScreen(env *Env) *notificationsScreen {
	return &notificationsScreen{env: env, q: newQueries(env.Cache)}
}

func (s *notificationsScreen) Init() tea.Cmd {
	s.q.watch(query.Notifications, s.env.notificationsFetcher())
	return nil
}

func (s *notificationsScreen) Capturing() bool { return false }
func (s *notificationsScreen) Close()          { s.q.release() }
func (s *notificationsScreen) Help() []string {
	return []string{"Enter: Open", "m: Mark read", "M: Mark all read", "u: Unread only"}
}

func (s *notificationsScreen) items() []models.Notification {
	all := get[[]models.Notification](s.q, query.Notifications)
	if !s.unread {
		return all
	}
	var out []models.Notification
	for _, n := range all {
		if !n.IsRead {
			out = append(out, n)
		}
	}
	return out
}

func (s *notificationsScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case cacheEventMsg:
		s.q.apply(msg.event)
		s.cursor = min(s.cursor, max(len(s.items())-1, 0))
	case tea.KeyMsg:
		items := s.items()
		switch msg.String() {
		case "up", "k":
			s.cursor = max(s.cursor-1, 0)
		case "down", "j":
			s.cursor = min(s.cursor+1, max(len(items)-1, 0))
		case "u":
			s.unread = !s.unread
			s.cursor = 0
		case "r":
			s.env.Cache.Invalidate(query.Notifications)
		case "M":
			return s, s.env.mutate("mark all read", "All caught up", s.env.Services.Notifications.MarkAllRead, query.OnNotificationChange)
		case "m", "enter":
			if s.cursor >= len(items) {
				return s, nil
			}
			n := items[s.cursor]
			var cmds []tea.Cmd
			if !n.IsRead {
				cmds = append(cmds, s.env.mutate("mark read", "", func(ctx context.Context) error {
					return s.env.Services.Notifications.MarkRead(ctx, n.ID)
				}, query.OnNotificationChange))
			}
			if msg.String() == "enter" && strings.HasPrefix(n.ActionURL, "/") {
				cmds = append(cmds, navigate(n.ActionURL))
			}
			return s, tea.Batch(cmds...)
		}
	}
	return s, nil
}

func typeStyle(t models.NotificationType) func(...string) string {
	switch t {
	case models.NotificationError:
		return errorStyle.Render
	case models.NotificationWarning:
		return warnStyle.Render
	case models.NotificationSuccess:
		return okStyle.Render
	}
	return mutedStyle.Render
}

func (s *notificationsScreen) View(width, height int) string {
	if msg, ok := stateView(s.q, "notifications", query.Notifications); ok {
		return msg
	}
	items := s.items()
	var b strings.Builder
	title := "NOTIFICATIONS"
	if s.unread {
		title += " (UNREAD)"
	}
	b.WriteString(titleStyle.Render(title) + "\n")
	if len(items) == 0 {
		b.WriteString(mutedStyle.Render("Nothing here."))
		return b.String()
	}
	for i, n := range items {
		if i >= (height-2)/2 {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("+%d more", len(items)-i)))
			break
		}
		dot := "  "
		if !n.IsRead {
			dot = "● "
		}
		head := dot + typeStyle(n.Type)(truncate(n.Title, width-16)) + "  " + mutedStyle.Render(n.CreatedAt.Date())
		if i == s.cursor {
			head = selectedStyle.Render(dot+truncate(n.Title, width-16)) + "  " + mutedStyle.Render(n.CreatedAt.Date())
		}
		b.WriteString(head + "\n  " + mutedStyle.Render(truncate(n.Message, width-4)) + "\n")
	}
	return b.String()
}
