// ABOUTME: Screen contract and the route-to-screen table
// ABOUTME: Each routed path mounts one screen that owns its queries until it closes
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/harperreed/leadlab/api"
	"github.com/harperreed/leadlab/query"
	"github.com/harperreed/leadlab/router"
)

// Screen is one routed page inside the shell.
type Screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Screen, tea.Cmd)
	View(width, height int) string
	Help() []string
	// Capturing screens receive every key; the shell's shortcuts stand down.
	Capturing() bool
	// Close releases observed queries.
	Close()
}

// newScreen builds the screen for a resolved route.
func newScreen(env *Env, d router.Decision) Screen {
	loc := d.Location
	switch d.Route.Pattern {
	case router.SignIn:
		return newSignInScreen(env, loc)
	case router.SignUp:
		return newSignUpScreen(env)
	case "/terms", "/privacy":
		return newLegalScreen(d.Route)
	case router.DashboardPath:
		return newDashboardScreen(env)
	case "/leads":
		return newLeadsScreen(env)
	case "/leads/:id":
		id, err := uuid.Parse(loc.Params["id"])
		if err != nil {
			return newMessageScreen("Lead not found", "That lead link is not valid.")
		}
		return newLeadDetailScreen(env, id)
	case "/deals":
		return newDealsScreen(env)
	case "/tasks":
		return newTasksScreen(env)
	case "/calendar":
		return newCalendarScreen(env)
	case "/email":
		return newEmailScreen(env)
	case "/cpq/products":
		return newProductsScreen(env)
	case "/cpq/quotes":
		return newQuotesScreen(env)
	case "/notifications":
		return newNotificationsScreen(env)
	case "/settings":
		return newSettingsScreen(env)
	case router.CalendlyCallback:
		return newCalendlyCallbackScreen(env, loc)
	case "/admin/users":
		return newUsersScreen(env)
	case "/admin/stages":
		return newStagesScreen(env)
	case "/admin/organization":
		return newOrganizationScreen(env)
	}
	return newMessageScreen("Not found", "There is nothing at "+loc.Path+".")
}

// messageScreen is a static card.
type messageScreen struct {
	title, body string
}

func newMessageScreen(title, body string) *messageScreen {
	return &messageScreen{title: title, body: body}
}

func (s *messageScreen) Init() tea.Cmd                    { return nil }
func (s *messageScreen) Update(tea.Msg) (Screen, tea.Cmd) { return s, nil }
func (s *messageScreen) Help() []string                   { return nil }
func (s *messageScreen) Capturing() bool                  { return false }
func (s *messageScreen) Close()                           {}
func (s *messageScreen) View(width, height int) string {
	return titleStyle.Render(s.title) + "\n\n" + s.body
}

// stateView covers the loading and failed states shared by every data
// screen. ok is false once the given keys have data to draw.
func stateView(q *queries, what string, keys ...query.Key) (string, bool) {
	for _, key := range keys {
		snap := q.snap(key)
		if snap.Data != nil {
			continue
		}
		if snap.Err != nil {
			return errorStyle.Render(api.UserMessage(snap.Err, "load "+what)) + "\n" + mutedStyle.Render("Press r to retry."), true
		}
		return mutedStyle.Render("Loading " + what + "..."), true
	}
	return "", false
}
