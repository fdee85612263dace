// ABOUTME: Dashboard screen with pipeline totals, attention items and a graph view
// ABOUTME: Stats come from viz.Compute over one cached fetch of the workspace
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-graphviz"

	"github.com/harperreed/leadlab/query"
	"github.com/harperreed/leadlab/viz"
)

type dashboardScreen struct {
	env *Env
	q   *queries

	showGraph bool
	graphDOT  string
	graphErr  error
	viewport  viewport.Model
}

func newDashboardScreen(env *Env) *dashboardScreen {
	return &dashboardScreen{env: env, q: newQueries(env.Cache), viewport: viewport.New(80, 20)}
}

func (s *dashboardScreen) Init() tea.Cmd {
	s.q.watch(query.Dashboard, s.env.dashboardFetcher())
	return nil
}

func (s *dashboardScreen) Capturing() bool { return false }
func (s *dashboardScreen) Close()          { s.q.release() }

func (s *dashboardScreen) Help() []string {
	if s.showGraph {
		return []string{"↑/↓: Scroll", "Esc: Back"}
	}
	return []string{"g: Pipeline graph", "r: Refresh"}
}

func (s *dashboardScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case cacheEventMsg:
		if s.q.apply(msg.event) && s.showGraph {
			return s, s.renderGraph()
		}
	case resultMsg:
		if msg.tag == "graph" {
			s.graphErr = msg.err
			if dot, ok := msg.val.(string); ok {
				s.graphDOT = dot
				s.viewport.SetContent(dot)
			}
		}
	case tea.KeyMsg:
		if s.showGraph {
			if msg.String() == "esc" {
				s.showGraph = false
				return s, nil
			}
			var cmd tea.Cmd
			s.viewport, cmd = s.viewport.Update(msg)
			return s, cmd
		}
		switch msg.String() {
		case "r":
			s.env.Cache.Invalidate(query.Dashboard)
		case "g":
			s.showGraph = true
			s.graphDOT, s.graphErr = "", nil
			return s, s.renderGraph()
		}
	}
	return s, nil
}

func (s *dashboardScreen) renderGraph() tea.Cmd {
	in, ok := query.Data[viz.Input](s.q.snap(query.Dashboard))
	if !ok {
		return nil
	}
	return s.env.run("graph", func(ctx context.Context) (any, error) {
		return viz.PipelineGraph(ctx, in, graphviz.XDOT)
	})
}

func (s *dashboardScreen) View(width, height int) string {
	if msg, ok := stateView(s.q, "dashboard", query.Dashboard); ok {
		return msg
	}
	if s.showGraph {
		return s.graphView(width, height)
	}
	in := get[viz.Input](s.q, query.Dashboard)
	stats := viz.Compute(in, s.env.Now())
	return lipgloss.NewStyle().Width(width).Render(strings.TrimRight(viz.RenderDashboard(stats), "\n"))
}

func (s *dashboardScreen) graphView(width, height int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("PIPELINE GRAPH"))
	b.WriteString("\n")
	switch {
	case s.graphErr != nil:
		b.WriteString(errorStyle.Render("Could not render graph: " + s.graphErr.Error()))
	case s.graphDOT == "":
		b.WriteString("Generating graph...")
	default:
		s.viewport.Width = width
		s.viewport.Height = max(height-2, 3)
		b.WriteString(s.viewport.View())
	}
	return b.String()
}
