// ABOUTME: Visualization MCP handlers
// ABOUTME: Provides pipeline graph and dashboard summary tools for agents
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-graphviz"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/leadlab/services"
	"github.com/harperreed/leadlab/viz"
)

type VizHandlers struct {
	svc *services.Services
	now func() time.Time
}

func NewVizHandlers(svc *services.Services) *VizHandlers {
	return &VizHandlers{svc: svc, now: time.Now}
}

type GenerateGraphInput struct {
	Format string `json:"format,omitempty" jsonschema:"dot (default) or svg"`
}

type GenerateGraphOutput struct {
	Format    string `json:"format"`
	Source    string `json:"source"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

type DashboardInput struct{}

type PipelineStatus struct {
	Status string  `json:"status"`
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

type StaleDealOutput struct {
	Name      string `json:"name"`
	DaysSince int    `json:"days_since"`
}

type DashboardOutput struct {
	TotalLeads   int               `json:"total_leads"`
	TotalDeals   int               `json:"total_deals"`
	OpenValue    float64           `json:"open_value"`
	WonValue     float64           `json:"won_value"`
	WinRate      float64           `json:"win_rate"`
	OpenTasks    int               `json:"open_tasks"`
	OverdueTasks int               `json:"overdue_tasks"`
	DueToday     int               `json:"due_today"`
	Unread       int               `json:"unread_notifications"`
	Pipeline     []PipelineStatus  `json:"pipeline"`
	StaleDeals   []StaleDealOutput `json:"stale_deals"`
	Rendered     string            `json:"rendered"`
}

func (h *VizHandlers) GenerateGraph(ctx context.Context, _ *mcp.CallToolRequest, input GenerateGraphInput) (*mcp.CallToolResult, GenerateGraphOutput, error) {
	format := graphviz.XDOT
	switch strings.ToLower(input.Format) {
	case "", "dot":
	case "svg":
		format = graphviz.SVG
	default:
		return nil, GenerateGraphOutput{}, fmt.Errorf("unknown format: %s (valid: dot, svg)", input.Format)
	}

	in, err := viz.Load(ctx, h.svc)
	if err != nil {
		return nil, GenerateGraphOutput{}, fmt.Errorf("failed to load pipeline: %w", err)
	}
	src, err := viz.PipelineGraph(ctx, in, format)
	if err != nil {
		return nil, GenerateGraphOutput{}, fmt.Errorf("failed to generate graph: %w", err)
	}

	out := GenerateGraphOutput{Format: string(format), Source: src}
	if format == graphviz.XDOT {
		out.NodeCount = strings.Count(src, "label=")
		out.EdgeCount = strings.Count(src, "->")
	}
	return nil, out, nil
}

func (h *VizHandlers) Dashboard(ctx context.Context, _ *mcp.CallToolRequest, _ DashboardInput) (*mcp.CallToolResult, DashboardOutput, error) {
	in, err := viz.Load(ctx, h.svc)
	if err != nil {
		return nil, DashboardOutput{}, fmt.Errorf("failed to load dashboard: %w", err)
	}
	stats := viz.Compute(in, h.now())
	out := DashboardOutput{
		TotalLeads:   stats.TotalLeads,
		TotalDeals:   stats.TotalDeals,
		OpenValue:    stats.OpenValue,
		WonValue:     stats.WonValue,
		WinRate:      stats.WinRate,
		OpenTasks:    stats.OpenTasks,
		OverdueTasks: stats.OverdueTasks,
		DueToday:     stats.DueToday,
		Unread:       stats.Unread,
		Pipeline:     []PipelineStatus{},
		StaleDeals:   []StaleDealOutput{},
		Rendered:     viz.RenderDashboard(stats),
	}
	for _, p := range stats.Pipeline {
		out.Pipeline = append(out.Pipeline, PipelineStatus{Status: string(p.Status), Count: p.Count, Amount: p.Amount})
	}
	for _, d := range stats.StaleDeals {
		out.StaleDeals = append(out.StaleDeals, StaleDealOutput{Name: d.Name, DaysSince: d.DaysSince})
	}
	return nil, out, nil
}
