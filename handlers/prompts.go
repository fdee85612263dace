// ABOUTME: MCP prompt handlers for reusable CRM workflow templates
// ABOUTME: Builds lead summary, pipeline analysis and follow-up prompts from live data
package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/leadlab/models"
	"github.com/harperreed/leadlab/services"
	"github.com/harperreed/leadlab/viz"
)

type PromptHandlers struct {
	svc *services.Services
	now func() time.Time
}

func NewPromptHandlers(svc *services.Services) *PromptHandlers {
	return &PromptHandlers{svc: svc, now: time.Now}
}

// Prompts lists the templates the server advertises.
func (h *PromptHandlers) Prompts() []*mcp.Prompt {
	return []*mcp.Prompt{
		{
			Name:        "lead-summary",
			Description: "Summarize a lead with notes, deals and open tasks",
			Arguments:   []*mcp.PromptArgument{{Name: "lead_id", Description: "Lead id", Required: true}},
		},
		{
			Name:        "deal-analysis",
			Description: "Analyze pipeline health across deal statuses",
		},
		{
			Name:        "follow-up-suggestions",
			Description: "Suggest follow-ups from overdue tasks and stale deals",
		},
	}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	switch request.Params.Name {
	case "lead-summary":
		return h.leadSummary(ctx, request.Params.Arguments)
	case "deal-analysis":
		return h.dealAnalysis(ctx)
	case "follow-up-suggestions":
		return h.followUps(ctx)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: text},
			},
		},
	}
}

func (h *PromptHandlers) leadSummary(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	idStr, ok := args["lead_id"]
	if !ok {
		return nil, fmt.Errorf("lead_id is required")
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid lead_id: %w", err)
	}
	lead, err := h.svc.Leads.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lead: %w", err)
	}
	notes, err := h.svc.Leads.Notes(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notes: %w", err)
	}
	deals, err := h.svc.Deals.List(ctx, services.DealFilter{LeadID: &id})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}
	tasks, err := h.svc.Tasks.List(ctx, services.TaskFilter{LeadID: &id})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}

	var b strings.Builder
	b.WriteString("Please provide a comprehensive summary of this lead:\n\n")
	fmt.Fprintf(&b, "Name: %s\n", lead.FullName())
	if lead.Company != "" {
		fmt.Fprintf(&b, "Company: %s\n", lead.Company)
	}
	if lead.JobTitle != "" {
		fmt.Fprintf(&b, "Title: %s\n", lead.JobTitle)
	}
	if lead.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", lead.Email)
	}
	if lead.Source != "" {
		fmt.Fprintf(&b, "Source: %s\n", lead.Source)
	}
	if lead.Value > 0 {
		fmt.Fprintf(&b, "Estimated value: %s\n", viz.Money(lead.Value))
	}

	if len(deals) > 0 {
		fmt.Fprintf(&b, "\nDeals (%d):\n", len(deals))
		for _, d := range deals {
			fmt.Fprintf(&b, "  - %s: %s, %s\n", d.Name, d.Status.Label(), viz.Money(d.Amount))
		}
	}

	now := h.now()
	open := 0
	for _, t := range tasks {
		if t.Status == models.TaskDone {
			continue
		}
		if open == 0 {
			b.WriteString("\nOpen tasks:\n")
		}
		open++
		due := t.DueDate.Date()
		if t.Overdue(now) {
			due += " (overdue)"
		}
		fmt.Fprintf(&b, "  - %s [%s] due %s\n", t.Title, t.Priority, due)
	}

	if len(notes) > 0 {
		sort.Slice(notes, func(i, j int) bool { return notes[i].CreatedAt.After(notes[j].CreatedAt.Time) })
		b.WriteString("\nRecent notes:\n")
		for i, n := range notes {
			if i == 5 {
				break
			}
			fmt.Fprintf(&b, "  - %s: %s\n", n.CreatedAt.Date(), n.Content)
		}
	}

	b.WriteString("\nPlease analyze this lead and provide:")
	b.WriteString("\n1. A brief summary of who they are and where the relationship stands")
	b.WriteString("\n2. Recommendations for next steps")
	b.WriteString("\n3. Risks to any open deals")

	return userPrompt("Summary for lead: "+lead.FullName(), b.String()), nil
}

func (h *PromptHandlers) dealAnalysis(ctx context.Context) (*mcp.GetPromptResult, error) {
	deals, err := h.svc.Deals.List(ctx, services.DealFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}
	stats := viz.Compute(viz.Input{Deals: deals}, h.now())

	var b strings.Builder
	b.WriteString("Please analyze the current deal pipeline:\n\n")
	fmt.Fprintf(&b, "Total Deals: %d\n", stats.TotalDeals)
	fmt.Fprintf(&b, "Open Value: %s\n", viz.Money(stats.OpenValue))
	fmt.Fprintf(&b, "Won Value: %s\n", viz.Money(stats.WonValue))
	fmt.Fprintf(&b, "Win Rate: %.0f%%\n\n", stats.WinRate*100)
	b.WriteString("Pipeline by Status:\n")
	for _, p := range stats.Pipeline {
		fmt.Fprintf(&b, "  - %s: %d deals, %s\n", p.Status.Label(), p.Count, viz.Money(p.Amount))
	}

	b.WriteString("\nPlease provide:")
	b.WriteString("\n1. Analysis of pipeline health and distribution")
	b.WriteString("\n2. Recommendations for deals that may need attention")
	b.WriteString("\n3. Suggestions for improving conversion rates")

	return userPrompt("Deal pipeline analysis", b.String()), nil
}

func (h *PromptHandlers) followUps(ctx context.Context) (*mcp.GetPromptResult, error) {
	in, err := viz.Load(ctx, h.svc)
	if err != nil {
		return nil, fmt.Errorf("failed to load CRM data: %w", err)
	}
	now := h.now()
	stats := viz.Compute(in, now)

	var b strings.Builder
	b.WriteString("Suggest follow-ups for the items below.\n\n")

	overdue := 0
	for _, t := range in.Tasks {
		if !t.Overdue(now) {
			continue
		}
		if overdue == 0 {
			b.WriteString("Overdue tasks:\n")
		}
		overdue++
		days := int(now.Sub(t.DueDate.Time).Hours() / 24)
		fmt.Fprintf(&b, "  - %s (%d days overdue, %s priority)\n", t.Title, days, t.Priority)
	}
	if overdue == 0 {
		b.WriteString("No overdue tasks.\n")
	}

	if len(stats.StaleDeals) > 0 {
		b.WriteString("\nDeals without recent activity:\n")
		for _, d := range stats.StaleDeals {
			fmt.Fprintf(&b, "  - %s (%d days since last update)\n", d.Name, d.DaysSince)
		}
	}

	b.WriteString("\nFor each item, propose a concrete next action and a short message to send.")
	return userPrompt("Follow-up suggestions", b.String()), nil
}
