// ABOUTME: Universal query tool handler
// ABOUTME: Routes query_crm to the lead, deal, task and event finders by entity type
package handlers

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/leadlab/services"
)

type QueryHandlers struct {
	leads  *LeadHandlers
	deals  *DealHandlers
	tasks  *TaskHandlers
	events *EventHandlers
}

func NewQueryHandlers(svc *services.Services) *QueryHandlers {
	return &QueryHandlers{
		leads:  NewLeadHandlers(svc),
		deals:  NewDealHandlers(svc),
		tasks:  NewTaskHandlers(svc),
		events: NewEventHandlers(svc),
	}
}

type QueryCRMInput struct {
	EntityType string         `json:"entity_type" jsonschema:"Type of entity to query (lead, deal, task, event)"`
	Query      string         `json:"query,omitempty" jsonschema:"Search text (leads only)"`
	Filters    map[string]any `json:"filters,omitempty" jsonschema:"Additional filters: stage, status, lead_id, min_amount, max_amount, overdue_only, from, days"`
	Limit      int            `json:"limit,omitempty" jsonschema:"Maximum results to return (default 10)"`
}

type QueryCRMOutput struct {
	EntityType string `json:"entity_type"`
	Results    []any  `json:"results"`
	Count      int    `json:"count"`
}

func (h *QueryHandlers) QueryCRM(ctx context.Context, req *mcp.CallToolRequest, input QueryCRMInput) (*mcp.CallToolResult, QueryCRMOutput, error) {
	if input.Limit <= 0 {
		input.Limit = 10
	}
	f := filters(input.Filters)

	var results []any
	switch input.EntityType {
	case "lead":
		_, out, err := h.leads.FindLeads(ctx, req, FindLeadsInput{Query: input.Query, Stage: f.str("stage"), Limit: input.Limit})
		if err != nil {
			return nil, QueryCRMOutput{}, err
		}
		for _, l := range out.Leads {
			results = append(results, l)
		}
	case "deal":
		_, out, err := h.deals.FindDeals(ctx, req, FindDealsInput{
			Status:    f.str("status"),
			LeadID:    f.str("lead_id"),
			MinAmount: f.num("min_amount"),
			MaxAmount: f.num("max_amount"),
			Limit:     input.Limit,
		})
		if err != nil {
			return nil, QueryCRMOutput{}, err
		}
		for _, d := range out.Deals {
			results = append(results, d)
		}
	case "task":
		_, out, err := h.tasks.FindTasks(ctx, req, FindTasksInput{
			Status:      f.str("status"),
			LeadID:      f.str("lead_id"),
			OverdueOnly: f.boolean("overdue_only"),
		})
		if err != nil {
			return nil, QueryCRMOutput{}, err
		}
		for _, t := range out.Tasks {
			results = append(results, t)
		}
	case "event":
		_, out, err := h.events.ListEvents(ctx, req, ListEventsInput{From: f.str("from"), Days: int(f.num("days"))})
		if err != nil {
			return nil, QueryCRMOutput{}, err
		}
		for _, e := range out.Events {
			results = append(results, e)
		}
	default:
		return nil, QueryCRMOutput{}, fmt.Errorf("invalid entity_type: %s (valid: lead, deal, task, event)", input.EntityType)
	}

	if len(results) > input.Limit {
		results = results[:input.Limit]
	}
	if results == nil {
		results = []any{}
	}
	return nil, QueryCRMOutput{EntityType: input.EntityType, Results: results, Count: len(results)}, nil
}

// filters reads loosely typed JSON filter values.
type filters map[string]any

func (f filters) str(key string) string {
	s, _ := f[key].(string)
	return s
}

func (f filters) num(key string) float64 {
	n, _ := f[key].(float64)
	return n
}

func (f filters) boolean(key string) bool {
	b, _ := f[key].(bool)
	return b
}
