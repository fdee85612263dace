// ABOUTME: MCP resource handlers for exposing CRM data
// ABOUTME: Provides read-only access to leads, deals, tasks and the pipeline via leadlab:// URIs
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/leadlab/services"
	"github.com/harperreed/leadlab/viz"
)

const resourceScheme = "leadlab://"

type ResourceHandlers struct {
	svc *services.Services
}

func NewResourceHandlers(svc *services.Services) *ResourceHandlers {
	return &ResourceHandlers{svc: svc}
}

// Resources lists the fixed URIs the server advertises.
func (h *ResourceHandlers) Resources() []*mcp.Resource {
	return []*mcp.Resource{
		{URI: resourceScheme + "leads", Name: "leads", Description: "All leads", MIMEType: "application/json"},
		{URI: resourceScheme + "deals", Name: "deals", Description: "All deals", MIMEType: "application/json"},
		{URI: resourceScheme + "tasks", Name: "tasks", Description: "All tasks", MIMEType: "application/json"},
		{URI: resourceScheme + "pipeline", Name: "pipeline", Description: "Deal counts and amounts by status", MIMEType: "application/json"},
	}
}

// Templates lists the parameterized URIs.
func (h *ResourceHandlers) Templates() []*mcp.ResourceTemplate {
	return []*mcp.ResourceTemplate{
		{URITemplate: resourceScheme + "leads/{id}", Name: "lead", Description: "One lead with notes", MIMEType: "application/json"},
		{URITemplate: resourceScheme + "deals/{id}", Name: "deal", Description: "One deal", MIMEType: "application/json"},
	}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, resourceScheme) {
		return nil, fmt.Errorf("invalid URI scheme: expected %s", resourceScheme)
	}
	parts := strings.Split(strings.TrimPrefix(uri, resourceScheme), "/")

	var (
		data any
		err  error
	)
	switch parts[0] {
	case "leads":
		if len(parts) == 1 {
			data, err = h.leads(ctx)
		} else {
			data, err = h.lead(ctx, parts[1])
		}
	case "deals":
		if len(parts) == 1 {
			data, err = h.svc.Deals.List(ctx, services.DealFilter{})
		} else {
			data, err = h.deal(ctx, parts[1])
		}
	case "tasks":
		data, err = h.svc.Tasks.List(ctx, services.TaskFilter{})
	case "pipeline":
		data, err = h.pipeline(ctx)
	default:
		return nil, fmt.Errorf("unknown resource: %s", parts[0])
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", uri, err)
	}
	return jsonResource(uri, data)
}

func (h *ResourceHandlers) leads(ctx context.Context) (any, error) {
	page, err := h.svc.Leads.List(ctx, services.LeadFilter{Paging: services.Paging{Limit: 1000}})
	return page.Items, err
}

func (h *ResourceHandlers) lead(ctx context.Context, idStr string) (any, error) {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid lead ID: %w", err)
	}
	lead, err := h.svc.Leads.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	notes, err := h.svc.Leads.Notes(ctx, id)
	if err != nil {
		return nil, err
	}
	return map[string]any{"lead": lead, "notes": notes}, nil
}

func (h *ResourceHandlers) deal(ctx context.Context, idStr string) (any, error) {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid deal ID: %w", err)
	}
	return h.svc.Deals.Get(ctx, id)
}

func (h *ResourceHandlers) pipeline(ctx context.Context) (any, error) {
	deals, err := h.svc.Deals.List(ctx, services.DealFilter{})
	if err != nil {
		return nil, err
	}
	stats := viz.Compute(viz.Input{Deals: deals}, time.Now())
	return stats.Pipeline, nil
}

func jsonResource(uri string, data any) (*mcp.ReadResourceResult, error) {
	text, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(text),
		},
	}}, nil
}
