// ABOUTME: Calendar MCP tool handlers
// ABOUTME: Implements list_events and create_event tools
package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/leadlab/models"
	"github.com/harperreed/leadlab/services"
)

type EventHandlers struct {
	svc *services.Services
	now func() time.Time
}

func NewEventHandlers(svc *services.Services) *EventHandlers {
	return &EventHandlers{svc: svc, now: time.Now}
}

type ListEventsInput struct {
	From string `json:"from,omitempty" jsonschema:"Range start in ISO 8601 (default today)"`
	Days int    `json:"days,omitempty" jsonschema:"Number of days to cover (default 7)"`
}

type EventOutput struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Start     string `json:"start"`
	End       string `json:"end,omitempty"`
	Location  string `json:"location,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Status    string `json:"status,omitempty"`
}

type ListEventsOutput struct {
	From   string        `json:"from"`
	To     string        `json:"to"`
	Events []EventOutput `json:"events"`
	Count  int           `json:"count"`
}

type CreateEventInput struct {
	Title       string `json:"title" jsonschema:"Event title (required)"`
	Start       string `json:"start" jsonschema:"Start time in ISO 8601 (required)"`
	End         string `json:"end,omitempty" jsonschema:"End time in ISO 8601"`
	Location    string `json:"location,omitempty" jsonschema:"Location or meeting link"`
	Description string `json:"description,omitempty" jsonschema:"Agenda or notes"`
	EventType   string `json:"event_type,omitempty" jsonschema:"meeting, call, task, reminder or other"`
}

func (h *EventHandlers) ListEvents(ctx context.Context, _ *mcp.CallToolRequest, input ListEventsInput) (*mcp.CallToolResult, ListEventsOutput, error) {
	now := h.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if input.From != "" {
		t, err := models.ParseTime(input.From)
		if err != nil {
			return nil, ListEventsOutput{}, fmt.Errorf("invalid from: %w", err)
		}
		start = t.Time
	}
	days := input.Days
	if days <= 0 {
		days = 7
	}
	end := start.AddDate(0, 0, days)

	events, err := h.svc.Events.List(ctx, start, end)
	if err != nil {
		return nil, ListEventsOutput{}, fmt.Errorf("failed to list events: %w", err)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].StartDate.Before(events[j].StartDate.Time) })

	out := ListEventsOutput{
		From:   start.Format(time.RFC3339),
		To:     end.Format(time.RFC3339),
		Events: make([]EventOutput, 0, len(events)),
	}
	for i := range events {
		out.Events = append(out.Events, eventToOutput(&events[i]))
	}
	out.Count = len(out.Events)
	return nil, out, nil
}

func (h *EventHandlers) CreateEvent(ctx context.Context, _ *mcp.CallToolRequest, input CreateEventInput) (*mcp.CallToolResult, EventOutput, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, EventOutput{}, fmt.Errorf("title is required")
	}
	if strings.TrimSpace(input.Start) == "" {
		return nil, EventOutput{}, fmt.Errorf("start is required")
	}
	ev, err := h.svc.Events.Create(ctx, models.EventForm{
		Title:       input.Title,
		StartDate:   input.Start,
		EndDate:     input.End,
		Location:    input.Location,
		Description: input.Description,
		EventType:   input.EventType,
	})
	if err != nil {
		return nil, EventOutput{}, fmt.Errorf("failed to create event: %w", err)
	}
	return nil, eventToOutput(ev), nil
}

func eventToOutput(e *models.Event) EventOutput {
	return EventOutput{
		ID:        e.ID.String(),
		Title:     e.Title,
		Start:     formatTime(e.StartDate),
		End:       formatTime(e.EndDate),
		Location:  e.Location,
		EventType: string(e.EventType),
		Status:    string(e.Status),
	}
}
