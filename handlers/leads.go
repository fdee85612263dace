// ABOUTME: Lead MCP tool handlers
// ABOUTME: Implements add_lead, find_leads, move_lead and add_lead_note against the backend
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/leadlab/models"
	"github.com/harperreed/leadlab/services"
)

type LeadHandlers struct {
	svc *services.Services
}

func NewLeadHandlers(svc *services.Services) *LeadHandlers {
	return &LeadHandlers{svc: svc}
}

type AddLeadInput struct {
	FirstName string  `json:"first_name" jsonschema:"First name (required)"`
	LastName  string  `json:"last_name,omitempty" jsonschema:"Last name"`
	Email     string  `json:"email,omitempty" jsonschema:"Email address"`
	Phone     string  `json:"phone,omitempty" jsonschema:"Phone number"`
	Company   string  `json:"company,omitempty" jsonschema:"Company name"`
	JobTitle  string  `json:"job_title,omitempty" jsonschema:"Job title"`
	Source    string  `json:"source,omitempty" jsonschema:"Where the lead came from"`
	Value     float64 `json:"value,omitempty" jsonschema:"Estimated value"`
	Stage     string  `json:"stage,omitempty" jsonschema:"Stage name or id"`
}

type LeadOutput struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email,omitempty"`
	Company  string   `json:"company,omitempty"`
	JobTitle string   `json:"job_title,omitempty"`
	Value    float64  `json:"value"`
	StageID  *string  `json:"stage_id,omitempty"`
	Stage    string   `json:"stage,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

type FindLeadsInput struct {
	Query string `json:"query,omitempty" jsonschema:"Search over name, email and company"`
	Stage string `json:"stage,omitempty" jsonschema:"Only leads in this stage (name or id)"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum results (default 10)"`
}

type FindLeadsOutput struct {
	Leads []LeadOutput `json:"leads"`
	Count int          `json:"count"`
	Total int          `json:"total"`
}

type MoveLeadInput struct {
	LeadID string `json:"lead_id" jsonschema:"Lead id (required)"`
	Stage  string `json:"stage" jsonschema:"Target stage name or id (required)"`
}

type AddLeadNoteInput struct {
	LeadID  string `json:"lead_id" jsonschema:"Lead id (required)"`
	Content string `json:"content" jsonschema:"Note text (required)"`
}

type NoteOutput struct {
	ID        string `json:"id"`
	LeadID    string `json:"lead_id"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at,omitempty"`
}

func (h *LeadHandlers) AddLead(ctx context.Context, _ *mcp.CallToolRequest, input AddLeadInput) (*mcp.CallToolResult, LeadOutput, error) {
	if strings.TrimSpace(input.FirstName) == "" {
		return nil, LeadOutput{}, fmt.Errorf("first_name is required")
	}
	form := models.LeadForm{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Phone:     input.Phone,
		Company:   input.Company,
		JobTitle:  input.JobTitle,
		Source:    input.Source,
	}
	if input.Value != 0 {
		form.Value = fmt.Sprint(input.Value)
	}
	stages, err := h.svc.Stages.List(ctx)
	if err != nil {
		return nil, LeadOutput{}, fmt.Errorf("failed to load stages: %w", err)
	}
	if input.Stage != "" {
		st, err := findStage(stages, input.Stage)
		if err != nil {
			return nil, LeadOutput{}, err
		}
		form.StageID = st.ID.String()
	}
	lead, err := h.svc.Leads.Create(ctx, form)
	if err != nil {
		return nil, LeadOutput{}, fmt.Errorf("failed to create lead: %w", err)
	}
	return nil, leadToOutput(lead, stages), nil
}

func (h *LeadHandlers) FindLeads(ctx context.Context, _ *mcp.CallToolRequest, input FindLeadsInput) (*mcp.CallToolResult, FindLeadsOutput, error) {
	if input.Limit <= 0 {
		input.Limit = 10
	}
	stages, err := h.svc.Stages.List(ctx)
	if err != nil {
		return nil, FindLeadsOutput{}, fmt.Errorf("failed to load stages: %w", err)
	}
	filter := services.LeadFilter{Search: input.Query, Paging: services.Paging{Limit: input.Limit}}
	if input.Stage != "" {
		st, err := findStage(stages, input.Stage)
		if err != nil {
			return nil, FindLeadsOutput{}, err
		}
		filter.StageID = &st.ID
	}
	page, err := h.svc.Leads.List(ctx, filter)
	if err != nil {
		return nil, FindLeadsOutput{}, fmt.Errorf("failed to find leads: %w", err)
	}
	out := FindLeadsOutput{Leads: make([]LeadOutput, 0, len(page.Items)), Total: page.Total}
	for i := range page.Items {
		out.Leads = append(out.Leads, leadToOutput(&page.Items[i], stages))
	}
	out.Count = len(out.Leads)
	if out.Total < out.Count {
		out.Total = out.Count
	}
	return nil, out, nil
}

func (h *LeadHandlers) MoveLead(ctx context.Context, _ *mcp.CallToolRequest, input MoveLeadInput) (*mcp.CallToolResult, LeadOutput, error) {
	id, err := parseUUID("lead_id", input.LeadID)
	if err != nil {
		return nil, LeadOutput{}, err
	}
	if input.Stage == "" {
		return nil, LeadOutput{}, fmt.Errorf("stage is required")
	}
	stages, err := h.svc.Stages.List(ctx)
	if err != nil {
		return nil, LeadOutput{}, fmt.Errorf("failed to load stages: %w", err)
	}
	st, err := findStage(stages, input.Stage)
	if err != nil {
		return nil, LeadOutput{}, err
	}
	lead, err := h.svc.Leads.MoveStage(ctx, id, st.ID)
	if err != nil {
		return nil, LeadOutput{}, fmt.Errorf("failed to move lead: %w", err)
	}
	return nil, leadToOutput(lead, stages), nil
}

func (h *LeadHandlers) AddLeadNote(ctx context.Context, _ *mcp.CallToolRequest, input AddLeadNoteInput) (*mcp.CallToolResult, NoteOutput, error) {
	id, err := parseUUID("lead_id", input.LeadID)
	if err != nil {
		return nil, NoteOutput{}, err
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, NoteOutput{}, fmt.Errorf("content is required")
	}
	note, err := h.svc.Leads.AddNote(ctx, id, input.Content)
	if err != nil {
		return nil, NoteOutput{}, fmt.Errorf("failed to add note: %w", err)
	}
	return nil, NoteOutput{
		ID:        note.ID.String(),
		LeadID:    id.String(),
		Content:   note.Content,
		CreatedAt: formatTime(note.CreatedAt),
	}, nil
}

func findStage(stages []models.Stage, nameOrID string) (*models.Stage, error) {
	nameOrID = strings.TrimSpace(nameOrID)
	for i, st := range stages {
		if st.ID.String() == nameOrID || strings.EqualFold(st.Name, nameOrID) {
			return &stages[i], nil
		}
	}
	return nil, fmt.Errorf("unknown stage: %s", nameOrID)
}

func leadToOutput(l *models.Lead, stages []models.Stage) LeadOutput {
	out := LeadOutput{
		ID:       l.ID.String(),
		Name:     l.FullName(),
		Email:    l.Email,
		Company:  l.Company,
		JobTitle: l.JobTitle,
		Value:    l.Value,
	}
	if l.StageID != nil {
		s := l.StageID.String()
		out.StageID = &s
		for _, st := range stages {
			if st.ID == *l.StageID {
				out.Stage = st.Name
			}
		}
	}
	for _, t := range l.Tags {
		out.Tags = append(out.Tags, t.Name)
	}
	return out
}

func parseUUID(field, value string) (uuid.UUID, error) {
	if strings.TrimSpace(value) == "" {
		return uuid.Nil, fmt.Errorf("%s is required", field)
	}
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", field, err)
	}
	return id, nil
}

func formatTime(t models.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05Z07:00")
}
