// ABOUTME: Deal MCP tool handlers
// ABOUTME: Implements create_deal, update_deal_status and find_deals tools
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/leadlab/models"
	"github.com/harperreed/leadlab/services"
)

type DealHandlers struct {
	svc *services.Services
}

func NewDealHandlers(svc *services.Services) *DealHandlers {
	return &DealHandlers{svc: svc}
}

type CreateDealInput struct {
	Name       string  `json:"name" jsonschema:"Deal name (required)"`
	Amount     float64 `json:"amount,omitempty" jsonschema:"Deal amount in currency units"`
	Currency   string  `json:"currency,omitempty" jsonschema:"Currency code (default USD)"`
	Status     string  `json:"status,omitempty" jsonschema:"Deal status: lead, qualified, proposal, negotiation, won, lost"`
	LeadID     string  `json:"lead_id,omitempty" jsonschema:"Lead the deal belongs to"`
	ValidUntil string  `json:"valid_until,omitempty" jsonschema:"Expiry date in ISO 8601 format"`
}

type DealOutput struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	Status     string  `json:"status"`
	LeadID     *string `json:"lead_id,omitempty"`
	ValidUntil string  `json:"valid_until,omitempty"`
	CreatedAt  string  `json:"created_at,omitempty"`
	UpdatedAt  string  `json:"updated_at,omitempty"`
}

type UpdateDealStatusInput struct {
	ID     string `json:"id" jsonschema:"Deal id (required)"`
	Status string `json:"status" jsonschema:"New status: lead, qualified, proposal, negotiation, won, lost"`
}

type FindDealsInput struct {
	Status    string  `json:"status,omitempty" jsonschema:"Only deals with this status"`
	LeadID    string  `json:"lead_id,omitempty" jsonschema:"Only deals for this lead"`
	MinAmount float64 `json:"min_amount,omitempty" jsonschema:"Smallest amount to include"`
	MaxAmount float64 `json:"max_amount,omitempty" jsonschema:"Largest amount to include"`
	Limit     int     `json:"limit,omitempty" jsonschema:"Maximum results (default 50)"`
}

type FindDealsOutput struct {
	Deals []DealOutput `json:"deals"`
	Count int          `json:"count"`
}

func (h *DealHandlers) CreateDeal(ctx context.Context, _ *mcp.CallToolRequest, input CreateDealInput) (*mcp.CallToolResult, DealOutput, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, DealOutput{}, fmt.Errorf("name is required")
	}
	if input.Status != "" {
		if _, ok := models.ParseDealStatus(input.Status); !ok {
			return nil, DealOutput{}, fmt.Errorf("invalid status: %s (valid: %s)", input.Status, dealStatuses())
		}
	}
	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}
	form := models.DealForm{
		Name:       input.Name,
		Amount:     fmt.Sprint(input.Amount),
		Currency:   currency,
		Status:     input.Status,
		LeadID:     input.LeadID,
		ValidUntil: input.ValidUntil,
	}
	deal, err := h.svc.Deals.Create(ctx, form)
	if err != nil {
		return nil, DealOutput{}, fmt.Errorf("failed to create deal: %w", err)
	}
	return nil, dealToOutput(deal), nil
}

// UpdateDealStatus sends the single status write a board drop would.
func (h *DealHandlers) UpdateDealStatus(ctx context.Context, _ *mcp.CallToolRequest, input UpdateDealStatusInput) (*mcp.CallToolResult, DealOutput, error) {
	id, err := parseUUID("id", input.ID)
	if err != nil {
		return nil, DealOutput{}, err
	}
	status, ok := models.ParseDealStatus(input.Status)
	if !ok {
		return nil, DealOutput{}, fmt.Errorf("invalid status: %s (valid: %s)", input.Status, dealStatuses())
	}
	deal, err := h.svc.Deals.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, DealOutput{}, fmt.Errorf("failed to update deal: %w", err)
	}
	return nil, dealToOutput(deal), nil
}

func (h *DealHandlers) FindDeals(ctx context.Context, _ *mcp.CallToolRequest, input FindDealsInput) (*mcp.CallToolResult, FindDealsOutput, error) {
	if input.Limit <= 0 {
		input.Limit = 50
	}
	filter := services.DealFilter{Paging: services.Paging{Limit: input.Limit}}
	if input.Status != "" {
		status, ok := models.ParseDealStatus(input.Status)
		if !ok {
			return nil, FindDealsOutput{}, fmt.Errorf("invalid status: %s (valid: %s)", input.Status, dealStatuses())
		}
		filter.Status = status
	}
	if input.LeadID != "" {
		id, err := parseUUID("lead_id", input.LeadID)
		if err != nil {
			return nil, FindDealsOutput{}, err
		}
		filter.LeadID = &id
	}
	deals, err := h.svc.Deals.List(ctx, filter)
	if err != nil {
		return nil, FindDealsOutput{}, fmt.Errorf("failed to find deals: %w", err)
	}

	// Amount bounds are applied client-side over the fetched page.
	out := FindDealsOutput{Deals: []DealOutput{}}
	for i := range deals {
		d := &deals[i]
		if input.MinAmount > 0 && d.Amount < input.MinAmount {
			continue
		}
		if input.MaxAmount > 0 && d.Amount > input.MaxAmount {
			continue
		}
		out.Deals = append(out.Deals, dealToOutput(d))
	}
	out.Count = len(out.Deals)
	return nil, out, nil
}

func dealStatuses() string {
	names := make([]string, len(models.DealStatuses))
	for i, s := range models.DealStatuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func dealToOutput(d *models.Deal) DealOutput {
	out := DealOutput{
		ID:         d.ID.String(),
		Name:       d.Name,
		Amount:     d.Amount,
		Currency:   d.Currency,
		Status:     string(d.Status),
		ValidUntil: d.ValidUntil.Date(),
		CreatedAt:  formatTime(d.CreatedAt),
		UpdatedAt:  formatTime(d.UpdatedAt),
	}
	if d.LeadID != nil {
		s := d.LeadID.String()
		out.LeadID = &s
	}
	return out
}
