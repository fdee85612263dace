// ABOUTME: Deal endpoints
// ABOUTME: CRUD plus the single-field status update used by kanban moves
package services

import (
	"context"
	"net/url"

	"github.com/google/uuid"

	"github.com/harperreed/leadlab/api"
	"github.com/harperreed/leadlab/models"
)

type DealService struct {
	c *api.Client
}

type DealFilter struct {
	Status models.DealStatus
	LeadID *uuid.UUID
	Paging
}

func (s *DealService) List(ctx context.Context, f DealFilter) ([]models.Deal, error) {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.LeadID != nil {
		q.Set("lead_id", f.LeadID.String())
	}
	f.Paging.apply(q)
	page, err := api.GetList[models.Deal](ctx, s.c, "/deals", q)
	return page.Items, err
}

func (s *DealService) Get(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	var deal models.Deal
	if err := s.c.Get(ctx, "/deals/"+id.String(), nil, &deal); err != nil {
		return nil, err
	}
	return &deal, nil
}

func (s *DealService) Create(ctx context.Context, form models.DealForm) (*models.Deal, error) {
	payload, err := form.Payload()
	if err != nil {
		return nil, err
	}
	var deal models.Deal
	if err := s.c.Post(ctx, "/deals", payload, &deal); err != nil {
		return nil, err
	}
	return &deal, nil
}

func (s *DealService) Update(ctx context.Context, id uuid.UUID, form models.DealForm) (*models.Deal, error) {
	payload, err := form.Payload()
	if err != nil {
		return nil, err
	}
	var deal models.Deal
	if err := s.c.Put(ctx, "/deals/"+id.String(), payload, &deal); err != nil {
		return nil, err
	}
	return &deal, nil
}

// UpdateStatus changes the status and nothing else.
func (s *DealService) UpdateStatus(ctx context.Context, id uuid.UUID, status models.DealStatus) (*models.Deal, error) {
	var deal models.Deal
	body := map[string]models.DealStatus{"status": status}
	if err := s.c.Patch(ctx, "/deals/"+id.String()+"/status", body, &deal); err != nil {
		return nil, err
	}
	return &deal, nil
}

func (s *DealService) Remove(ctx context.Context, id uuid.UUID) error {
	return s.c.Delete(ctx, "/deals/"+id.String())
}
