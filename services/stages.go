// ABOUTME: Pipeline stage endpoints
// ABOUTME: Admin-configured stages that lead kanban columns are built from
package services

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/harperreed/leadlab/api"
	"github.com/harperreed/leadlab/models"
)

type StageService struct {
	c *api.Client
}

// List returns stages ordered by position.
func (s *StageService) List(ctx context.Context) ([]models.Stage, error) {
	page, err := api.GetList[models.Stage](ctx, s.c, "/stages", nil)
	if err != nil {
		return nil, err
	}
	stages := page.Items
	sort.SliceStable(stages, func(i, j int) bool { return stages[i].Position < stages[j].Position })
	return stages, nil
}

func (s *StageService) Create(ctx context.Context, form models.StageForm) (*models.Stage, error) {
	payload, err := form.Payload()
	if err != nil {
		return nil, err
	}
	var stage models.Stage
	if err := s.c.Post(ctx, "/stages", payload, &stage); err != nil {
		return nil, err
	}
	return &stage, nil
}

func (s *StageService) Update(ctx context.Context, id uuid.UUID, form models.StageForm) (*models.Stage, error) {
	payload, err := form.Payload()
	if err != nil {
		return nil, err
	}
	var stage models.Stage
	if err := s.c.Put(ctx, "/stages/"+id.String(), payload, &stage); err != nil {
		return nil, err
	}
	return &stage, nil
}

func (s *StageService) Remove(ctx context.Context, id uuid.UUID) error {
	return s.c.Delete(ctx, "/stages/"+id.String())
}
