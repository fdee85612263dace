// ABOUTME: Task endpoints
// ABOUTME: CRUD plus the status-only update used by the task board
package services

import (
	"context"
	"net/url"

	"github.com/google/uuid"

	"github.com/harperreed/leadlab/api"
	"github.com/harperreed/leadlab/models"
)

type TaskService struct {
	c *api.Client
}

type TaskFilter struct {
	Status     models.TaskStatus
	AssignedTo *uuid.UUID
	LeadID     *uuid.UUID
	Paging
}

func (s *TaskService) List(ctx context.Context, f TaskFilter) ([]models.Task, error) {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.AssignedTo != nil {
		q.Set("assigned_to", f.AssignedTo.String())
	}
	if f.LeadID != nil {
		q.Set("lead_id", f.LeadID.String())
	}
	f.Paging.apply(q)
	page, err := api.GetList[models.Task](ctx, s.c, "/tasks", q)
	return page.Items, err
}

func (s *TaskService) Create(ctx context.Context, form models.TaskForm) (*models.Task, error) {
	payload, err := form.Payload()
	if err != nil {
		return nil, err
	}
	var task models.Task
	if err := s.c.Post(ctx, "/tasks", payload, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) Update(ctx context.Context, id uuid.UUID, form models.TaskForm) (*models.Task, error) {
	payload, err := form.Payload()
	if err != nil {
		return nil, err
	}
	var task models.Task
	if err := s.c.Put(ctx, "/tasks/"+id.String(), payload, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) UpdateStatus(ctx context.Context, id uuid.UUID, status models.TaskStatus) (*models.Task, error) {
	var task models.Task
	body := map[string]models.TaskStatus{"status": status}
	if err := s.c.Patch(ctx, "/tasks/"+id.String()+"/status", body, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) Remove(ctx context.Context, id uuid.UUID) error {
	return s.c.Delete(ctx, "/tasks/"+id.String())
}
