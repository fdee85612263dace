// ABOUTME: Lead endpoints including stage moves, notes, info requests and tags
// ABOUTME: Shapes lead forms into backend payloads
package services

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/harperreed/leadlab/api"
	"github.com/harperreed/leadlab/models"
)

type LeadService struct {
	c *api.Client
}

type LeadFilter struct {
	Search  string
	StageID *uuid.UUID
	Paging
}

func (s *LeadService) List(ctx context.Context, f LeadFilter) (api.Page[models.Lead], error) {
	q := url.Values{}
	if search := strings.TrimSpace(f.Search); search != "" {
		q.Set("search", search)
	}
	if f.StageID != nil {
		q.Set("stage_id", f.StageID.String())
	}
	f.Paging.apply(q)
	return api.GetList[models.Lead](ctx, s.c, "/leads", q)
}

// Search backs the lead picker popovers with a server-side query.
func (s *LeadService) Search(ctx context.Context, term string, limit int) ([]models.Lead, error) {
	page, err := s.List(ctx, LeadFilter{Search: term, Paging: Paging{Limit: limit}})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (s *LeadService) Get(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	var lead models.Lead
	if err := s.c.Get(ctx, "/leads/"+id.String(), nil, &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

func (s *LeadService) Create(ctx context.Context, form models.LeadForm) (*models.Lead, error) {
	payload, err := form.Payload()
	if err != nil {
		return nil, err
	}
	var lead models.Lead
	if err := s.c.Post(ctx, "/leads", payload, &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

func (s *LeadService) Update(ctx context.Context, id uuid.UUID, form models.LeadForm) (*models.Lead, error) {
	payload, err := form.Payload()
	if err != nil {
		return nil, err
	}
	var lead models.Lead
	if err := s.c.Put(ctx, "/leads/"+id.String(), payload, &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

// MoveStage sends only the new stage, as a kanban drop does.
func (s *LeadService) MoveStage(ctx context.Context, id, stageID uuid.UUID) (*models.Lead, error) {
	var lead models.Lead
	body := map[string]uuid.UUID{"stage_id": stageID}
	if err := s.c.Patch(ctx, "/leads/"+id.String()+"/stage", body, &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

func (s *LeadService) Remove(ctx context.Context, id uuid.UUID) error {
	return s.c.Delete(ctx, "/leads/"+id.String())
}

func (s *LeadService) Notes(ctx context.Context, id uuid.UUID) ([]models.Note, error) {
	page, err := api.GetList[models.Note](ctx, s.c, "/leads/"+id.String()+"/notes", nil)
	return page.Items, err
}

func (s *LeadService) AddNote(ctx context.Context, id uuid.UUID, content string) (*models.Note, error) {
	if strings.TrimSpace(content) == "" {
		return nil, &models.ValidationError{Field: "note", Message: "is required"}
	}
	var note models.Note
	body := map[string]string{"content": strings.TrimSpace(content)}
	if err := s.c.Post(ctx, "/leads/"+id.String()+"/notes", body, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

func (s *LeadService) InfoRequests(ctx context.Context, id uuid.UUID) ([]models.InfoRequest, error) {
	page, err := api.GetList[models.InfoRequest](ctx, s.c, "/leads/"+id.String()+"/info-requests", nil)
	return page.Items, err
}

func (s *LeadService) RequestInfo(ctx context.Context, id uuid.UUID, subject, message string) (*models.InfoRequest, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, &models.ValidationError{Field: "subject", Message: "is required"}
	}
	var req models.InfoRequest
	body := map[string]string{"subject": strings.TrimSpace(subject), "message": strings.TrimSpace(message)}
	if err := s.c.Post(ctx, "/leads/"+id.String()+"/info-requests", body, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *LeadService) AttachTag(ctx context.Context, id, tagID uuid.UUID) error {
	return s.c.Post(ctx, "/leads/"+id.String()+"/tags/"+tagID.String(), nil, nil)
}

func (s *LeadService) DetachTag(ctx context.Context, id, tagID uuid.UUID) error {
	return s.c.Delete(ctx, "/leads/"+id.String()+"/tags/"+tagID.String())
}
