// ABOUTME: Calendar event endpoints
// ABOUTME: Range queries for the month grid and single-event writes used by ICS import
package services

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/leadlab/api"
	"github.com/harperreed/leadlab/models"
)

type EventService struct {
	c *api.Client
}

// List returns events overlapping [start, end). Zero bounds are omitted.
func (s *EventService) List(ctx context.Context, start, end time.Time) ([]models.Event, error) {
	q := url.Values{}
	if !start.IsZero() {
		q.Set("start", start.UTC().Format(time.RFC3339))
	}
	if !end.IsZero() {
		q.Set("end", end.UTC().Format(time.RFC3339))
	}
	page, err := api.GetList[models.Event](ctx, s.c, "/events", q)
	return page.Items, err
}

func (s *EventService) Create(ctx context.Context, form models.EventForm) (*models.Event, error) {
	payload, err := form.Payload()
	if err != nil {
		return nil, err
	}
	return s.CreatePayload(ctx, payload)
}

// CreatePayload posts an already shaped event.
func (s *EventService) CreatePayload(ctx context.Context, payload models.EventPayload) (*models.Event, error) {
	var ev models.Event
	if err := s.c.Post(ctx, "/events", payload, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (s *EventService) Update(ctx context.Context, id uuid.UUID, form models.EventForm) (*models.Event, error) {
	payload, err := form.Payload()
	if err != nil {
		return nil, err
	}
	var ev models.Event
	if err := s.c.Put(ctx, "/events/"+id.String(), payload, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (s *EventService) Remove(ctx context.Context, id uuid.UUID) error {
	return s.c.Delete(ctx, "/events/"+id.String())
}
