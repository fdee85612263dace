// ABOUTME: Notification endpoints
// ABOUTME: Polled list, unread counter and read marking
package services

import (
	"context"
	"net/url"

	"github.com/google/uuid"

	"github.com/harperreed/leadlab/api"
	"github.com/harperreed/leadlab/models"
)

type NotificationService struct {
	c *api.Client
}

func (s *NotificationService) List(ctx context.Context, unreadOnly bool) ([]models.Notification, error) {
	q := url.Values{}
	if unreadOnly {
		q.Set("unread_only", "true")
	}
	page, err := api.GetList[models.Notification](ctx, s.c, "/notifications", q)
	return page.Items, err
}

type unreadCount struct {
	Count  *int `json:"count"`
	Unread *int `json:"unread_count"`
}

func (s *NotificationService) UnreadCount(ctx context.Context) (int, error) {
	var out unreadCount
	if err := s.c.Get(ctx, "/notifications/unread-count", nil, &out); err != nil {
		return 0, err
	}
	switch {
	case out.Count != nil:
		return *out.Count, nil
	case out.Unread != nil:
		return *out.Unread, nil
	}
	return 0, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, id uuid.UUID) error {
	return s.c.Patch(ctx, "/notifications/"+id.String()+"/read", nil, nil)
}

func (s *NotificationService) MarkAllRead(ctx context.Context) error {
	return s.c.Post(ctx, "/notifications/read-all", nil, nil)
}
