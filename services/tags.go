// ABOUTME: Tag endpoints
// ABOUTME: Tags are created ad hoc from the lead tag selector
package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/harperreed/leadlab/api"
	"github.com/harperreed/leadlab/models"
)

type TagService struct {
	c *api.Client
}

func (s *TagService) List(ctx context.Context) ([]models.Tag, error) {
	page, err := api.GetList[models.Tag](ctx, s.c, "/tags", nil)
	return page.Items, err
}

func (s *TagService) Create(ctx context.Context, name, color string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &models.ValidationError{Field: "tag", Message: "is required"}
	}
	var tag models.Tag
	body := map[string]string{"name": name}
	if color != "" {
		body["color"] = color
	}
	if err := s.c.Post(ctx, "/tags", body, &tag); err != nil {
		return nil, err
	}
	return &tag, nil
}

// Ensure returns the existing tag named name (case-insensitive) or creates it.
func (s *TagService) Ensure(ctx context.Context, existing []models.Tag, name string) (*models.Tag, error) {
	for _, t := range existing {
		if strings.EqualFold(t.Name, strings.TrimSpace(name)) {
			tag := t
			return &tag, nil
		}
	}
	return s.Create(ctx, name, "")
}

func (s *TagService) Remove(ctx context.Context, id uuid.UUID) error {
	return s.c.Delete(ctx, "/tags/"+id.String())
}
