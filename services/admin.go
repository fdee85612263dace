// ABOUTME: Admin endpoints for users and the organization, plus health and Calendly
// ABOUTME: Users and organization writes require an admin session server-side
package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/harperreed/leadlab/api"
	"github.com/harperreed/leadlab/models"
)

type UserService struct {
	c *api.Client
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	page, err := api.GetList[models.User](ctx, s.c, "/users", nil)
	return page.Items, err
}

func (s *UserService) Create(ctx context.Context, form models.UserForm) (*models.User, error) {
	payload, err := form.Payload()
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := s.c.Post(ctx, "/users", payload, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserService) Update(ctx context.Context, id uuid.UUID, form models.UserForm) (*models.User, error) {
	payload, err := form.Payload()
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := s.c.Put(ctx, "/users/"+id.String(), payload, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserService) Remove(ctx context.Context, id uuid.UUID) error {
	return s.c.Delete(ctx, "/users/"+id.String())
}

type OrganizationService struct {
	c *api.Client
}

func (s *OrganizationService) Get(ctx context.Context) (*models.Organization, error) {
	var org models.Organization
	if err := s.c.Get(ctx, "/organization", nil, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

func (s *OrganizationService) Rename(ctx context.Context, name string) (*models.Organization, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &models.ValidationError{Field: "organization name", Message: "is required"}
	}
	var org models.Organization
	if err := s.c.Put(ctx, "/organization", map[string]string{"name": strings.TrimSpace(name)}, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

// CalendlyService talks to the backend side of the Calendly integration.
// The browser-facing half of the OAuth dance lives in package calendly.
type CalendlyService struct {
	c *api.Client
}

func (s *CalendlyService) Status(ctx context.Context) (*models.CalendlyStatus, error) {
	var st models.CalendlyStatus
	if err := s.c.Get(ctx, "/integrations/calendly/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Exchange hands the authorization code to the backend, which trades it
// for an access token and stores it.
func (s *CalendlyService) Exchange(ctx context.Context, code, redirectURI string) (*models.CalendlyStatus, error) {
	var st models.CalendlyStatus
	body := map[string]string{"code": code, "redirect_uri": redirectURI}
	if err := s.c.Post(ctx, "/integrations/calendly/callback", body, &st); err != nil {
		return nil, err
	}
	st.Connected = true
	return &st, nil
}

func (s *CalendlyService) Disconnect(ctx context.Context) error {
	return s.c.Delete(ctx, "/integrations/calendly")
}

type HealthService struct {
	c *api.Client
}

func (s *HealthService) Check(ctx context.Context) (*models.Health, error) {
	var h models.Health
	if err := s.c.Get(ctx, "/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}
