// ABOUTME: Domain services mapping one function to one backend endpoint
// ABOUTME: Bundles every resource service around a shared API client
package services

import (
	"net/url"
	"strconv"

	"github.com/harperreed/leadlab/api"
)

type Services struct {
	Auth          *AuthService
	Leads         *LeadService
	Stages        *StageService
	Deals         *DealService
	Tasks         *TaskService
	Events        *EventService
	Email         *EmailService
	CPQ           *CPQService
	Tags          *TagService
	Notifications *NotificationService
	Users         *UserService
	Organization  *OrganizationService
	Calendly      *CalendlyService
	Health        *HealthService
}

func New(c *api.Client) *Services {
	return &Services{
		Auth:          &AuthService{c: c},
		Leads:         &LeadService{c: c},
		Stages:        &StageService{c: c},
		Deals:         &DealService{c: c},
		Tasks:         &TaskService{c: c},
		Events:        &EventService{c: c},
		Email:         &EmailService{c: c},
		CPQ:           &CPQService{c: c},
		Tags:          &TagService{c: c},
		Notifications: &NotificationService{c: c},
		Users:         &UserService{c: c},
		Organization:  &OrganizationService{c: c},
		Calendly:      &CalendlyService{c: c},
		Health:        &HealthService{c: c},
	}
}

// Paging is the skip/limit pair list endpoints accept.
type Paging struct {
	Skip  int
	Limit int
}

func (p Paging) apply(q url.Values) {
	if p.Skip > 0 {
		q.Set("skip", strconv.Itoa(p.Skip))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
}
