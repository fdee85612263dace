// ABOUTME: Query keys and fetch functions shared by the screens
// ABOUTME: One fetcher per key so every screen stores the same type under it
package tui

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/leadlab/api"
	"github.com/harperreed/leadlab/models"
	"github.com/harperreed/leadlab/query"
	"github.com/harperreed/leadlab/services"
	"github.com/harperreed/leadlab/viz"
)

const listLimit = 500

var (
	leadListKey = query.LeadList("")
	dealListKey = query.NewKey(string(query.Deals), "list")
	taskListKey = query.NewKey(string(query.Tasks), "list")
	stagesKey   = query.NewKey(string(query.Stages), "list")
	tagsKey     = query.NewKey(string(query.Tags), "list")
)

func (e *Env) leadsFetcher(search string) query.Fetcher {
	return query.Func(func(ctx context.Context) (api.Page[models.Lead], error) {
		return e.Services.Leads.List(ctx, services.LeadFilter{Search: search, Paging: services.Paging{Limit: listLimit}})
	})
}

func (e *Env) leadFetcher(id uuid.UUID) query.Fetcher {
	return query.Func(func(ctx context.Context) (*models.Lead, error) { return e.Services.Leads.Get(ctx, id) })
}

func (e *Env) notesFetcher(id uuid.UUID) query.Fetcher {
	return query.Func(func(ctx context.Context) ([]models.Note, error) { return e.Services.Leads.Notes(ctx, id) })
}

func (e *Env) infoRequestsFetcher(id uuid.UUID) query.Fetcher {
	return query.Func(func(ctx context.Context) ([]models.InfoRequest, error) {
		return e.Services.Leads.InfoRequests(ctx, id)
	})
}

func (e *Env) stagesFetcher() query.Fetcher { return query.Func(e.Services.Stages.List) }

func (e *Env) tagsFetcher() query.Fetcher { return query.Func(e.Services.Tags.List) }

func (e *Env) dealsFetcher() query.Fetcher {
	return query.Func(func(ctx context.Context) ([]models.Deal, error) {
		return e.Services.Deals.List(ctx, services.DealFilter{Paging: services.Paging{Limit: listLimit}})
	})
}

func (e *Env) tasksFetcher() query.Fetcher {
	return query.Func(func(ctx context.Context) ([]models.Task, error) {
		return e.Services.Tasks.List(ctx, services.TaskFilter{Paging: services.Paging{Limit: listLimit}})
	})
}

func (e *Env) eventsFetcher(start, end time.Time) query.Fetcher {
	return query.Func(func(ctx context.Context) ([]models.Event, error) {
		return e.Services.Events.List(ctx, start, end)
	})
}

func (e *Env) accountsFetcher() query.Fetcher { return query.Func(e.Services.Email.Accounts) }

func (e *Env) messagesFetcher(accountID uuid.UUID, folder models.EmailFolder) query.Fetcher {
	return query.Func(func(ctx context.Context) ([]models.EmailMessage, error) {
		return e.Services.Email.Messages(ctx, accountID, folder)
	})
}

func (e *Env) productsFetcher() query.Fetcher { return query.Func(e.Services.CPQ.Products) }

func (e *Env) quotesFetcher() query.Fetcher { return query.Func(e.Services.CPQ.Quotes) }

func (e *Env) notificationsFetcher() query.Fetcher {
	return query.Func(func(ctx context.Context) ([]models.Notification, error) {
		return e.Services.Notifications.List(ctx, false)
	})
}

func (e *Env) unreadFetcher() query.Fetcher { return query.Func(e.Services.Notifications.UnreadCount) }

func (e *Env) healthFetcher() query.Fetcher { return query.Func(e.Services.Health.Check) }

func (e *Env) usersFetcher() query.Fetcher { return query.Func(e.Services.Users.List) }

func (e *Env) organizationFetcher() query.Fetcher { return query.Func(e.Services.Organization.Get) }

func (e *Env) calendlyFetcher() query.Fetcher { return query.Func(e.Services.Calendly.Status) }

func (e *Env) dashboardFetcher() query.Fetcher {
	return query.Func(func(ctx context.Context) (viz.Input, error) { return viz.Load(ctx, e.Services) })
}
