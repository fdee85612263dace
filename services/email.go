// ABOUTME: Email account and message endpoints
// ABOUTME: Sync-all fans out one request per account and reports each result separately
package services

import (
	"context"
	"net/url"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/harperreed/leadlab/api"
	"github.com/harperreed/leadlab/models"
)

const maxParallelSyncs = 4

type EmailService struct {
	c *api.Client
}

func (s *EmailService) Accounts(ctx context.Context) ([]models.EmailAccount, error) {
	page, err := api.GetList[models.EmailAccount](ctx, s.c, "/email/accounts", nil)
	return page.Items, err
}

func (s *EmailService) AddAccount(ctx context.Context, form models.EmailAccountForm) (*models.EmailAccount, error) {
	payload, err := form.Payload()
	if err != nil {
		return nil, err
	}
	var acct models.EmailAccount
	if err := s.c.Post(ctx, "/email/accounts", payload, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

func (s *EmailService) RemoveAccount(ctx context.Context, id uuid.UUID) error {
	return s.c.Delete(ctx, "/email/accounts/"+id.String())
}

func (s *EmailService) Sync(ctx context.Context, id uuid.UUID) (*models.SyncResult, error) {
	var res models.SyncResult
	if err := s.c.Post(ctx, "/email/accounts/"+id.String()+"/sync", nil, &res); err != nil {
		return nil, err
	}
	if res.AccountID == uuid.Nil {
		res.AccountID = id
	}
	return &res, nil
}

// SyncOutcome is one account's result from SyncAll.
type SyncOutcome struct {
	Account models.EmailAccount
	Result  *models.SyncResult
	Err     error
}

// SyncAll syncs every account concurrently. A failure on one account does
// not stop or undo the others. Outcomes keep the input order.
func (s *EmailService) SyncAll(ctx context.Context, accounts []models.EmailAccount) []SyncOutcome {
	outcomes := make([]SyncOutcome, len(accounts))
	var g errgroup.Group
	g.SetLimit(maxParallelSyncs)
	for i, acct := range accounts {
		g.Go(func() error {
			res, err := s.Sync(ctx, acct.ID)
			outcomes[i] = SyncOutcome{Account: acct, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (s *EmailService) Messages(ctx context.Context, accountID uuid.UUID, folder models.EmailFolder) ([]models.EmailMessage, error) {
	q := url.Values{}
	if folder != "" {
		q.Set("folder", string(folder))
	}
	page, err := api.GetList[models.EmailMessage](ctx, s.c, "/email/accounts/"+accountID.String()+"/messages", q)
	return page.Items, err
}

func (s *EmailService) UpdateMessage(ctx context.Context, id uuid.UUID, patch models.MessagePatch) (*models.EmailMessage, error) {
	var msg models.EmailMessage
	if err := s.c.Patch(ctx, "/email/messages/"+id.String(), patch, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *EmailService) MarkRead(ctx context.Context, id uuid.UUID, read bool) (*models.EmailMessage, error) {
	return s.UpdateMessage(ctx, id, models.MessagePatch{IsRead: &read})
}

func (s *EmailService) Star(ctx context.Context, id uuid.UUID, starred bool) (*models.EmailMessage, error) {
	return s.UpdateMessage(ctx, id, models.MessagePatch{IsStarred: &starred})
}

func (s *EmailService) Move(ctx context.Context, id uuid.UUID, folder models.EmailFolder) (*models.EmailMessage, error) {
	return s.UpdateMessage(ctx, id, models.MessagePatch{Folder: &folder})
}

func (s *EmailService) RemoveMessage(ctx context.Context, id uuid.UUID) error {
	return s.c.Delete(ctx, "/email/messages/"+id.String())
}

func (s *EmailService) Send(ctx context.Context, accountID uuid.UUID, form models.ComposeForm) (*models.EmailMessage, error) {
	payload, err := form.Payload()
	if err != nil {
		return nil, err
	}
	var msg models.EmailMessage
	if err := s.c.Post(ctx, "/email/accounts/"+accountID.String()+"/send", payload, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
