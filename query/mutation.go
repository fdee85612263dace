// ABOUTME: Mutate-then-invalidate helper and the invalidation set of each mutation
// ABOUTME: Every write names the query keys it makes stale
package query

import (
	"context"
	"fmt"
)

// Mutate runs fn and, only on success, invalidates the given keys so
// observed queries refetch. There is a window between fn returning and
// the refetch landing where screens still show the old data.
func Mutate[T any](ctx context.Context, c *Cache, fn func(ctx context.Context) (T, error), invalidates ...Key) (T, error) {
	result, err := fn(ctx)
	if err != nil {
		return result, err
	}
	c.Invalidate(invalidates...)
	return result, nil
}

// Exec is Mutate for calls without a result.
func Exec(ctx context.Context, c *Cache, fn func(ctx context.Context) error, invalidates ...Key) error {
	_, err := Mutate(ctx, c, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, invalidates...)
	return err
}

// Root keys. List and detail keys hang off these.
const (
	Me            Key = "me"
	Leads         Key = "leads"
	Stages        Key = "stages"
	Deals         Key = "deals"
	Tasks         Key = "tasks"
	Events        Key = "events"
	EmailAccounts Key = "email/accounts"
	EmailMessages Key = "email/messages"
	Products      Key = "cpq/products"
	Quotes        Key = "cpq/quotes"
	Tags          Key = "tags"
	Notifications Key = "notifications"
	UnreadCount   Key = "notifications/unread"
	Users         Key = "users"
	Organization  Key = "organization"
	Calendly      Key = "integrations/calendly"
	Health        Key = "health"
	Dashboard     Key = "dashboard"
)

func LeadList(search string) Key {
	if search == "" {
		return NewKey(string(Leads), "list")
	}
	return NewKey(string(Leads), "list", "q="+search)
}

func LeadDetail(id fmt.Stringer) Key { return NewKey(string(Leads), "detail", id.String()) }

func LeadNotes(id fmt.Stringer) Key { return NewKey(string(Leads), "detail", id.String(), "notes") }

func LeadInfoRequests(id fmt.Stringer) Key {
	return NewKey(string(Leads), "detail", id.String(), "info-requests")
}

func EventRange(start, end string) Key { return NewKey(string(Events), start+".."+end) }

func Messages(accountID fmt.Stringer, folder string) Key {
	return NewKey(string(EmailMessages), accountID.String(), folder)
}

// Invalidation sets. Each mutation in the app invalidates exactly one of these.
var (
	// Lead create, update, delete, stage move and tag changes.
	OnLeadChange = []Key{Leads, Dashboard}
	// Notes and info requests only touch the lead's detail subtree.
	OnLeadDetailChange = []Key{Leads}
	OnStageChange      = []Key{Stages, Leads, Dashboard}
	// Deal create, update, status move and delete.
	OnDealChange = []Key{Deals, Dashboard}
	OnTaskChange = []Key{Tasks, Dashboard}
	// Event create, update, delete and ICS import.
	OnEventChange        = []Key{Events}
	OnEmailAccountChange = []Key{EmailAccounts, EmailMessages}
	// Read, star, move, delete, send and sync.
	OnMessageChange      = []Key{EmailMessages, EmailAccounts}
	OnProductChange      = []Key{Products, Quotes}
	OnQuoteChange        = []Key{Quotes}
	OnTagChange          = []Key{Tags, Leads}
	OnNotificationChange = []Key{Notifications}
	OnUserChange         = []Key{Users}
	OnOrganizationChange = []Key{Organization, Me}
	OnCalendlyChange     = []Key{Calendly}
)
