// ABOUTME: Data models for LeadLab CRM entities mirrored from the backend
// ABOUTME: Defines users, leads, deals, tasks, events, email, CPQ, tags and notifications
package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	IsAdmin        bool       `json:"is_admin"`
	IsActive       bool       `json:"is_active"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	CreatedAt      Time       `json:"created_at"`
}

type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt Time      `json:"created_at"`
}

type Stage struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Color          string     `json:"color,omitempty"`
	Position       int        `json:"position"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
}

type Lead struct {
	ID           uuid.UUID  `json:"id"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Email        string     `json:"email,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Company      string     `json:"company,omitempty"`
	JobTitle     string     `json:"job_title,omitempty"`
	Source       string     `json:"source,omitempty"`
	Value        float64    `json:"value,omitempty"`
	StageID      *uuid.UUID `json:"stage_id,omitempty"`
	AssignedToID *uuid.UUID `json:"assigned_to_id,omitempty"`
	Tags         []Tag      `json:"tags,omitempty"`
	CreatedAt    Time       `json:"created_at"`
	UpdatedAt    Time       `json:"updated_at"`
}

// FullName joins first and last name, falling back to the email address.
func (l Lead) FullName() string {
	switch {
	case l.FirstName != "" && l.LastName != "":
		return l.FirstName + " " + l.LastName
	case l.FirstName != "":
		return l.FirstName
	case l.LastName != "":
		return l.LastName
	}
	return l.Email
}

// HasTag reports whether the lead carries a tag with the given ID.
func (l Lead) HasTag(id uuid.UUID) bool {
	for _, t := range l.Tags {
		if t.ID == id {
			return true
		}
	}
	return false
}

type Note struct {
	ID        uuid.UUID  `json:"id"`
	LeadID    uuid.UUID  `json:"lead_id"`
	Content   string     `json:"content"`
	AuthorID  *uuid.UUID `json:"author_id,omitempty"`
	CreatedAt Time       `json:"created_at"`
}

type InfoRequest struct {
	ID        uuid.UUID `json:"id"`
	LeadID    uuid.UUID `json:"lead_id"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message,omitempty"`
	Status    string    `json:"status,omitempty"`
	CreatedAt Time      `json:"created_at"`
}

type Deal struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Amount       float64    `json:"amount"`
	Currency     string     `json:"currency,omitempty"`
	Status       DealStatus `json:"status"`
	LeadID       *uuid.UUID `json:"lead_id,omitempty"`
	AssignedToID *uuid.UUID `json:"assigned_to_id,omitempty"`
	ValidUntil   Time       `json:"valid_until"`
	CreatedAt    Time       `json:"created_at"`
	UpdatedAt    Time       `json:"updated_at"`
}

type Task struct {
	ID           uuid.UUID    `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	Status       TaskStatus   `json:"status"`
	Priority     TaskPriority `json:"priority"`
	DueDate      Time         `json:"due_date"`
	AssignedToID *uuid.UUID   `json:"assigned_to,omitempty"`
	LeadID       *uuid.UUID   `json:"lead_id,omitempty"`
	CreatedAt    Time         `json:"created_at"`
}

// Overdue reports whether an unfinished task is past its due date.
func (t Task) Overdue(now time.Time) bool {
	return !t.DueDate.IsZero() && t.Status != TaskDone && t.DueDate.Before(now)
}

type Event struct {
	ID          uuid.UUID   `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Location    string      `json:"location,omitempty"`
	StartDate   Time        `json:"start_date"`
	EndDate     Time        `json:"end_date"`
	Timezone    string      `json:"timezone,omitempty"`
	EventType   EventType   `json:"event_type,omitempty"`
	Status      EventStatus `json:"status,omitempty"`
}

// OnDay reports whether the event overlaps the calendar day containing day.
func (e Event) OnDay(day time.Time) bool {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)
	evEnd := e.EndDate.Time
	if evEnd.IsZero() || evEnd.Before(e.StartDate.Time) {
		evEnd = e.StartDate.Time
	}
	return e.StartDate.Before(end) && !evEnd.Before(start)
}

type EmailAccount struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name,omitempty"`
	Provider     string    `json:"provider,omitempty"`
	IMAPHost     string    `json:"imap_host,omitempty"`
	IMAPPort     int       `json:"imap_port,omitempty"`
	SMTPHost     string    `json:"smtp_host,omitempty"`
	SMTPPort     int       `json:"smtp_port,omitempty"`
	Username     string    `json:"username,omitempty"`
	SyncEnabled  bool      `json:"sync_enabled"`
	LastSyncedAt Time      `json:"last_synced_at"`
}

type EmailMessage struct {
	ID         uuid.UUID   `json:"id"`
	AccountID  uuid.UUID   `json:"account_id"`
	From       string      `json:"from_address"`
	To         []string    `json:"to_addresses,omitempty"`
	Subject    string      `json:"subject"`
	Body       string      `json:"body,omitempty"`
	Folder     EmailFolder `json:"folder"`
	IsRead     bool        `json:"is_read"`
	IsStarred  bool        `json:"is_starred"`
	ReceivedAt Time        `json:"received_at"`
}

// SyncResult is the backend's answer to an account sync request.
type SyncResult struct {
	AccountID   uuid.UUID `json:"account_id"`
	NewMessages int       `json:"new_messages"`
	Status      string    `json:"status,omitempty"`
}

type Product struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	SKU         string    `json:"sku"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Currency    string    `json:"currency"`
	Category    string    `json:"category,omitempty"`
	IsActive    bool      `json:"is_active"`
}

type QuoteItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
	Discount  float64   `json:"discount,omitempty"`
}

// Subtotal is quantity times unit price less the percentage discount.
func (i QuoteItem) Subtotal() float64 {
	gross := float64(i.Quantity) * i.UnitPrice
	return gross - gross*i.Discount/100
}

type Quote struct {
	ID         uuid.UUID   `json:"id"`
	Name       string      `json:"name"`
	LeadID     *uuid.UUID  `json:"lead_id,omitempty"`
	Status     string      `json:"status,omitempty"`
	Currency   string      `json:"currency"`
	ValidUntil Time        `json:"valid_until"`
	Items      []QuoteItem `json:"items"`
	Total      float64     `json:"total"`
}

// ComputeTotal sums line subtotals. The backend total wins when present.
func (q Quote) ComputeTotal() float64 {
	if q.Total > 0 {
		return q.Total
	}
	var sum float64
	for _, item := range q.Items {
		sum += item.Subtotal()
	}
	return sum
}

type Notification struct {
	ID        uuid.UUID        `json:"id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	IsRead    bool             `json:"is_read"`
	ActionURL string           `json:"action_url,omitempty"`
	CreatedAt Time             `json:"created_at"`
}

type Tag struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Color string    `json:"color,omitempty"`
}

// Token is the login response. Some backends embed the user, others don't.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        *User  `json:"user,omitempty"`
}

type CalendlyStatus struct {
	Connected   bool   `json:"connected"`
	Email       string `json:"email,omitempty"`
	ConnectedAt Time   `json:"connected_at"`
}

type Health struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// Healthy treats "ok" and "healthy" as a live backend.
func (h Health) Healthy() bool {
	return h.Status == "ok" || h.Status == "healthy"
}
