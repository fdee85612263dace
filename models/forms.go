// ABOUTME: Form-shaped inputs and the server payloads they shape into
// ABOUTME: Converts date-only strings to ISO-8601 and numeric strings to numbers
package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ValidationError marks a form field that failed a client-side check.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// IsValidation reports whether err came from form checking rather than the server.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

// ISODate turns a form date ("2024-06-25" or a full timestamp) into an
// RFC 3339 string. Empty input yields nil.
func ISODate(field, value string) (*string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := ParseTime(value)
	if err != nil {
		return nil, &ValidationError{Field: field, Message: "must be a date like 2024-06-25"}
	}
	s := t.UTC().Format(time.RFC3339)
	return &s, nil
}

// ParseNumber accepts "1,234.50" or "$99" style input. Empty input is zero.
func ParseNumber(field, value string) (float64, error) {
	cleaned := strings.NewReplacer(",", "", "$", "", "€", "", "£", "", " ", "").Replace(value)
	if cleaned == "" {
		return 0, nil
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, &ValidationError{Field: field, Message: "must be a number"}
	}
	return n, nil
}

// OptionalUUID parses an optional reference field.
func OptionalUUID(field, value string) (*uuid.UUID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, &ValidationError{Field: field, Message: "must be a valid id"}
	}
	return &id, nil
}

type LeadForm struct {
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	Company      string
	JobTitle     string
	Source       string
	Value        string
	StageID      string
	AssignedToID string
}

type LeadPayload struct {
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Email        string     `json:"email,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Company      string     `json:"company,omitempty"`
	JobTitle     string     `json:"job_title,omitempty"`
	Source       string     `json:"source,omitempty"`
	Value        float64    `json:"value"`
	StageID      *uuid.UUID `json:"stage_id,omitempty"`
	AssignedToID *uuid.UUID `json:"assigned_to_id,omitempty"`
}

func (f LeadForm) Payload() (LeadPayload, error) {
	if err := required("first name", f.FirstName); err != nil {
		return LeadPayload{}, err
	}
	value, err := ParseNumber("value", f.Value)
	if err != nil {
		return LeadPayload{}, err
	}
	stage, err := OptionalUUID("stage", f.StageID)
	if err != nil {
		return LeadPayload{}, err
	}
	assignee, err := OptionalUUID("assignee", f.AssignedToID)
	if err != nil {
		return LeadPayload{}, err
	}
	return LeadPayload{
		FirstName:    strings.TrimSpace(f.FirstName),
		LastName:     strings.TrimSpace(f.LastName),
		Email:        strings.TrimSpace(f.Email),
		Phone:        strings.TrimSpace(f.Phone),
		Company:      strings.TrimSpace(f.Company),
		JobTitle:     strings.TrimSpace(f.JobTitle),
		Source:       strings.TrimSpace(f.Source),
		Value:        value,
		StageID:      stage,
		AssignedToID: assignee,
	}, nil
}

// LeadFormFrom pre-fills an edit form.
func LeadFormFrom(l Lead) LeadForm {
	f := LeadForm{
		FirstName: l.FirstName,
		LastName:  l.LastName,
		Email:     l.Email,
		Phone:     l.Phone,
		Company:   l.Company,
		JobTitle:  l.JobTitle,
		Source:    l.Source,
	}
	if l.Value != 0 {
		f.Value = strconv.FormatFloat(l.Value, 'f', -1, 64)
	}
	if l.StageID != nil {
		f.StageID = l.StageID.String()
	}
	if l.AssignedToID != nil {
		f.AssignedToID = l.AssignedToID.String()
	}
	return f
}

type DealForm struct {
	Name         string
	Amount       string
	Currency     string
	Status       string
	LeadID       string
	AssignedToID string
	ValidUntil   string
}

type DealPayload struct {
	Name         string     `json:"name"`
	Amount       float64    `json:"amount"`
	Currency     string     `json:"currency,omitempty"`
	Status       DealStatus `json:"status"`
	LeadID       *uuid.UUID `json:"lead_id,omitempty"`
	AssignedToID *uuid.UUID `json:"assigned_to_id,omitempty"`
	ValidUntil   *string    `json:"valid_until,omitempty"`
}

func (f DealForm) Payload() (DealPayload, error) {
	if err := required("name", f.Name); err != nil {
		return DealPayload{}, err
	}
	amount, err := ParseNumber("amount", f.Amount)
	if err != nil {
		return DealPayload{}, err
	}
	status := DealLead
	if f.Status != "" {
		s, ok := ParseDealStatus(f.Status)
		if !ok {
			return DealPayload{}, &ValidationError{Field: "status", Message: "is not a deal status"}
		}
		status = s
	}
	lead, err := OptionalUUID("lead", f.LeadID)
	if err != nil {
		return DealPayload{}, err
	}
	assignee, err := OptionalUUID("assignee", f.AssignedToID)
	if err != nil {
		return DealPayload{}, err
	}
	validUntil, err := ISODate("valid until", f.ValidUntil)
	if err != nil {
		return DealPayload{}, err
	}
	currency := strings.ToUpper(strings.TrimSpace(f.Currency))
	return DealPayload{
		Name:         strings.TrimSpace(f.Name),
		Amount:       amount,
		Currency:     currency,
		Status:       status,
		LeadID:       lead,
		AssignedToID: assignee,
		ValidUntil:   validUntil,
	}, nil
}

func DealFormFrom(d Deal) DealForm {
	f := DealForm{
		Name:       d.Name,
		Amount:     strconv.FormatFloat(d.Amount, 'f', -1, 64),
		Currency:   d.Currency,
		Status:     string(d.Status),
		ValidUntil: d.ValidUntil.Date(),
	}
	if d.LeadID != nil {
		f.LeadID = d.LeadID.String()
	}
	if d.AssignedToID != nil {
		f.AssignedToID = d.AssignedToID.String()
	}
	return f
}

type TaskForm struct {
	Title        string
	Description  string
	Status       string
	Priority     string
	DueDate      string
	AssignedToID string
	LeadID       string
}

type TaskPayload struct {
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	Status       TaskStatus   `json:"status"`
	Priority     TaskPriority `json:"priority"`
	DueDate      *string      `json:"due_date,omitempty"`
	AssignedToID *uuid.UUID   `json:"assigned_to,omitempty"`
	LeadID       *uuid.UUID   `json:"lead_id,omitempty"`
}

func (f TaskForm) Payload() (TaskPayload, error) {
	if err := required("title", f.Title); err != nil {
		return TaskPayload{}, err
	}
	status := TaskTodo
	if f.Status != "" {
		s, ok := ParseTaskStatus(f.Status)
		if !ok {
			return TaskPayload{}, &ValidationError{Field: "status", Message: "is not a task status"}
		}
		status = s
	}
	priority := PriorityMedium
	if f.Priority != "" {
		priority = TaskPriority(strings.ToLower(strings.TrimSpace(f.Priority)))
	}
	due, err := ISODate("due date", f.DueDate)
	if err != nil {
		return TaskPayload{}, err
	}
	assignee, err := OptionalUUID("assignee", f.AssignedToID)
	if err != nil {
		return TaskPayload{}, err
	}
	lead, err := OptionalUUID("lead", f.LeadID)
	if err != nil {
		return TaskPayload{}, err
	}
	return TaskPayload{
		Title:        strings.TrimSpace(f.Title),
		Description:  strings.TrimSpace(f.Description),
		Status:       status,
		Priority:     priority,
		DueDate:      due,
		AssignedToID: assignee,
		LeadID:       lead,
	}, nil
}

func TaskFormFrom(t Task) TaskForm {
	f := TaskForm{
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		DueDate:     t.DueDate.Date(),
	}
	if t.AssignedToID != nil {
		f.AssignedToID = t.AssignedToID.String()
	}
	if t.LeadID != nil {
		f.LeadID = t.LeadID.String()
	}
	return f
}

type EventForm struct {
	Title       string
	Description string
	Location    string
	StartDate   string
	EndDate     string
	Timezone    string
	EventType   string
	Status      string
}

// EventPayload is also what the ICS importer submits, one per VEVENT.
type EventPayload struct {
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Location    string      `json:"location,omitempty"`
	StartDate   string      `json:"start_date"`
	EndDate     string      `json:"end_date,omitempty"`
	Timezone    string      `json:"timezone,omitempty"`
	EventType   EventType   `json:"event_type,omitempty"`
	Status      EventStatus `json:"status,omitempty"`
}

func (f EventForm) Payload() (EventPayload, error) {
	if err := required("title", f.Title); err != nil {
		return EventPayload{}, err
	}
	if err := required("start", f.StartDate); err != nil {
		return EventPayload{}, err
	}
	start, err := ISODate("start", f.StartDate)
	if err != nil {
		return EventPayload{}, err
	}
	end, err := ISODate("end", f.EndDate)
	if err != nil {
		return EventPayload{}, err
	}
	p := EventPayload{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		Location:    strings.TrimSpace(f.Location),
		StartDate:   *start,
		Timezone:    strings.TrimSpace(f.Timezone),
		EventType:   EventType(strings.ToLower(strings.TrimSpace(f.EventType))),
		Status:      EventStatus(strings.ToLower(strings.TrimSpace(f.Status))),
	}
	if end != nil {
		p.EndDate = *end
	}
	if p.EventType == "" {
		p.EventType = EventMeeting
	}
	if p.Status == "" {
		p.Status = EventScheduled
	}
	return p, nil
}

// EventFormFrom prefills an edit form. Times are shown in UTC.
func EventFormFrom(e Event) EventForm {
	f := EventForm{
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		Timezone:    e.Timezone,
		EventType:   string(e.EventType),
		Status:      string(e.Status),
	}
	if !e.StartDate.IsZero() {
		f.StartDate = e.StartDate.UTC().Format("2006-01-02 15:04")
	}
	if !e.EndDate.IsZero() {
		f.EndDate = e.EndDate.UTC().Format("2006-01-02 15:04")
	}
	return f
}

type ProductForm struct {
	Name        string
	SKU         string
	Description string
	Price       string
	Currency    string
	Category    string
}

type ProductPayload struct {
	Name        string  `json:"name"`
	SKU         string  `json:"sku"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	Category    string  `json:"category,omitempty"`
}

func (f ProductForm) Payload() (ProductPayload, error) {
	if err := required("name", f.Name); err != nil {
		return ProductPayload{}, err
	}
	if err := required("sku", f.SKU); err != nil {
		return ProductPayload{}, err
	}
	price, err := ParseNumber("price", f.Price)
	if err != nil {
		return ProductPayload{}, err
	}
	currency := strings.ToUpper(strings.TrimSpace(f.Currency))
	if currency == "" {
		currency = "USD"
	}
	return ProductPayload{
		Name:        strings.TrimSpace(f.Name),
		SKU:         strings.TrimSpace(f.SKU),
		Description: strings.TrimSpace(f.Description),
		Price:       price,
		Currency:    currency,
		Category:    strings.TrimSpace(f.Category),
	}, nil
}

func ProductFormFrom(p Product) ProductForm {
	return ProductForm{
		Name:        p.Name,
		SKU:         p.SKU,
		Description: p.Description,
		Price:       strconv.FormatFloat(p.Price, 'f', 2, 64),
		Currency:    p.Currency,
		Category:    p.Category,
	}
}

// QuoteForm takes line items as "SKU:qty" pairs separated by commas.
type QuoteForm struct {
	Name       string
	LeadID     string
	Currency   string
	ValidUntil string
	Lines      string
}

type QuotePayload struct {
	Name       string      `json:"name"`
	LeadID     *uuid.UUID  `json:"lead_id,omitempty"`
	Currency   string      `json:"currency"`
	ValidUntil *string     `json:"valid_until,omitempty"`
	Items      []QuoteItem `json:"items"`
}

// Payload resolves SKUs against the product catalogue.
func (f QuoteForm) Payload(products []Product) (QuotePayload, error) {
	if err := required("name", f.Name); err != nil {
		return QuotePayload{}, err
	}
	lead, err := OptionalUUID("lead", f.LeadID)
	if err != nil {
		return QuotePayload{}, err
	}
	validUntil, err := ISODate("valid until", f.ValidUntil)
	if err != nil {
		return QuotePayload{}, err
	}
	bySKU := make(map[string]Product, len(products))
	for _, p := range products {
		bySKU[strings.ToUpper(p.SKU)] = p
	}

	var items []QuoteItem
	for _, line := range strings.Split(f.Lines, ",") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		sku, qtyText, found := strings.Cut(line, ":")
		qty := 1
		if found {
			n, err := strconv.Atoi(strings.TrimSpace(qtyText))
			if err != nil || n <= 0 {
				return QuotePayload{}, &ValidationError{Field: "lines", Message: fmt.Sprintf("has a bad quantity in %q", line)}
			}
			qty = n
		}
		product, ok := bySKU[strings.ToUpper(strings.TrimSpace(sku))]
		if !ok {
			return QuotePayload{}, &ValidationError{Field: "lines", Message: fmt.Sprintf("references unknown sku %q", sku)}
		}
		items = append(items, QuoteItem{ProductID: product.ID, Quantity: qty, UnitPrice: product.Price})
	}
	if len(items) == 0 {
		return QuotePayload{}, &ValidationError{Field: "lines", Message: "need at least one product"}
	}

	currency := strings.ToUpper(strings.TrimSpace(f.Currency))
	if currency == "" {
		currency = "USD"
	}
	return QuotePayload{
		Name:       strings.TrimSpace(f.Name),
		LeadID:     lead,
		Currency:   currency,
		ValidUntil: validUntil,
		Items:      items,
	}, nil
}

type StageForm struct {
	Name     string
	Color    string
	Position string
}

type StagePayload struct {
	Name     string `json:"name"`
	Color    string `json:"color,omitempty"`
	Position int    `json:"position"`
}

func (f StageForm) Payload() (StagePayload, error) {
	if err := required("name", f.Name); err != nil {
		return StagePayload{}, err
	}
	pos, err := ParseNumber("position", f.Position)
	if err != nil {
		return StagePayload{}, err
	}
	return StagePayload{Name: strings.TrimSpace(f.Name), Color: strings.TrimSpace(f.Color), Position: int(pos)}, nil
}

type UserForm struct {
	Name     string
	Email    string
	Password string
	IsAdmin  bool
}

type UserPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
	IsAdmin  bool   `json:"is_admin"`
}

func (f UserForm) Payload() (UserPayload, error) {
	if err := required("email", f.Email); err != nil {
		return UserPayload{}, err
	}
	return UserPayload{
		Name:     strings.TrimSpace(f.Name),
		Email:    strings.TrimSpace(f.Email),
		Password: f.Password,
		IsAdmin:  f.IsAdmin,
	}, nil
}

type SignupForm struct {
	Name             string
	Email            string
	Password         string
	OrganizationName string
}

type SignupPayload struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	OrganizationName string `json:"organization_name,omitempty"`
}

func (f SignupForm) Payload() (SignupPayload, error) {
	fields := [][2]string{{"name", f.Name}, {"email", f.Email}, {"password", f.Password}}
	for _, fv := range fields {
		if err := required(fv[0], fv[1]); err != nil {
			return SignupPayload{}, err
		}
	}
	return SignupPayload{
		Name:             strings.TrimSpace(f.Name),
		Email:            strings.TrimSpace(f.Email),
		Password:         f.Password,
		OrganizationName: strings.TrimSpace(f.OrganizationName),
	}, nil
}

type EmailAccountForm struct {
	Email       string
	DisplayName string
	Provider    string
	IMAPHost    string
	IMAPPort    string
	SMTPHost    string
	SMTPPort    string
	Username    string
	Password    string
}

type EmailAccountPayload struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	Provider    string `json:"provider,omitempty"`
	IMAPHost    string `json:"imap_host,omitempty"`
	IMAPPort    int    `json:"imap_port,omitempty"`
	SMTPHost    string `json:"smtp_host,omitempty"`
	SMTPPort    int    `json:"smtp_port,omitempty"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"`
	SyncEnabled bool   `json:"sync_enabled"`
}

func (f EmailAccountForm) Payload() (EmailAccountPayload, error) {
	if err := required("email", f.Email); err != nil {
		return EmailAccountPayload{}, err
	}
	imapPort, err := ParseNumber("imap port", f.IMAPPort)
	if err != nil {
		return EmailAccountPayload{}, err
	}
	smtpPort, err := ParseNumber("smtp port", f.SMTPPort)
	if err != nil {
		return EmailAccountPayload{}, err
	}
	return EmailAccountPayload{
		Email:       strings.TrimSpace(f.Email),
		DisplayName: strings.TrimSpace(f.DisplayName),
		Provider:    strings.TrimSpace(f.Provider),
		IMAPHost:    strings.TrimSpace(f.IMAPHost),
		IMAPPort:    int(imapPort),
		SMTPHost:    strings.TrimSpace(f.SMTPHost),
		SMTPPort:    int(smtpPort),
		Username:    strings.TrimSpace(f.Username),
		Password:    f.Password,
		SyncEnabled: true,
	}, nil
}

type ComposeForm struct {
	To      string
	Subject string
	Body    string
}

type ComposePayload struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

func (f ComposeForm) Payload() (ComposePayload, error) {
	if err := required("to", f.To); err != nil {
		return ComposePayload{}, err
	}
	var to []string
	for _, addr := range strings.Split(f.To, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}
	return ComposePayload{To: to, Subject: strings.TrimSpace(f.Subject), Body: f.Body}, nil
}

// MessagePatch carries the per-message flags a reader toggles.
type MessagePatch struct {
	IsRead    *bool        `json:"is_read,omitempty"`
	IsStarred *bool        `json:"is_starred,omitempty"`
	Folder    *EmailFolder `json:"folder,omitempty"`
}
