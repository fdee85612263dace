// ABOUTME: Tests for the domain services against a fake backend
// ABOUTME: Checks paths, payload shaping and response unwrapping
package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadlab/api"
	"github.com/harperreed/leadlab/models"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

type fakeBackend struct {
	mu       sync.Mutex
	requests []recorded
	routes   map[string]func(w http.ResponseWriter, r *http.Request)
}

func newFakeBackend(t *testing.T) (*fakeBackend, *Services) {
	t.Helper()
	fb := &fakeBackend{routes: map[string]func(http.ResponseWriter, *http.Request){}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.Body)
		}
		fb.mu.Lock()
		fb.requests = append(fb.requests, rec)
		h, ok := fb.routes[r.Method+" "+r.URL.Path]
		fb.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Not Found"}`))
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := api.New(srv.URL + "/api/v1")
	require.NoError(t, err)
	return fb, New(client)
}

func (fb *fakeBackend) handle(route string, status int, body string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.routes[route] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func (fb *fakeBackend) calls() []recorded {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]recorded(nil), fb.requests...)
}

func TestDealUpdateStatusSendsOnlyStatus(t *testing.T) {
	fb, svc := newFakeBackend(t)
	id := uuid.New()
	fb.handle("PATCH /api/v1/deals/"+id.String()+"/status", 200,
		`{"id":"`+id.String()+`","name":"Acme","amount":100,"status":"qualified"}`)

	deal, err := svc.Deals.UpdateStatus(context.Background(), id, models.DealQualified)
	require.NoError(t, err)
	assert.Equal(t, models.DealQualified, deal.Status)

	calls := fb.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]any{"status": "qualified"}, calls[0].Body)
}

func TestLeadListQueryAndEnvelope(t *testing.T) {
	fb, svc := newFakeBackend(t)
	stage := uuid.New()
	fb.handle("GET /api/v1/leads", 200,
		`{"data":{"items":[{"id":"`+uuid.NewString()+`","first_name":"Ada","last_name":"Lovelace"}],"total":41}}`)

	page, err := svc.Leads.List(context.Background(), LeadFilter{Search: " ada ", StageID: &stage, Paging: Paging{Limit: 20}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Ada Lovelace", page.Items[0].FullName())
	assert.Equal(t, 41, page.Total)

	q := fb.calls()[0].Query
	assert.Contains(t, q, "search=ada")
	assert.Contains(t, q, "stage_id="+stage.String())
	assert.Contains(t, q, "limit=20")
}

func TestDealCreateShapesForm(t *testing.T) {
	fb, svc := newFakeBackend(t)
	fb.handle("POST /api/v1/deals", 201, `{"id":"`+uuid.NewString()+`","name":"Renewal","amount":2500,"status":"lead"}`)

	_, err := svc.Deals.Create(context.Background(), models.DealForm{
		Name:       "Renewal",
		Amount:     "2,500",
		ValidUntil: "2024-12-31",
	})
	require.NoError(t, err)

	body := fb.calls()[0].Body
	assert.Equal(t, 2500.0, body["amount"])
	assert.Equal(t, "2024-12-31T00:00:00Z", body["valid_until"])
	assert.Equal(t, "lead", body["status"])
	assert.NotContains(t, body, "lead_id")
}

func TestValidationStopsBeforeRequest(t *testing.T) {
	fb, svc := newFakeBackend(t)
	_, err := svc.Tasks.Create(context.Background(), models.TaskForm{})
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
	assert.Empty(t, fb.calls())
}

func TestServerValidationDetailSurfaces(t *testing.T) {
	fb, svc := newFakeBackend(t)
	fb.handle("POST /api/v1/cpq/products", 409, `{"detail":"SKU already exists"}`)

	_, err := svc.CPQ.CreateProduct(context.Background(), models.ProductForm{Name: "Seat", SKU: "SEAT", Price: "10"})
	require.Error(t, err)
	assert.Equal(t, "SKU already exists", api.UserMessage(err, "create product"))
}

func TestSyncAllReportsEachAccount(t *testing.T) {
	fb, svc := newFakeBackend(t)
	accounts := []models.EmailAccount{
		{ID: uuid.New(), Email: "a@example.com"},
		{ID: uuid.New(), Email: "b@example.com"},
		{ID: uuid.New(), Email: "c@example.com"},
	}
	fb.handle("POST /api/v1/email/accounts/"+accounts[0].ID.String()+"/sync", 200, `{"new_messages":3}`)
	fb.handle("POST /api/v1/email/accounts/"+accounts[1].ID.String()+"/sync", 502, `{"detail":"IMAP login failed"}`)
	fb.handle("POST /api/v1/email/accounts/"+accounts[2].ID.String()+"/sync", 200, `{"new_messages":0}`)

	outcomes := svc.Email.SyncAll(context.Background(), accounts)
	require.Len(t, outcomes, 3)

	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, 3, outcomes[0].Result.NewMessages)
	assert.Equal(t, accounts[0].ID, outcomes[0].Result.AccountID)

	assert.Error(t, outcomes[1].Err)
	assert.Equal(t, "b@example.com", outcomes[1].Account.Email)
	assert.Equal(t, "IMAP login failed", api.UserMessage(outcomes[1].Err, "sync"))

	assert.NoError(t, outcomes[2].Err)
	assert.Len(t, fb.calls(), 3)
}

func TestMessageFlagsPatchOnlyWhatChanged(t *testing.T) {
	fb, svc := newFakeBackend(t)
	id := uuid.New()
	fb.handle("PATCH /api/v1/email/messages/"+id.String(), 200, `{"id":"`+id.String()+`","is_starred":true}`)

	msg, err := svc.Email.Star(context.Background(), id, true)
	require.NoError(t, err)
	assert.True(t, msg.IsStarred)
	assert.Equal(t, map[string]any{"is_starred": true}, fb.calls()[0].Body)
}

func TestLoginAndMe(t *testing.T) {
	fb, svc := newFakeBackend(t)
	fb.handle("POST /api/v1/auth/login", 200, `{"access_token":"tok","token_type":"bearer"}`)
	fb.handle("GET /api/v1/auth/me", 200, `{"id":"`+uuid.NewString()+`","email":"ada@example.com","is_admin":true}`)

	tok, err := svc.Auth.Login(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok", tok.AccessToken)
	assert.Equal(t, "ada@example.com", fb.calls()[0].Body["email"])

	user, err := svc.Auth.Me(context.Background())
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)
}

func TestLoginEmptyTokenIsAnError(t *testing.T) {
	fb, svc := newFakeBackend(t)
	fb.handle("POST /api/v1/auth/login", 200, `{"token_type":"bearer"}`)
	_, err := svc.Auth.Login(context.Background(), "ada@example.com", "pw")
	assert.Error(t, err)
}

func TestUnreadCountShapes(t *testing.T) {
	fb, svc := newFakeBackend(t)
	fb.handle("GET /api/v1/notifications/unread-count", 200, `{"unread_count":4}`)
	n, err := svc.Notifications.UnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	fb.handle("GET /api/v1/notifications/unread-count", 200, `{"count":2}`)
	n, err = svc.Notifications.UnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStagesSortedByPosition(t *testing.T) {
	fb, svc := newFakeBackend(t)
	fb.handle("GET /api/v1/stages", 200, `[
		{"id":"`+uuid.NewString()+`","name":"Won","position":3},
		{"id":"`+uuid.NewString()+`","name":"New","position":1},
		{"id":"`+uuid.NewString()+`","name":"Qualified","position":2}]`)
	stages, err := svc.Stages.List(context.Background())
	require.NoError(t, err)
	require.Len(t, stages, 3)
	assert.Equal(t, []string{"New", "Qualified", "Won"}, []string{stages[0].Name, stages[1].Name, stages[2].Name})
}

func TestTagEnsureReusesExisting(t *testing.T) {
	fb, svc := newFakeBackend(t)
	existing := []models.Tag{{ID: uuid.New(), Name: "VIP"}}
	tag, err := svc.Tags.Ensure(context.Background(), existing, "vip")
	require.NoError(t, err)
	assert.Equal(t, existing[0].ID, tag.ID)
	assert.Empty(t, fb.calls())

	fb.handle("POST /api/v1/tags", 201, `{"id":"`+uuid.NewString()+`","name":"Hot"}`)
	tag, err = svc.Tags.Ensure(context.Background(), existing, "Hot")
	require.NoError(t, err)
	assert.Equal(t, "Hot", tag.Name)
}

func TestCalendlyExchange(t *testing.T) {
	fb, svc := newFakeBackend(t)
	fb.handle("POST /api/v1/integrations/calendly/callback", 200, `{"email":"ada@calendly.test"}`)
	st, err := svc.Calendly.Exchange(context.Background(), "abc", "http://localhost:8765/cb")
	require.NoError(t, err)
	assert.True(t, st.Connected)
	assert.Equal(t, map[string]any{"code": "abc", "redirect_uri": "http://localhost:8765/cb"}, fb.calls()[0].Body)
}
