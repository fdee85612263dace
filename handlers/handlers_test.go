// ABOUTME: Tests for the MCP tool, resource and prompt handlers
// ABOUTME: Runs handlers directly against an httptest backend
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadlab/api"
	"github.com/harperreed/leadlab/services"
)

type call struct {
	Method string
	Path   string
	Body   map[string]any
}

type backend struct {
	mu     sync.Mutex
	calls  []call
	routes map[string]string
}

func newBackend(t *testing.T) (*backend, *services.Services) {
	t.Helper()
	b := &backend{routes: map[string]string{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := call{Method: r.Method, Path: strings.TrimPrefix(r.URL.Path, "/api/v1")}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &c.Body)
		}
		b.mu.Lock()
		b.calls = append(b.calls, c)
		body, ok := b.routes[c.Method+" "+c.Path]
		b.mu.Unlock()
		if !ok {
			if r.Method == http.MethodGet {
				_, _ = w.Write([]byte("[]"))
				return
			}
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Not Found"}`))
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	client, err := api.New(srv.URL + "/api/v1")
	require.NoError(t, err)
	return b, services.New(client)
}

func (b *backend) on(route, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[route] = body
}

func (b *backend) writes() []call {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []call
	for _, c := range b.calls {
		if c.Method != http.MethodGet {
			out = append(out, c)
		}
	}
	return out
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
}

func TestMoveLeadResolvesStageByName(t *testing.T) {
	b, svc := newBackend(t)
	leadID, stageID := uuid.New(), uuid.New()
	b.on("GET /stages", `[{"id":"`+uuid.NewString()+`","name":"New","position":0},{"id":"`+stageID.String()+`","name":"Qualified","position":1}]`)
	b.on("PATCH /leads/"+leadID.String()+"/stage", `{"id":"`+leadID.String()+`","first_name":"Ada","last_name":"Lovelace","stage_id":"`+stageID.String()+`"}`)

	h := NewLeadHandlers(svc)
	_, out, err := h.MoveLead(context.Background(), nil, MoveLeadInput{LeadID: leadID.String(), Stage: "qualified"})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", out.Name)
	assert.Equal(t, "Qualified", out.Stage)

	writes := b.writes()
	require.Len(t, writes, 1)
	assert.Equal(t, stageID.String(), writes[0].Body["stage_id"])
}

func TestMoveLeadUnknownStage(t *testing.T) {
	b, svc := newBackend(t)
	b.on("GET /stages", `[{"id":"`+uuid.NewString()+`","name":"New"}]`)

	h := NewLeadHandlers(svc)
	_, _, err := h.MoveLead(context.Background(), nil, MoveLeadInput{LeadID: uuid.NewString(), Stage: "Won"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown stage")
	assert.Empty(t, b.writes())
}

func TestAddLeadRequiresFirstName(t *testing.T) {
	_, svc := newBackend(t)
	h := NewLeadHandlers(svc)
	_, _, err := h.AddLead(context.Background(), nil, AddLeadInput{Email: "a@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first_name")
}

func TestFindDealsFiltersByAmount(t *testing.T) {
	b, svc := newBackend(t)
	b.on("GET /deals", `{"items":[
		{"id":"`+uuid.NewString()+`","name":"Small","amount":500,"status":"lead"},
		{"id":"`+uuid.NewString()+`","name":"Medium","amount":5000,"status":"qualified"},
		{"id":"`+uuid.NewString()+`","name":"Large","amount":50000,"status":"negotiation"}
	],"total":3}`)

	h := NewDealHandlers(svc)
	_, out, err := h.FindDeals(context.Background(), nil, FindDealsInput{MinAmount: 1000, MaxAmount: 10000})
	require.NoError(t, err)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "Medium", out.Deals[0].Name)
}

func TestUpdateDealStatusRejectsUnknownStatus(t *testing.T) {
	b, svc := newBackend(t)
	h := NewDealHandlers(svc)
	_, _, err := h.UpdateDealStatus(context.Background(), nil, UpdateDealStatusInput{ID: uuid.NewString(), Status: "archived"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid status")
	assert.Empty(t, b.writes())
}

func TestUpdateDealStatusSendsSingleWrite(t *testing.T) {
	b, svc := newBackend(t)
	id := uuid.New()
	b.on("PATCH /deals/"+id.String()+"/status", `{"id":"`+id.String()+`","name":"Acme","amount":100,"status":"won"}`)

	h := NewDealHandlers(svc)
	_, out, err := h.UpdateDealStatus(context.Background(), nil, UpdateDealStatusInput{ID: id.String(), Status: "won"})
	require.NoError(t, err)
	assert.Equal(t, "won", out.Status)

	writes := b.writes()
	require.Len(t, writes, 1)
	assert.Equal(t, map[string]any{"status": "won"}, writes[0].Body)
}

func TestFindTasksOverdueOnly(t *testing.T) {
	b, svc := newBackend(t)
	b.on("GET /tasks", `[
		{"id":"`+uuid.NewString()+`","title":"Late","status":"todo","priority":"high","due_date":"2026-03-01"},
		{"id":"`+uuid.NewString()+`","title":"Finished","status":"done","priority":"low","due_date":"2026-03-01"},
		{"id":"`+uuid.NewString()+`","title":"Later","status":"todo","priority":"low","due_date":"2026-04-01"}
	]`)

	h := NewTaskHandlers(svc)
	h.now = fixedClock
	_, out, err := h.FindTasks(context.Background(), nil, FindTasksInput{OverdueOnly: true})
	require.NoError(t, err)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "Late", out.Tasks[0].Title)
	assert.True(t, out.Tasks[0].Overdue)
}

func TestListEventsDefaultsToOneWeek(t *testing.T) {
	_, svc := newBackend(t)
	h := NewEventHandlers(svc)
	h.now = fixedClock
	_, out, err := h.ListEvents(context.Background(), nil, ListEventsInput{})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10T00:00:00Z", out.From)
	assert.Equal(t, "2026-03-17T00:00:00Z", out.To)
	assert.Empty(t, out.Events)
}

func TestQueryCRMInvalidEntity(t *testing.T) {
	_, svc := newBackend(t)
	h := NewQueryHandlers(svc)
	_, _, err := h.QueryCRM(context.Background(), nil, QueryCRMInput{EntityType: "company"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid entity_type")
}

func TestQueryCRMDealsHonorLimit(t *testing.T) {
	b, svc := newBackend(t)
	b.on("GET /deals", `[
		{"id":"`+uuid.NewString()+`","name":"A","amount":1,"status":"lead"},
		{"id":"`+uuid.NewString()+`","name":"B","amount":2,"status":"lead"},
		{"id":"`+uuid.NewString()+`","name":"C","amount":3,"status":"lead"}
	]`)

	h := NewQueryHandlers(svc)
	_, out, err := h.QueryCRM(context.Background(), nil, QueryCRMInput{EntityType: "deal", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	assert.Len(t, out.Results, 2)
}

func TestReadPipelineResource(t *testing.T) {
	b, svc := newBackend(t)
	b.on("GET /deals", `[
		{"id":"`+uuid.NewString()+`","name":"A","amount":100,"status":"won"},
		{"id":"`+uuid.NewString()+`","name":"B","amount":250,"status":"won"}
	]`)

	h := NewResourceHandlers(svc)
	res, err := h.ReadResource(context.Background(), &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: "leadlab://pipeline"},
	})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, "application/json", res.Contents[0].MIMEType)
	assert.Contains(t, res.Contents[0].Text, `"won"`)
	assert.Contains(t, res.Contents[0].Text, "350")
}

func TestReadResourceRejectsForeignScheme(t *testing.T) {
	_, svc := newBackend(t)
	h := NewResourceHandlers(svc)
	_, err := h.ReadResource(context.Background(), &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: "crm://leads"},
	})
	require.Error(t, err)
}

func TestLeadSummaryPrompt(t *testing.T) {
	b, svc := newBackend(t)
	id := uuid.New()
	b.on("GET /leads/"+id.String(), `{"id":"`+id.String()+`","first_name":"Grace","last_name":"Hopper","company":"Navy"}`)
	b.on("GET /leads/"+id.String()+"/notes", `[{"id":"`+uuid.NewString()+`","content":"Wants a demo","created_at":"2026-03-01T09:00:00Z"}]`)

	h := NewPromptHandlers(svc)
	h.now = fixedClock
	res, err := h.GetPrompt(context.Background(), &mcp.GetPromptRequest{
		Params: &mcp.GetPromptParams{Name: "lead-summary", Arguments: map[string]string{"lead_id": id.String()}},
	})
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	text := res.Messages[0].Content.(*mcp.TextContent).Text
	assert.Contains(t, text, "Grace Hopper")
	assert.Contains(t, text, "Company: Navy")
	assert.Contains(t, text, "Wants a demo")
}

func TestGetPromptUnknown(t *testing.T) {
	_, svc := newBackend(t)
	h := NewPromptHandlers(svc)
	_, err := h.GetPrompt(context.Background(), &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: "nope"}})
	require.Error(t, err)
	assert.Len(t, h.Prompts(), 3)
}
