// ABOUTME: Tests for LeadLab data models
// ABOUTME: Covers timestamp decoding, form shaping and quote totals
package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeAcceptsBackendShapes(t *testing.T) {
	cases := map[string]time.Time{
		`"2024-06-25T14:00:00Z"`:       time.Date(2024, 6, 25, 14, 0, 0, 0, time.UTC),
		`"2024-06-25T14:00:00"`:        time.Date(2024, 6, 25, 14, 0, 0, 0, time.UTC),
		`"2024-06-25T14:00:00.123456"`: time.Date(2024, 6, 25, 14, 0, 0, 123456000, time.UTC),
		`"2024-06-25"`:                 time.Date(2024, 6, 25, 0, 0, 0, 0, time.UTC),
		`"2024-06-25T16:00:00+02:00"`:  time.Date(2024, 6, 25, 14, 0, 0, 0, time.UTC),
	}
	for raw, want := range cases {
		var got Time
		require.NoError(t, json.Unmarshal([]byte(raw), &got), raw)
		assert.True(t, want.Equal(got.Time), "%s decoded to %s", raw, got.Time)
	}

	var empty Time
	require.NoError(t, json.Unmarshal([]byte(`null`), &empty))
	assert.True(t, empty.IsZero())

	var bad Time
	assert.Error(t, json.Unmarshal([]byte(`"next tuesday"`), &bad))
}

func TestDealFormShapesPayload(t *testing.T) {
	leadID := uuid.New()
	payload, err := DealForm{
		Name:       " Acme renewal ",
		Amount:     "12,500.50",
		Currency:   "usd",
		Status:     "Qualified",
		LeadID:     leadID.String(),
		ValidUntil: "2024-06-25",
	}.Payload()
	require.NoError(t, err)

	assert.Equal(t, "Acme renewal", payload.Name)
	assert.Equal(t, 12500.50, payload.Amount)
	assert.Equal(t, "USD", payload.Currency)
	assert.Equal(t, DealQualified, payload.Status)
	require.NotNil(t, payload.LeadID)
	assert.Equal(t, leadID, *payload.LeadID)
	require.NotNil(t, payload.ValidUntil)
	assert.Equal(t, "2024-06-25T00:00:00Z", *payload.ValidUntil)
	assert.Nil(t, payload.AssignedToID)
}

func TestFormValidation(t *testing.T) {
	_, err := DealForm{Amount: "10"}.Payload()
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, "name is required", err.Error())

	_, err = DealForm{Name: "x", Amount: "ten"}.Payload()
	assert.True(t, IsValidation(err))

	_, err = TaskForm{Title: "Call", DueDate: "25/06/2024"}.Payload()
	assert.True(t, IsValidation(err))

	_, err = SignupForm{Email: "a@b.c", Password: "pw"}.Payload()
	require.Error(t, err)
	assert.Equal(t, "name is required", err.Error())
}

func TestTaskFormDefaults(t *testing.T) {
	payload, err := TaskForm{Title: "Follow up"}.Payload()
	require.NoError(t, err)
	assert.Equal(t, TaskTodo, payload.Status)
	assert.Equal(t, PriorityMedium, payload.Priority)
	assert.Nil(t, payload.DueDate)
}

func TestQuoteFormResolvesSKUs(t *testing.T) {
	products := []Product{
		{ID: uuid.New(), SKU: "SEAT-1", Price: 49},
		{ID: uuid.New(), SKU: "ONBOARD", Price: 500},
	}
	payload, err := QuoteForm{Name: "Q1", Lines: "seat-1:10, ONBOARD"}.Payload(products)
	require.NoError(t, err)
	require.Len(t, payload.Items, 2)
	assert.Equal(t, products[0].ID, payload.Items[0].ProductID)
	assert.Equal(t, 10, payload.Items[0].Quantity)
	assert.Equal(t, 1, payload.Items[1].Quantity)

	quote := Quote{Items: payload.Items}
	assert.Equal(t, 990.0, quote.ComputeTotal())

	_, err = QuoteForm{Name: "Q1", Lines: "NOPE:1"}.Payload(products)
	assert.True(t, IsValidation(err))
}

func TestEventOnDay(t *testing.T) {
	ev := Event{
		StartDate: NewTime(time.Date(2024, 6, 25, 23, 0, 0, 0, time.UTC)),
		EndDate:   NewTime(time.Date(2024, 6, 26, 1, 0, 0, 0, time.UTC)),
	}
	assert.True(t, ev.OnDay(time.Date(2024, 6, 25, 12, 0, 0, 0, time.UTC)))
	assert.True(t, ev.OnDay(time.Date(2024, 6, 26, 12, 0, 0, 0, time.UTC)))
	assert.False(t, ev.OnDay(time.Date(2024, 6, 27, 12, 0, 0, 0, time.UTC)))
}

func TestStatusParsing(t *testing.T) {
	s, ok := ParseDealStatus("negotiation")
	assert.True(t, ok)
	assert.Equal(t, DealNegotiation, s)

	ts, ok := ParseTaskStatus("In Progress")
	assert.True(t, ok)
	assert.Equal(t, TaskInProgress, ts)

	_, ok = ParseDealStatus("archived")
	assert.False(t, ok)
	assert.Equal(t, "To Do", TaskTodo.Label())
}
