// ABOUTME: Tests for the backend HTTP client
// ABOUTME: Uses httptest servers to check headers, errors and 401 handling
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadlab/models"
)

type widget struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL + "/api/v1")
	require.NoError(t, err)
	return c
}

func TestClientAttachesHeaders(t *testing.T) {
	var seen *http.Request
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = r
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"id":"w1","name":"gear"}`))
	})
	c.SetToken("secret")

	var out widget
	err := c.Post(context.Background(), "/widgets", map[string]string{"name": "gear"}, &out)
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/widgets", seen.URL.Path)
	assert.Equal(t, "Bearer secret", seen.Header.Get("Authorization"))
	assert.Equal(t, "application/json", seen.Header.Get("Content-Type"))
	assert.Len(t, seen.Header.Get("X-Request-ID"), 26)
	assert.Equal(t, "gear", body["name"])
	assert.Equal(t, widget{ID: "w1", Name: "gear"}, out)
}

func TestClientOmitsAuthorizationWithoutToken(t *testing.T) {
	var auth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, c.Get(context.Background(), "/health", url.Values{"verbose": {"1"}}, nil))
	assert.Empty(t, auth)
}

func TestClientErrorDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":[{"loc":["body","email"],"msg":"field required"}]}`))
	})
	err := c.Post(context.Background(), "/leads", map[string]string{}, nil)
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "email: field required", apiErr.Detail)
	assert.Equal(t, "email: field required", UserMessage(err, "create lead"))
	assert.Equal(t, 422, StatusOf(err))
}

func TestClientUnauthorizedHook(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Could not validate credentials"}`))
	})
	var calls atomic.Int32
	c.OnUnauthorized(func() {
		calls.Add(1)
		c.ClearToken()
	})

	// Anonymous 401s (wrong password) must not trigger a sign-out.
	err := c.Get(context.Background(), "/auth/me", nil, nil)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, int32(0), calls.Load())

	c.SetToken("expired")
	err = c.Get(context.Background(), "/leads", nil, nil)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, c.Token())
}

func TestClientNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c, err := New(srv.URL)
	require.NoError(t, err)

	err = c.Get(context.Background(), "/leads", nil, nil)
	assert.True(t, errors.Is(err, ErrNetwork))
	assert.Equal(t, "Failed to load leads: cannot reach the server", UserMessage(err, "load leads"))
}

func TestClientCancelledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Get(ctx, "/leads", nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetListUnwraps(t *testing.T) {
	bodies := []string{
		`[{"id":"1","name":"a"},{"id":"2","name":"b"}]`,
		`{"items":[{"id":"1","name":"a"},{"id":"2","name":"b"}],"total":7}`,
		`{"data":{"items":[{"id":"1","name":"a"},{"id":"2","name":"b"}],"total":7}}`,
		`{"data":[{"id":"1","name":"a"},{"id":"2","name":"b"}]}`,
	}
	for _, b := range bodies {
		body := b
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})
		page, err := GetList[widget](context.Background(), c, "/widgets", nil)
		require.NoError(t, err, body)
		require.Len(t, page.Items, 2, body)
		assert.Equal(t, "b", page.Items[1].Name)
		assert.GreaterOrEqual(t, page.Total, 2)
	}
}

func TestDecodeOneUnwrapsEnvelope(t *testing.T) {
	var w widget
	require.NoError(t, DecodeOne([]byte(`{"data":{"id":"9","name":"x"}}`), &w))
	assert.Equal(t, "9", w.ID)

	type withData struct {
		ID   string         `json:"id"`
		Data map[string]any `json:"data"`
	}
	var wd withData
	require.NoError(t, DecodeOne([]byte(`{"id":"3","data":{"k":"v"}}`), &wd))
	assert.Equal(t, "3", wd.ID)
	assert.Equal(t, "v", wd.Data["k"])
}

func TestDecodeListRejectsUnknownShape(t *testing.T) {
	_, err := DecodeList[widget]([]byte(`{"results":[]}`))
	assert.Error(t, err)

	page, err := DecodeList[widget]([]byte(`null`))
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestUserMessageFallbacks(t *testing.T) {
	assert.Equal(t, "Failed to delete deal (500)", UserMessage(&Error{Status: 500}, "delete deal"))
	assert.Equal(t, "Name is required", UserMessage(&models.ValidationError{Field: "name", Message: "is required"}, "save"))
	assert.Equal(t, "Failed to save", UserMessage(errors.New("boom"), "save"))
	assert.Empty(t, UserMessage(nil, "save"))
}

func TestParseDetailShapes(t *testing.T) {
	assert.Equal(t, "Email already registered", parseDetail([]byte(`{"detail":"Email already registered"}`)))
	assert.Equal(t, "bad thing", parseDetail([]byte(`{"message":"bad thing"}`)))
	assert.Equal(t, "code expired", parseDetail([]byte(`{"error":"invalid_grant","error_description":"code expired"}`)))
	assert.Equal(t, "Bad Gateway", parseDetail([]byte("Bad Gateway")))
	assert.Empty(t, parseDetail([]byte("<html>oops</html>")))
}
