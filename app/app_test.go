// ABOUTME: Tests for the application container wiring
// ABOUTME: Checks session teardown on 401 and that stores close cleanly
package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadlab/auth"
	"github.com/harperreed/leadlab/config"
	"github.com/harperreed/leadlab/query"
	"github.com/harperreed/leadlab/router"
	"github.com/harperreed/leadlab/services"
	"github.com/harperreed/leadlab/storage"
)

func newTestApp(t *testing.T, handler http.Handler) *App {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.APIURL = srv.URL
	cfg.LocalStorageDir = t.TempDir()
	cfg.SessionStorageDir = ""

	a, err := New(Options{Config: cfg, LogOutput: io.Discard})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestUnauthorizedResponseTearsDownSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"access_token":"tok","token_type":"bearer","user":{"id":"6f1b8a52-3c1e-4f43-9c1f-0d6f0c1e8a11","email":"ada@example.com","name":"Ada"}}`)
	})
	var stageFetches atomic.Int32
	mux.HandleFunc("/stages", func(w http.ResponseWriter, r *http.Request) {
		stageFetches.Add(1)
		_, _ = io.WriteString(w, `[{"id":"0b7c4a2e-5a52-4d7c-8b7a-1f2d3e4f5a6b","name":"New","position":0}]`)
	})
	mux.HandleFunc("/leads", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail":"Token expired"}`)
	})
	a := newTestApp(t, mux)
	ctx := context.Background()

	require.NoError(t, a.Auth.Login(ctx, "ada@example.com", "secret"))
	assert.Equal(t, auth.Authenticated, a.Auth.Snapshot().State)
	token, err := a.Local.Get(auth.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "tok", string(token))

	_, err = query.Fetch(ctx, a.Cache, query.Stages, a.Services.Stages.List)
	require.NoError(t, err)
	_, err = query.Fetch(ctx, a.Cache, query.Stages, a.Services.Stages.List)
	require.NoError(t, err)
	require.Equal(t, int32(1), stageFetches.Load(), "second read is served from cache")
	a.History.Push("/leads")

	_, err = query.Fetch(ctx, a.Cache, query.Leads, func(ctx context.Context) ([]any, error) {
		_, err := a.Services.Leads.List(ctx, services.LeadFilter{})
		return nil, err
	})
	require.Error(t, err)

	assert.Equal(t, auth.Anonymous, a.Auth.Snapshot().State)
	assert.Empty(t, a.Client.Token())
	_, err = a.Local.Get(auth.KeyToken)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, _ = query.Fetch(ctx, a.Cache, query.Stages, a.Services.Stages.List)
	assert.Equal(t, int32(2), stageFetches.Load(), "logout emptied the cache")
	assert.Equal(t, "/leads", a.History.Current(), "history belongs to the UI goroutine")
}

func TestUnauthorizedOffTheUIGoroutineDoesNotTouchHistory(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"access_token":"tok","token_type":"bearer","user":{"id":"6f1b8a52-3c1e-4f43-9c1f-0d6f0c1e8a11","email":"ada@example.com"}}`)
	})
	mux.HandleFunc("/leads", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	a := newTestApp(t, mux)
	ctx := context.Background()
	require.NoError(t, a.Auth.Login(ctx, "ada@example.com", "secret"))

	done := make(chan error)
	go func() {
		_, err := a.Services.Leads.List(ctx, services.LeadFilter{})
		done <- err
	}()

	paths := []string{"/leads", "/deals", "/tasks"}
	var err error
	for i := 0; ; i++ {
		a.History.Push(paths[i%len(paths)])
		_ = a.History.Current()
		select {
		case err = <-done:
		default:
			continue
		}
		break
	}
	require.Error(t, err)
	assert.Equal(t, auth.Anonymous, a.Auth.Snapshot().State)
	assert.NotEqual(t, router.SignIn, a.History.Current())
}

func TestRestoreWithoutTokenStaysAnonymous(t *testing.T) {
	a := newTestApp(t, http.NotFoundHandler())
	a.Restore(context.Background())
	assert.Equal(t, auth.Anonymous, a.Auth.Snapshot().State)
	assert.False(t, a.Session.Persistent())
	assert.True(t, a.Local.Persistent())
}

func TestCloseIsIdempotent(t *testing.T) {
	a := newTestApp(t, http.NotFoundHandler())
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
}

func TestInvalidConfigFails(t *testing.T) {
	cfg := config.Default()
	cfg.APIURL = "not a url"
	cfg.LocalStorageDir = t.TempDir()
	_, err := New(Options{Config: cfg, LogOutput: io.Discard})
	assert.Error(t, err)
}
