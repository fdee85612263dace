// ABOUTME: Dependency providers for the application container
// ABOUTME: Builds config, logging, storage, API client, services, cache and auth in order
package app

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/samber/do/v2"

	"github.com/harperreed/leadlab/api"
	"github.com/harperreed/leadlab/auth"
	"github.com/harperreed/leadlab/config"
	"github.com/harperreed/leadlab/logging"
	"github.com/harperreed/leadlab/query"
	"github.com/harperreed/leadlab/router"
	"github.com/harperreed/leadlab/services"
	"github.com/harperreed/leadlab/storage"
)

// LocalStore survives restarts; it holds the auth token.
type LocalStore struct {
	*storage.Store
}

// Shutdown implements do.Shutdownable.
func (h *LocalStore) Shutdown() error {
	return h.Close()
}

// SessionStore lives as long as the login session; it holds the restore path.
type SessionStore struct {
	*storage.Store
}

// Shutdown implements do.Shutdownable.
func (h *SessionStore) Shutdown() error {
	return h.Close()
}

// CacheHandle stops the cache's pollers and subscribers on shutdown.
type CacheHandle struct {
	*query.Cache
}

// Shutdown implements do.Shutdownable.
func (h *CacheHandle) Shutdown() error {
	h.Close()
	return nil
}

func provideConfig(opts Options) func(do.Injector) (*config.Config, error) {
	return func(do.Injector) (*config.Config, error) {
		if opts.Config != nil {
			return opts.Config, nil
		}
		return config.Load(opts.Overrides)
	}
}

func provideLogger(opts Options) func(do.Injector) (*log.Logger, error) {
	return func(i do.Injector) (*log.Logger, error) {
		cfg := do.MustInvoke[*config.Config](i)
		logger := logging.New(logging.Options{
			Level:  cfg.LogLevel,
			Format: cfg.LogFormat,
			Output: opts.LogOutput,
			Caller: cfg.Development(),
		})
		logger.Debug("starting leadlab", "api", cfg.APIURL, "environment", cfg.Environment)
		return logger, nil
	}
}

func provideLocalStore(i do.Injector) (*LocalStore, error) {
	cfg := do.MustInvoke[*config.Config](i)
	store, err := storage.Open(cfg.LocalStorageDir)
	if err != nil {
		return nil, fmt.Errorf("local storage: %w", err)
	}
	return &LocalStore{Store: store}, nil
}

func provideSessionStore(i do.Injector) (*SessionStore, error) {
	cfg := do.MustInvoke[*config.Config](i)
	store, err := storage.Open(cfg.SessionStorageDir)
	if err != nil {
		return nil, fmt.Errorf("session storage: %w", err)
	}
	return &SessionStore{Store: store}, nil
}

func provideClient(i do.Injector) (*api.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	logger := do.MustInvoke[*log.Logger](i)
	return api.New(cfg.APIURL, api.WithLogger(logger), api.WithTimeout(cfg.HTTPTimeout))
}

func provideServices(i do.Injector) (*services.Services, error) {
	return services.New(do.MustInvoke[*api.Client](i)), nil
}

func provideCache(i do.Injector) (*CacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	logger := do.MustInvoke[*log.Logger](i)
	return &CacheHandle{Cache: query.New(query.WithStaleTime(cfg.StaleTime), query.WithLogger(logger))}, nil
}

func provideHistory(do.Injector) (*router.History, error) {
	return router.NewHistory(router.DashboardPath), nil
}

// provideAuth also wires the session teardown: a 401 on an authenticated
// request logs out, and logging out empties the cache. The TUI resets its
// history itself when it sees the session end, since a 401 can arrive on any
// goroutine.
func provideAuth(i do.Injector) (*auth.Store, error) {
	client := do.MustInvoke[*api.Client](i)
	svc := do.MustInvoke[*services.Services](i)
	local := do.MustInvoke[*LocalStore](i)
	cache := do.MustInvoke[*CacheHandle](i)
	logger := do.MustInvoke[*log.Logger](i)

	store := auth.New(svc.Auth, client, local.Store, logger)
	client.OnUnauthorized(func() {
		logger.Info("session expired")
		store.Logout()
	})
	store.OnLogout(cache.Clear)
	return store, nil
}
