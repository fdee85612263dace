// ABOUTME: Application container shared by the CLI and the terminal UI
// ABOUTME: Registers providers with samber/do and exposes the built components
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/samber/do/v2"

	"github.com/harperreed/leadlab/api"
	"github.com/harperreed/leadlab/auth"
	"github.com/harperreed/leadlab/config"
	"github.com/harperreed/leadlab/query"
	"github.com/harperreed/leadlab/router"
	"github.com/harperreed/leadlab/services"
	"github.com/harperreed/leadlab/storage"
)

type Options struct {
	Overrides config.Overrides
	// Config skips loading from flags and environment when set.
	Config *config.Config
	// LogOutput defaults to stderr.
	LogOutput io.Writer
}

type App struct {
	injector *do.RootScope

	Config   *config.Config
	Logger   *log.Logger
	Local    *storage.Store
	Session  *storage.Store
	Client   *api.Client
	Services *services.Services
	Cache    *query.Cache
	Auth     *auth.Store
	History  *router.History
}

// NewContainer registers every provider without building anything.
func NewContainer(opts Options) *do.RootScope {
	injector := do.New()

	do.Provide(injector, provideConfig(opts))
	do.Provide(injector, provideLogger(opts))
	do.Provide(injector, provideLocalStore)
	do.Provide(injector, provideSessionStore)
	do.Provide(injector, provideClient)
	do.Provide(injector, provideServices)
	do.Provide(injector, provideCache)
	do.Provide(injector, provideHistory)
	do.Provide(injector, provideAuth)

	return injector
}

// New builds the container and resolves every component.
func New(opts Options) (*App, error) {
	injector := NewContainer(opts)
	a := &App{injector: injector}

	var err error
	if a.Config, err = do.Invoke[*config.Config](injector); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := a.Config.Validate(); err != nil {
		return nil, err
	}
	if a.Logger, err = do.Invoke[*log.Logger](injector); err != nil {
		return nil, err
	}

	local, err := do.Invoke[*LocalStore](injector)
	if err != nil {
		return nil, err
	}
	a.Local = local.Store

	session, err := do.Invoke[*SessionStore](injector)
	if err != nil {
		_ = a.Local.Close()
		return nil, err
	}
	a.Session = session.Store

	if a.Client, err = do.Invoke[*api.Client](injector); err != nil {
		a.closeStores()
		return nil, err
	}
	a.Services = do.MustInvoke[*services.Services](injector)
	a.Cache = do.MustInvoke[*CacheHandle](injector).Cache
	a.History = do.MustInvoke[*router.History](injector)
	a.Auth = do.MustInvoke[*auth.Store](injector)
	return a, nil
}

// Restore re-hydrates a saved session. Failures leave the app anonymous.
func (a *App) Restore(ctx context.Context) {
	if err := a.Auth.Restore(ctx); err != nil {
		a.Logger.Debug("no session restored", "err", err)
	}
}

// Close shuts the container down and releases both stores.
func (a *App) Close() error {
	a.injector.Shutdown()
	return a.closeStores()
}

func (a *App) closeStores() error {
	var first error
	for _, s := range []*storage.Store{a.Session, a.Local} {
		if s == nil {
			continue
		}
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
