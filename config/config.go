// ABOUTME: Runtime configuration for the LeadLab client
// ABOUTME: Merges flags, environment, .env files and defaults, and resolves XDG paths
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

const (
	DefaultAPIURL              = "http://localhost:8000/api/v1"
	DefaultCalendlyRedirectURI = "http://localhost:8765/integrations/calendly/callback"
	DefaultStaleTime           = 30 * time.Second
	DefaultNotificationsPoll   = 30 * time.Second
	DefaultHealthPoll          = 60 * time.Second
)

type Config struct {
	APIURL              string
	CalendlyClientID    string
	CalendlyRedirectURI string
	Environment         string
	LogLevel            string
	LogFormat           string

	// HTTPTimeout of zero leaves the HTTP client default in place.
	HTTPTimeout       time.Duration
	StaleTime         time.Duration
	NotificationsPoll time.Duration
	HealthPoll        time.Duration

	LocalStorageDir   string
	SessionStorageDir string // empty means in-memory
	LogFile           string
}

// Overrides carries command-line flags. Empty fields are ignored.
type Overrides struct {
	APIURL    string
	LogLevel  string
	LogFormat string
	EnvFile   string
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg := &Config{
		APIURL:              DefaultAPIURL,
		CalendlyRedirectURI: DefaultCalendlyRedirectURI,
		Environment:         "production",
		LogLevel:            "info",
		LogFormat:           "text",
		StaleTime:           DefaultStaleTime,
		NotificationsPoll:   DefaultNotificationsPoll,
		HealthPoll:          DefaultHealthPoll,
		LocalStorageDir:     filepath.Join(xdg.DataHome, "leadlab", "local"),
		LogFile:             filepath.Join(xdg.StateHome, "leadlab", "leadlab.log"),
	}
	if xdg.RuntimeDir != "" {
		cfg.SessionStorageDir = filepath.Join(xdg.RuntimeDir, "leadlab", "session")
	}
	return cfg
}

// Load builds the configuration. Precedence is flags, then environment,
// then the .env file, then defaults.
func Load(o Overrides) (*Config, error) {
	envFile := o.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// godotenv never overrides variables that are already set. A missing
	// default .env is normal; a missing explicit one is not.
	if err := godotenv.Load(envFile); err != nil && o.EnvFile != "" {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	cfg := Default()
	cfg.APIURL = envString("LEADLAB_API_URL", cfg.APIURL)
	cfg.CalendlyClientID = envString("LEADLAB_CALENDLY_CLIENT_ID", cfg.CalendlyClientID)
	cfg.CalendlyRedirectURI = envString("LEADLAB_CALENDLY_REDIRECT_URI", cfg.CalendlyRedirectURI)
	cfg.Environment = envString("LEADLAB_ENV", cfg.Environment)
	cfg.LogLevel = envString("LEADLAB_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envString("LEADLAB_LOG_FORMAT", cfg.LogFormat)
	cfg.LocalStorageDir = envString("LEADLAB_DATA_DIR", cfg.LocalStorageDir)
	cfg.SessionStorageDir = envString("LEADLAB_SESSION_DIR", cfg.SessionStorageDir)
	cfg.LogFile = envString("LEADLAB_LOG_FILE", cfg.LogFile)

	var err error
	if cfg.HTTPTimeout, err = envDuration("LEADLAB_HTTP_TIMEOUT", cfg.HTTPTimeout); err != nil {
		return nil, err
	}
	if cfg.StaleTime, err = envDuration("LEADLAB_STALE_TIME", cfg.StaleTime); err != nil {
		return nil, err
	}
	if cfg.NotificationsPoll, err = envDuration("LEADLAB_NOTIFICATIONS_POLL", cfg.NotificationsPoll); err != nil {
		return nil, err
	}
	if cfg.HealthPoll, err = envDuration("LEADLAB_HEALTH_POLL", cfg.HealthPoll); err != nil {
		return nil, err
	}

	if o.APIURL != "" {
		cfg.APIURL = o.APIURL
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.LogFormat = o.LogFormat
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid API URL %q: must be an absolute http(s) URL", c.APIURL)
	}
	if c.CalendlyRedirectURI != "" {
		if ru, err := url.Parse(c.CalendlyRedirectURI); err != nil || ru.Host == "" {
			return fmt.Errorf("invalid Calendly redirect URI %q", c.CalendlyRedirectURI)
		}
	}
	for name, d := range map[string]time.Duration{
		"http timeout":       c.HTTPTimeout,
		"stale time":         c.StaleTime,
		"notifications poll": c.NotificationsPoll,
		"health poll":        c.HealthPoll,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if c.LocalStorageDir == "" {
		return errors.New("local storage directory is required")
	}
	return nil
}

// CalendlyEnabled reports whether the Calendly integration can be offered.
func (c *Config) CalendlyEnabled() bool {
	return strings.TrimSpace(c.CalendlyClientID) != ""
}

// Development is true for non-production environments.
func (c *Config) Development() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
