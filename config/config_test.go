// ABOUTME: Tests for configuration loading
// ABOUTME: Checks precedence between flags, environment, .env files and defaults
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LEADLAB_API_URL", "LEADLAB_CALENDLY_CLIENT_ID", "LEADLAB_LOG_LEVEL",
		"LEADLAB_STALE_TIME", "LEADLAB_HTTP_TIMEOUT", "LEADLAB_DATA_DIR",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(Overrides{EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	require.Error(t, err, "explicit env file must exist")
	assert.Nil(t, cfg)

	t.Chdir(t.TempDir())
	cfg, err = Load(Overrides{})
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, DefaultStaleTime, cfg.StaleTime)
	assert.Equal(t, time.Duration(0), cfg.HTTPTimeout)
	assert.False(t, cfg.CalendlyEnabled())
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, "leadlab.env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"LEADLAB_CALENDLY_CLIENT_ID=from-file\nLEADLAB_LOG_LEVEL=warn\n"), 0600))
	os.Unsetenv("LEADLAB_CALENDLY_CLIENT_ID")
	os.Unsetenv("LEADLAB_LOG_LEVEL")
	t.Setenv("LEADLAB_API_URL", "https://crm.example.com/api/v1/")
	t.Setenv("LEADLAB_STALE_TIME", "5s")

	cfg, err := Load(Overrides{EnvFile: envFile, LogLevel: "debug"})
	require.NoError(t, err)

	assert.Equal(t, "https://crm.example.com/api/v1", cfg.APIURL, "env wins over default, trailing slash trimmed")
	assert.Equal(t, "from-file", cfg.CalendlyClientID, ".env fills unset variables")
	assert.Equal(t, "debug", cfg.LogLevel, "flags win over .env")
	assert.Equal(t, 5*time.Second, cfg.StaleTime)
	assert.True(t, cfg.CalendlyEnabled())

	os.Unsetenv("LEADLAB_CALENDLY_CLIENT_ID")
	os.Unsetenv("LEADLAB_LOG_LEVEL")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.APIURL = "localhost:8000"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.HealthPoll = -time.Second
	assert.Error(t, cfg.Validate())
}

func TestBadDuration(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("LEADLAB_HTTP_TIMEOUT", "soon")
	_, err := Load(Overrides{})
	assert.ErrorContains(t, err, "LEADLAB_HTTP_TIMEOUT")
}
