package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvAPIURL, "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, 2, cfg.API.Retries)
	assert.Equal(t, time.Second, cfg.API.RetryDelay)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Polling.Interval)
	assert.Equal(t, 60*time.Second, cfg.Voice.MaxDuration)
	assert.Equal(t, 1000, cfg.Voice.MinBytes)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.MkdirAll(filepath.Join(home, appDir), 0755))

	yml := `
api:
  base_url: http://api.internal:9000
  retries: 4
  retry_delay: 250ms
polling:
  interval: 1s
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(home, appDir, "config.yaml"), []byte(yml), 0644))
	t.Setenv(EnvAPIURL, "https://claims.example.com")
	t.Setenv(EnvLogLevel, "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://claims.example.com", cfg.API.BaseURL)
	assert.Equal(t, 4, cfg.API.Retries)
	assert.Equal(t, 250*time.Millisecond, cfg.API.RetryDelay)
	assert.Equal(t, time.Second, cfg.Polling.Interval)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched sections keep their defaults
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvAPIURL, "")
	require.NoError(t, os.MkdirAll(filepath.Join(home, appDir), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(home, appDir, "config.yaml"), []byte("api:\n  retries: -1\n"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.retries")
}

func TestValidateBaseURL(t *testing.T) {
	cfg := Default()
	cfg.API.BaseURL = "localhost"
	assert.Error(t, cfg.Validate())

	cfg.API.BaseURL = "http://localhost:8000"
	assert.NoError(t, cfg.Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvAPIURL, "")

	cfg := Default()
	cfg.API.BaseURL = "http://10.0.0.5:8000"
	cfg.Polling.Interval = 2 * time.Second
	require.NoError(t, cfg.Save())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:8000", loaded.API.BaseURL)
	assert.Equal(t, 2*time.Second, loaded.Polling.Interval)
}
