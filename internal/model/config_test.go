package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Feed.MaxActivities)
	assert.Equal(t, 30*time.Second, cfg.Feed.PollInterval)
	assert.Equal(t, 15*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "fi", cfg.UI.Lang)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
feed:
  max_activities: 25
  poll_interval: 10s
ui:
  lang: en
`), 0o600))
	t.Setenv("DOCFLOW_AUTH_JWT_SECRET", "s3cret")
	t.Setenv("DOCFLOW_SERVER_DEV_MODE", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Feed.MaxActivities)
	assert.Equal(t, 10*time.Second, cfg.Feed.PollInterval)
	assert.Equal(t, "en", cfg.UI.Lang)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.True(t, cfg.Server.DevMode)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	cfg.Feed.MaxActivities = 10
	cfg.Auth.JWTSecret = "never-written"

	require.NoError(t, SaveConfig(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "never-written")

	back, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 10, back.Feed.MaxActivities)
}
