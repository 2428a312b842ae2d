package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Matt0472/giftspire-client/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, config.FeedModeSynced, cfg.Feed.Mode)
	assert.Equal(t, "private-App.Models.User.", cfg.Realtime.ChannelPrefix)
	assert.Equal(t, "search.completed", cfg.Realtime.Event)
}

func TestConfig_AuthEndpoint(t *testing.T) {
	t.Run("derived from api base url", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.API.BaseURL = "http://api.example.com/"

		assert.Equal(t, "http://api.example.com/broadcasting/auth", cfg.AuthEndpoint())
	})

	t.Run("explicit override wins", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Realtime.AuthEndpoint = "http://push.example.com/auth"

		assert.Equal(t, "http://push.example.com/auth", cfg.AuthEndpoint())
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty api base url", func(c *config.Config) { c.API.BaseURL = "" }},
		{"zero api timeout", func(c *config.Config) { c.API.Timeout = 0 }},
		{"bad scheme", func(c *config.Config) { c.Realtime.Scheme = "http" }},
		{"empty host", func(c *config.Config) { c.Realtime.Host = "" }},
		{"bad port", func(c *config.Config) { c.Realtime.Port = 0 }},
		{"empty app key", func(c *config.Config) { c.Realtime.AppKey = "" }},
		{"bad feed mode", func(c *config.Config) { c.Feed.Mode = "hybrid" }},
		{"local mode without cap", func(c *config.Config) { c.Feed.Mode = config.FeedModeLocal; c.Feed.LocalCap = 0 }},
		{"bad log level", func(c *config.Config) { c.Log.Level = "verbose" }},
		{"bad log format", func(c *config.Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(cfg)

			assert.ErrorIs(t, cfg.Validate(), config.ErrConfigInvalid)
		})
	}
}

func TestLoadFromPath(t *testing.T) {
	t.Run("file values override defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: https://gifts.example.com
realtime:
  scheme: wss
  host: push.example.com
  port: 443
feed:
  mode: local
  local_cap: 25
log:
  level: debug
  format: text
`), 0o600))

		cfg, err := config.LoadFromPath(path)

		require.NoError(t, err)
		assert.Equal(t, "https://gifts.example.com", cfg.API.BaseURL)
		assert.Equal(t, "wss", cfg.Realtime.Scheme)
		assert.Equal(t, config.FeedModeLocal, cfg.Feed.Mode)
		assert.Equal(t, 25, cfg.Feed.LocalCap)
		assert.Equal(t, config.DefaultAPITimeout, cfg.API.Timeout, "unset values keep defaults")
		assert.True(t, cfg.IsDevelopment())
	})

	t.Run("env overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("api:\n  base_url: https://file.example.com\n"), 0o600))

		t.Setenv("GIFTSPIRE_API_BASE_URL", "https://env.example.com")
		t.Setenv("GIFTSPIRE_WS_PORT", "6001")
		t.Setenv("GIFTSPIRE_API_TIMEOUT", "5s")

		cfg, err := config.LoadFromPath(path)

		require.NoError(t, err)
		assert.Equal(t, "https://env.example.com", cfg.API.BaseURL)
		assert.Equal(t, 6001, cfg.Realtime.Port)
		assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	})

	t.Run("explicit missing path fails", func(t *testing.T) {
		_, err := config.LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))

		assert.Error(t, err)
	})

	t.Run("invalid env duration fails", func(t *testing.T) {
		t.Setenv("GIFTSPIRE_API_TIMEOUT", "fast")

		_, err := config.LoadFromPath("")

		assert.ErrorIs(t, err, config.ErrInvalidDuration)
	})
}
