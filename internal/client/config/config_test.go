package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080/submit", c.EndpointURL)
	assert.Equal(t, BodyModeJSON, c.BodyMode)
	assert.Equal(t, 24*time.Hour, c.DraftTTL)
	assert.Equal(t, 3*time.Second, c.OnlineCheckInterval)
	assert.Equal(t, time.Minute, c.SweepInterval)
	assert.Equal(t, 1000, c.MaxPending)
	assert.NoError(t, c.Validate())
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"fieldreport", "pending"}

	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "fieldreport.db", cfg.DatabaseDSN)
	assert.Equal(t, 3*time.Second, cfg.OnlineCheckInterval)
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempFile(t, "cfg.yaml", "endpoint_url: http://file.example/submit\nbody_mode: multipart\n")
	os.Args = []string{"fieldreport", "form", "-c", path, "-e", "http://flag.example/submit"}

	cfg := LoadConfig()

	assert.Equal(t, "http://flag.example/submit", cfg.EndpointURL)
	assert.Equal(t, BodyModeMultipart, cfg.BodyMode)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{name: "defaults", mutate: func(c *Config) {}, ok: true},
		{name: "relative url", mutate: func(c *Config) { c.EndpointURL = "/submit" }},
		{name: "bad body mode", mutate: func(c *Config) { c.BodyMode = "xml" }},
		{name: "zero ttl", mutate: func(c *Config) { c.DraftTTL = 0 }},
		{name: "negative cap", mutate: func(c *Config) { c.MaxPending = -1 }},
		{name: "unbounded queue", mutate: func(c *Config) { c.MaxPending = 0 }, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.mutate(&c)
			if tt.ok {
				assert.NoError(t, c.Validate())
			} else {
				assert.Error(t, c.Validate())
			}
		})
	}
}

func TestLoadConfig_KeepsSubSecondFileDurations(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempFile(t, "cfg.yaml",
		"request_timeout: 500ms\nonline_check_interval: 500ms\nsweep_interval: 1500ms\n")

	t.Run("file only", func(t *testing.T) {
		os.Args = []string{"fieldreport", "-c", path}
		cfg := LoadConfig()

		assert.Equal(t, 500*time.Millisecond, cfg.RequestTimeout)
		assert.Equal(t, 500*time.Millisecond, cfg.OnlineCheckInterval)
		assert.Equal(t, 1500*time.Millisecond, cfg.SweepInterval)
	})

	t.Run("explicit flag overrides one field", func(t *testing.T) {
		os.Args = []string{"fieldreport", "-c", path, "-t", "7"}
		cfg := LoadConfig()

		assert.Equal(t, 7*time.Second, cfg.RequestTimeout)
		assert.Equal(t, 500*time.Millisecond, cfg.OnlineCheckInterval)
		assert.Equal(t, 1500*time.Millisecond, cfg.SweepInterval)
	})
}
