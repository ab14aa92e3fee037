package config

import (
	"fmt"
	"net/url"
	"time"
)

// Request body modes understood by the transport.
const (
	BodyModeJSON      = "json"
	BodyModeMultipart = "multipart"
)

// Config holds runtime settings for the fieldreport CLI.
//
// Units: all intervals are time.Duration. MaxPending 0 means unbounded.
type Config struct {
	EndpointURL    string
	BodyMode       string
	RequestTimeout time.Duration

	DatabaseDSN string
	DraftTTL    time.Duration

	SweepInterval       time.Duration
	OnlineCheckInterval time.Duration
	HealthCheckAddr     string

	MaxPending  int
	WarnPending int

	LogFormat  string
	LogLevel   string
	SchemaFile string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.EndpointURL = "http://127.0.0.1:8080/submit"
	c.BodyMode = BodyModeJSON
	c.RequestTimeout = 30 * time.Second
	c.DatabaseDSN = "fieldreport.db"
	c.DraftTTL = 24 * time.Hour
	c.SweepInterval = time.Minute
	c.OnlineCheckInterval = 3 * time.Second
	c.HealthCheckAddr = ""
	c.MaxPending = 1000
	c.WarnPending = 100
	c.LogFormat = "text"
	c.LogLevel = "info"
	c.SchemaFile = ""
}

// Validate reports settings that cannot work at all.
func (c *Config) Validate() error {
	u, err := url.Parse(c.EndpointURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid endpoint url %q", c.EndpointURL)
	}
	if c.BodyMode != BodyModeJSON && c.BodyMode != BodyModeMultipart {
		return fmt.Errorf("invalid body mode %q", c.BodyMode)
	}
	if c.DraftTTL <= 0 {
		return fmt.Errorf("draft ttl must be positive, got %s", c.DraftTTL)
	}
	if c.MaxPending < 0 || c.WarnPending < 0 {
		return fmt.Errorf("pending limits must not be negative")
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the config file (if present) and command-line flags (if present). Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}
