package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dmitrijs2005/fieldreport/internal/flagx"
	"github.com/dmitrijs2005/fieldreport/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is a DTO used exclusively for decoding config files.
// Zero values mean "not set"; pointer fields distinguish an explicit 0.
type FileConfig struct {
	EndpointURL         string          `json:"endpoint_url" toml:"endpoint_url" yaml:"endpoint_url"`
	BodyMode            string          `json:"body_mode" toml:"body_mode" yaml:"body_mode"`
	RequestTimeout      timex.Duration  `json:"request_timeout" toml:"request_timeout" yaml:"request_timeout"`
	DatabaseDSN         string          `json:"database_dsn" toml:"database_dsn" yaml:"database_dsn"`
	DraftTTL            timex.Duration  `json:"draft_ttl" toml:"draft_ttl" yaml:"draft_ttl"`
	SweepInterval       *timex.Duration `json:"sweep_interval" toml:"sweep_interval" yaml:"sweep_interval"`
	OnlineCheckInterval timex.Duration  `json:"online_check_interval" toml:"online_check_interval" yaml:"online_check_interval"`
	HealthCheckAddr     string          `json:"health_check_addr" toml:"health_check_addr" yaml:"health_check_addr"`
	MaxPending          *int            `json:"max_pending" toml:"max_pending" yaml:"max_pending"`
	WarnPending         *int            `json:"warn_pending" toml:"warn_pending" yaml:"warn_pending"`
	LogFormat           string          `json:"log_format" toml:"log_format" yaml:"log_format"`
	LogLevel            string          `json:"log_level" toml:"log_level" yaml:"log_level"`
	SchemaFile          string          `json:"schema_file" toml:"schema_file" yaml:"schema_file"`
}

// Apply copies every field set in fc into cfg.
func (fc *FileConfig) Apply(cfg *Config) {
	setString(&cfg.EndpointURL, fc.EndpointURL)
	setString(&cfg.BodyMode, fc.BodyMode)
	setString(&cfg.DatabaseDSN, fc.DatabaseDSN)
	setString(&cfg.HealthCheckAddr, fc.HealthCheckAddr)
	setString(&cfg.LogFormat, fc.LogFormat)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.SchemaFile, fc.SchemaFile)

	if fc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.DraftTTL.Duration > 0 {
		cfg.DraftTTL = fc.DraftTTL.Duration
	}
	if fc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = fc.OnlineCheckInterval.Duration
	}
	if fc.SweepInterval != nil {
		cfg.SweepInterval = fc.SweepInterval.Duration
	}
	if fc.MaxPending != nil {
		cfg.MaxPending = *fc.MaxPending
	}
	if fc.WarnPending != nil {
		cfg.WarnPending = *fc.WarnPending
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// ReadFile decodes the config file at path, choosing the format by extension.
func ReadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fc FileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		err = dec.Decode(&fc)
	case ".toml":
		_, err = toml.Decode(string(data), &fc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		return nil, fmt.Errorf("unsupported config file extension %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &fc, nil
}

// Path returns the config file named on the command line, or "".
func Path() string {
	return flagx.ConfigFileFlag()
}

// parseFile overlays Config with values loaded from the config file.
//
// The path comes from the -c / -config flags; without one nothing is loaded.
// Panics on read or decode errors (caller should recover if desired).
//
// Intended usage is: defaults -> parseFile -> parseFlags, where later stages
// override earlier ones.
func parseFile(cfg *Config) {
	path := Path()
	if path == "" {
		return
	}

	fc, err := ReadFile(path)
	if err != nil {
		panic(err)
	}
	fc.Apply(cfg)
}
