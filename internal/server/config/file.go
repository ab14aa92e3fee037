package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dmitrijs2005/fieldreport/internal/flagx"
	"gopkg.in/yaml.v3"
)

// FileConfig is a DTO used only for decoding config files; empty values
// leave the current setting untouched.
type FileConfig struct {
	HTTPAddr       string `json:"http_addr" toml:"http_addr" yaml:"http_addr"`
	HealthAddr     string `json:"health_addr" toml:"health_addr" yaml:"health_addr"`
	DatabaseDSN    string `json:"database_dsn" toml:"database_dsn" yaml:"database_dsn"`
	S3RootUser     string `json:"s3_root_user" toml:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password" toml:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket       string `json:"s3_bucket" toml:"s3_bucket" yaml:"s3_bucket"`
	S3Region       string `json:"s3_region" toml:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint" toml:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	PlainResponse  *bool  `json:"plain_response" toml:"plain_response" yaml:"plain_response"`
	MaxUploadBytes int64  `json:"max_upload_bytes" toml:"max_upload_bytes" yaml:"max_upload_bytes"`
	LogFormat      string `json:"log_format" toml:"log_format" yaml:"log_format"`
	LogLevel       string `json:"log_level" toml:"log_level" yaml:"log_level"`
}

func (fc *FileConfig) apply(cfg *Config) {
	for dst, v := range map[*string]string{
		&cfg.HTTPAddr:       fc.HTTPAddr,
		&cfg.HealthAddr:     fc.HealthAddr,
		&cfg.DatabaseDSN:    fc.DatabaseDSN,
		&cfg.S3RootUser:     fc.S3RootUser,
		&cfg.S3RootPassword: fc.S3RootPassword,
		&cfg.S3Bucket:       fc.S3Bucket,
		&cfg.S3Region:       fc.S3Region,
		&cfg.S3BaseEndpoint: fc.S3BaseEndpoint,
		&cfg.LogFormat:      fc.LogFormat,
		&cfg.LogLevel:       fc.LogLevel,
	} {
		if v != "" {
			*dst = v
		}
	}
	if fc.PlainResponse != nil {
		cfg.PlainResponse = *fc.PlainResponse
	}
	if fc.MaxUploadBytes > 0 {
		cfg.MaxUploadBytes = fc.MaxUploadBytes
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
		err = json.Unmarshal(data, &fc)
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

// parseFile overlays Config with values from the file named by -c / -config.
// Panics on read or decode errors.
func parseFile(cfg *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	fc, err := ReadFile(path)
	if err != nil {
		panic(err)
	}
	fc.apply(cfg)
}
