// Package config loads the settings of a single pipeline run from defaults,
// an optional YAML file, ETL_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"regexp"
)

const (
	DefaultTable     = "cleaned_data"
	DefaultBatchSize = 500
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultFile      = "cleanetl.yaml"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config holds all settings for one run.
type Config struct {
	FilePath  string   `koanf:"file_path"`
	DBURL     string   `koanf:"db_url"`
	Table     string   `koanf:"table"`
	BatchSize int      `koanf:"batch_size"`
	DryRun    bool     `koanf:"dry_run"`
	LogLevel  string   `koanf:"log_level"`
	LogFormat string   `koanf:"log_format"`
	LogFile   string   `koanf:"log_file"`
	S3        S3Config `koanf:"s3"`
}

// S3Config is used when file_path is an s3:// location.
type S3Config struct {
	Region          string `koanf:"region"`
	Endpoint        string `koanf:"endpoint"`
	Profile         string `koanf:"profile"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
	PathStyle       bool   `koanf:"path_style"`
}

func (c *Config) Validate() error {
	if c.FilePath == "" {
		return fmt.Errorf("%w: file_path is required", ErrInvalidConfig)
	}
	if c.DBURL == "" && !c.DryRun {
		return fmt.Errorf("%w: db_url is required", ErrInvalidConfig)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch_size must be positive, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if !tableName.MatchString(c.Table) {
		return fmt.Errorf("%w: table %q is not a valid identifier", ErrInvalidConfig, c.Table)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
