package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/toxidity-18/Marketing-Data-Engine/domain/schema"
	"github.com/toxidity-18/Marketing-Data-Engine/internal"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Ingestion IngestionConfig
	Pipeline  PipelineConfig
	Reports   ReportConfig
	LogLevel  internal.LogLevel
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// StorageConfig bounds the in-memory table store
type StorageConfig struct {
	Capacity int
	TTL      time.Duration
}

// IngestionConfig limits uploads and batch fan-out
type IngestionConfig struct {
	MaxUploadMB int
	Concurrency int
}

// PipelineConfig holds normalization defaults
type PipelineConfig struct {
	TargetCurrency string
}

// ReportConfig holds report output settings
type ReportConfig struct {
	Dir string
}

// MaxUploadBytes converts the upload limit to bytes
func (c IngestionConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server:  ServerConfig{Port: getEnvOrDefault("PORT", "5000")},
		Reports: ReportConfig{Dir: getEnvOrDefault("REPORT_DIR", "./data/reports")},
	}

	level, ok := internal.ParseLogLevel(getEnvOrDefault("LOG_LEVEL", "INFO"))
	if !ok {
		return nil, errors.ConfigInvalid(fmt.Sprintf("LOG_LEVEL %q is not one of ERROR, WARN, INFO, DEBUG, TRACE", os.Getenv("LOG_LEVEL")))
	}
	config.LogLevel = level

	currency, err := schema.ValidateCurrency(getEnvOrDefault("TARGET_CURRENCY", schema.DefaultCurrency))
	if err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, err)
	}
	config.Pipeline.TargetCurrency = currency

	if config.Storage.Capacity, err = getEnvInt("STORE_CAPACITY", 64); err != nil {
		return nil, err
	}
	if config.Storage.TTL, err = getEnvDuration("STORE_TTL", 2*time.Hour); err != nil {
		return nil, err
	}
	if config.Ingestion.MaxUploadMB, err = getEnvInt("MAX_UPLOAD_MB", 50); err != nil {
		return nil, err
	}
	if config.Ingestion.Concurrency, err = getEnvInt("INGEST_CONCURRENCY", 4); err != nil {
		return nil, err
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	if config.Storage.Capacity <= 0 {
		return errors.ConfigInvalid("STORE_CAPACITY must be positive")
	}
	if config.Storage.TTL < 0 {
		return errors.ConfigInvalid("STORE_TTL cannot be negative")
	}
	if config.Ingestion.MaxUploadMB <= 0 {
		return errors.ConfigInvalid("MAX_UPLOAD_MB must be positive")
	}
	if config.Ingestion.Concurrency <= 0 {
		return errors.ConfigInvalid("INGEST_CONCURRENCY must be positive")
	}
	if config.Reports.Dir == "" {
		return errors.ConfigInvalid("REPORT_DIR is required")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s must be an integer, got %q", key, value))
	}
	return intValue, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s must be a duration such as 30m or 2h, got %q", key, value))
	}
	return duration, nil
}
