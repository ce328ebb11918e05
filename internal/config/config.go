// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Nested groups are prefixed: Server.Port is read from SERVER_PORT.
type Config struct {
	Server   ServerConfig    `envconfig:"SERVER"`
	Upload   UploadConfig    `envconfig:"UPLOAD"`
	Run      RunConfig       `envconfig:"RUN"`
	Pipeline PipelineConfig  `envconfig:"PIPELINE"`
	Rate     RateLimitConfig `envconfig:"RATE_LIMIT"`
	Security SecurityConfig  `envconfig:"SECURITY"`
	Logging  LoggingConfig   `envconfig:"LOG"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	Port int    `envconfig:"PORT" default:"8080"`

	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout bounds a single handler, including the run it triggers.
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s"`
}

// UploadConfig holds workbook upload limits.
type UploadConfig struct {
	// MaxFileSize is the maximum workbook size in bytes (default: 20MB)
	MaxFileSize int64 `envconfig:"MAX_FILE_SIZE" default:"20971520"`
}

// RunConfig bounds concurrent runs and how long results are kept.
type RunConfig struct {
	MaxConcurrent int           `envconfig:"MAX_CONCURRENT" default:"4"`
	MaxWait       time.Duration `envconfig:"MAX_WAIT" default:"30s"`

	// DatasetTTL is how long an inspected sheet and its exports stay downloadable.
	DatasetTTL    time.Duration `envconfig:"DATASET_TTL" default:"30m"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`
}

// PipelineConfig holds the defaults offered to the user and the classifier tuning.
type PipelineConfig struct {
	Sheet       string   `envconfig:"SHEET" default:"School Info"`
	SkipRows    int      `envconfig:"SKIP_ROWS" default:"2"`
	Threshold   float64  `envconfig:"THRESHOLD" default:"0.5"`
	SampleSize  int      `envconfig:"SAMPLE_SIZE" default:"5"`
	PreviewRows int      `envconfig:"PREVIEW_ROWS" default:"10"`
	GroupHints  []string `envconfig:"GROUP_HINTS" default:"school type"`
	ValueHints  []string `envconfig:"VALUE_HINTS" default:"students,pending"`

	// RulesFile is an optional YAML file of categorical standardizations.
	RulesFile   string `envconfig:"RULES_FILE"`
	ExportSheet string `envconfig:"EXPORT_SHEET" default:"Student Counts"`
}

// RateLimitConfig holds per-IP request limits.
type RateLimitConfig struct {
	Enabled           bool `envconfig:"ENABLED" default:"true"`
	RequestsPerMinute int  `envconfig:"REQUESTS_PER_MINUTE" default:"120"`
	Burst             int  `envconfig:"BURST" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Forwarded-For / X-Real-IP headers are believed.
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`

	EnableCSP bool `envconfig:"ENABLE_CSP" default:"true"`

	// RequireAPIKey protects the /api routes with X-API-Key.
	RequireAPIKey bool     `envconfig:"REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `envconfig:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `envconfig:"LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `envconfig:"FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
