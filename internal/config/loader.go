package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration and panics on error.
// Use this only in main() where early termination is desired.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// invalidSheetChars cannot appear in an Excel sheet name.
const invalidSheetChars = `[]:*?/\`

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "SERVER_REQUEST_TIMEOUT must be positive")
	}

	// Upload
	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, "UPLOAD_MAX_FILE_SIZE must be positive")
	}

	// Run
	if c.Run.MaxConcurrent <= 0 {
		errs = append(errs, "RUN_MAX_CONCURRENT must be positive")
	}
	if c.Run.MaxWait <= 0 {
		errs = append(errs, "RUN_MAX_WAIT must be positive")
	}
	if c.Run.DatasetTTL <= 0 {
		errs = append(errs, "RUN_DATASET_TTL must be positive")
	}
	if c.Run.SweepInterval <= 0 {
		errs = append(errs, "RUN_SWEEP_INTERVAL must be positive")
	}

	// Pipeline
	if strings.TrimSpace(c.Pipeline.Sheet) == "" {
		errs = append(errs, "PIPELINE_SHEET must not be empty")
	}
	if c.Pipeline.SkipRows < 0 || c.Pipeline.SkipRows > 10 {
		errs = append(errs, fmt.Sprintf("PIPELINE_SKIP_ROWS (%d) must be 0-10", c.Pipeline.SkipRows))
	}
	if c.Pipeline.Threshold <= 0 || c.Pipeline.Threshold >= 1 {
		errs = append(errs, fmt.Sprintf("PIPELINE_THRESHOLD (%g) must be between 0 and 1", c.Pipeline.Threshold))
	}
	if c.Pipeline.SampleSize <= 0 {
		errs = append(errs, "PIPELINE_SAMPLE_SIZE must be positive")
	}
	if c.Pipeline.PreviewRows <= 0 {
		errs = append(errs, "PIPELINE_PREVIEW_ROWS must be positive")
	}
	if name := c.Pipeline.ExportSheet; name == "" || len([]rune(name)) > 31 || strings.ContainsAny(name, invalidSheetChars) {
		errs = append(errs, fmt.Sprintf("PIPELINE_EXPORT_SHEET (%q) must be 1-31 characters without %s", name, invalidSheetChars))
	}

	// Rate limit
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.Burst <= 0 {
		errs = append(errs, "RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}

	// Security
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "SECURITY_REQUIRE_API_KEY is true but SECURITY_API_KEYS is empty; configure at least one API key or disable auth")
	}
	for _, entry := range c.Security.TrustedProxies {
		entry = strings.TrimSpace(entry)
		if _, _, err := net.ParseCIDR(entry); err != nil && net.ParseIP(entry) == nil {
			errs = append(errs, fmt.Sprintf("SECURITY_TRUSTED_PROXIES entry %q is not a CIDR or IP", entry))
		}
	}

	// Logging
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// API keys are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Addr: %q, RequestTimeout: %s}, ", c.Server.Addr(), c.Server.RequestTimeout))
	b.WriteString(fmt.Sprintf("Upload: {MaxFileSize: %d}, ", c.Upload.MaxFileSize))
	b.WriteString(fmt.Sprintf("Run: {MaxConcurrent: %d, MaxWait: %s, DatasetTTL: %s}, ",
		c.Run.MaxConcurrent, c.Run.MaxWait, c.Run.DatasetTTL))
	b.WriteString(fmt.Sprintf("Pipeline: {Sheet: %q, SkipRows: %d, Threshold: %g, RulesFile: %q}, ",
		c.Pipeline.Sheet, c.Pipeline.SkipRows, c.Pipeline.Threshold, c.Pipeline.RulesFile))
	b.WriteString(fmt.Sprintf("Rate: {Enabled: %v, RequestsPerMinute: %d, Burst: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute, c.Rate.Burst))
	b.WriteString(fmt.Sprintf("Security: {RequireAPIKey: %v, APIKeys: [%d MASKED]}, ",
		c.Security.RequireAPIKey, len(c.Security.APIKeys)))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
