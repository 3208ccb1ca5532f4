package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FieldError is a validation error for a single configuration field.
type FieldError struct {
	Field   string
	Message string
}

// Error implements error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every FieldError found in one Validate pass.
type ValidationError struct {
	Errors []FieldError
}

// Error implements error.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate checks cfg against every field constraint the daemon relies
// on, collecting all failures rather than stopping at the first.
func Validate(cfg *Config) error {
	var errs []FieldError

	if cfg.DataDir == "" {
		errs = append(errs, FieldError{"data_dir", "must not be empty"})
	} else if !filepath.IsAbs(cfg.DataDir) {
		errs = append(errs, FieldError{"data_dir", "must be an absolute path"})
	}

	switch cfg.EngineBackend {
	case "native", "fake":
	default:
		errs = append(errs, FieldError{"engine_backend", "must be one of native, fake"})
	}

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateRateLimit(&cfg.RateLimit)...)
	errs = append(errs, validateWatcher(&cfg.Watcher)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError
	if cfg.SocketPath == "" {
		errs = append(errs, FieldError{"server.socket_path", "must not be empty"})
	} else if !filepath.IsAbs(cfg.SocketPath) {
		errs = append(errs, FieldError{"server.socket_path", "must be an absolute path"})
	}
	if cfg.AdminGroup == "" {
		errs = append(errs, FieldError{"server.admin_group", "must not be empty"})
	}
	if cfg.ReadTimeout <= 0 {
		errs = append(errs, FieldError{"server.read_timeout", "must be positive"})
	}
	if cfg.MaxMessageBytes <= 0 {
		errs = append(errs, FieldError{"server.max_message_bytes", "must be positive"})
	}
	if cfg.ProtocolVersionCurrent <= 0 {
		errs = append(errs, FieldError{"server.protocol_version_current", "must be positive"})
	}
	if cfg.ProtocolVersionMinSupported <= 0 {
		errs = append(errs, FieldError{"server.protocol_version_min_supported", "must be positive"})
	}
	if cfg.ProtocolVersionMinSupported > cfg.ProtocolVersionCurrent {
		errs = append(errs, FieldError{"server.protocol_version_min_supported", "must be <= protocol_version_current"})
	}
	return errs
}

func validateRateLimit(cfg *RateLimitConfig) []FieldError {
	var errs []FieldError
	if cfg.PerIdentityTokens <= 0 {
		errs = append(errs, FieldError{"rate_limit.per_identity_tokens", "must be positive"})
	}
	if cfg.WindowSeconds <= 0 {
		errs = append(errs, FieldError{"rate_limit.window_seconds", "must be positive"})
	}
	if cfg.GlobalTokens <= 0 {
		errs = append(errs, FieldError{"rate_limit.global_tokens", "must be positive"})
	}
	if cfg.GlobalTokens < cfg.PerIdentityTokens {
		errs = append(errs, FieldError{"rate_limit.global_tokens", "must be >= rate_limit.per_identity_tokens"})
	}
	return errs
}

func validateWatcher(cfg *WatcherConfig) []FieldError {
	var errs []FieldError
	if cfg.DebounceMs < MinWatcherDebounceMs || cfg.DebounceMs > MaxWatcherDebounceMs {
		errs = append(errs, FieldError{"watcher.debounce_ms", fmt.Sprintf("must be in [%d, %d]", MinWatcherDebounceMs, MaxWatcherDebounceMs)})
	}
	return errs
}

func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError
	if cfg.RetentionDays < 0 {
		errs = append(errs, FieldError{"audit.retention_days", "must not be negative"})
	}
	if cfg.MaxEntries < 0 {
		errs = append(errs, FieldError{"audit.max_entries", "must not be negative"})
	}
	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{"telemetry.logging.level", "must be one of debug, info, warn, error"})
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{"telemetry.logging.format", "must be one of json, text"})
	}
	if cfg.Metrics.Enabled && cfg.Metrics.ListenAddress == "" {
		errs = append(errs, FieldError{"telemetry.metrics.listen_address", "must not be empty when metrics are enabled"})
	}
	return errs
}
