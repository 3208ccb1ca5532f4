// Package config loads the daemon's YAML configuration file, applies
// defaults, validates the result, and supports environment-variable
// overrides. Sections cover where the data directory and request
// socket live, rate-limit and watcher parameters, and the ambient
// logging/metrics settings. There is no process-wide config singleton;
// Config is always constructed and threaded explicitly, never read off
// a package-level global.
package config

import "time"

// Config is the root configuration for sentryfwd.
type Config struct {
	// DataDir is the system-owned directory holding lkg-policy.json and
	// audit.log.
	DataDir string `yaml:"data_dir"`

	// EngineBackend selects the filtering-platform engine: "native" (the
	// platform binding registered at build time) or "fake" (in-memory,
	// for development and tests).
	EngineBackend string `yaml:"engine_backend"`

	// AutoApplyLKG re-applies the last-known-good policy on startup.
	AutoApplyLKG bool `yaml:"auto_apply_lkg"`

	Server    ServerConfig    `yaml:"server"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Watcher   WatcherConfig   `yaml:"watcher"`
	Audit     AuditConfig     `yaml:"audit"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig configures the administrative request/reply channel.
type ServerConfig struct {
	// SocketPath is the Unix domain socket the server listens on.
	SocketPath string `yaml:"socket_path"`

	// AdminGroup is the OS group whose members are admitted: the group
	// must be the primary or a supplementary group of the caller's uid.
	// The system account (uid 0) is admitted regardless.
	AdminGroup string `yaml:"admin_group"`

	// ReadTimeout bounds how long the server waits for a length prefix
	// and body before aborting a slow peer.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// MaxMessageBytes bounds one framed request/response body.
	MaxMessageBytes int `yaml:"max_message_bytes"`

	// ProtocolVersionCurrent and ProtocolVersionMinSupported bound the
	// protocol versions the server accepts.
	ProtocolVersionCurrent      int `yaml:"protocol_version_current"`
	ProtocolVersionMinSupported int `yaml:"protocol_version_min_supported"`
}

// RateLimitConfig configures the per-identity and global request
// limiters.
type RateLimitConfig struct {
	// PerIdentityTokens is M: the number of requests one identity may
	// make per window.
	PerIdentityTokens int `yaml:"per_identity_tokens"`

	// WindowSeconds is W: the bucket fully refills every W seconds
	// (hard cap per window, not a continuous trickle).
	WindowSeconds int `yaml:"window_seconds"`

	// GlobalTokens is G, G >= PerIdentityTokens.
	GlobalTokens int `yaml:"global_tokens"`
}

// WatcherConfig configures the policy file watcher.
type WatcherConfig struct {
	// DebounceMs is the coalescing window in milliseconds; Validate
	// rejects values outside [100, 30000].
	DebounceMs int `yaml:"debounce_ms"`
}

// AuditConfig configures the audit log and its optional SQLite index
// and retention schedule.
type AuditConfig struct {
	// IndexEnabled turns on the pkg/audit/index secondary index.
	IndexEnabled bool `yaml:"index_enabled"`

	// RetentionDays is the age limit for pruning, in days. ApplyDefaults
	// replaces 0 with 90, so 0 does not disable age-based pruning.
	RetentionDays int `yaml:"retention_days"`

	// MaxEntries is 0 to disable count-based pruning.
	MaxEntries int64 `yaml:"max_entries"`

	// PruneSchedule is a standard 5-field cron expression. ApplyDefaults
	// replaces an empty value with "0 3 * * *", so empty does not disable
	// scheduled pruning.
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig groups the ambient logging and metrics settings.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures pkg/telemetry/logging.
type LoggingConfig struct {
	Level           string `yaml:"level"`
	Format          string `yaml:"format"`
	RedactSensitive bool   `yaml:"redact_sensitive"`
}

// MetricsConfig configures the /metrics listener.
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddress string `yaml:"listen_address"`
}
