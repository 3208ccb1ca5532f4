package config

import "time"

// Default values for configuration fields.
const (
	DefaultDataDir       = "/var/lib/sentryfw"
	DefaultEngineBackend = "native"

	DefaultSocketPath                  = "/var/run/sentryfw/sentryfw.sock"
	DefaultAdminGroup                  = "sentryfw-admins"
	DefaultReadTimeout                 = 10 * time.Second
	DefaultMaxMessageBytes             = 65536 // 64 KiB
	DefaultProtocolVersionCurrent      = 1
	DefaultProtocolVersionMinSupported = 1

	DefaultRateLimitPerIdentityTokens = 60
	DefaultRateLimitWindowSeconds     = 60
	DefaultRateLimitGlobalTokens      = 240

	DefaultWatcherDebounceMs = 1000
	MinWatcherDebounceMs     = 100
	MaxWatcherDebounceMs     = 30000

	DefaultAuditRetentionDays = 90
	DefaultAuditPruneSchedule = "0 3 * * *"

	DefaultLoggingLevel  = "info"
	DefaultLoggingFormat = "json"

	DefaultMetricsListenAddress = "127.0.0.1:9090"
)

// ApplyDefaults fills unset fields with their defaults. Only
// zero-valued fields are touched, so a partially-specified YAML file is
// merged with defaults rather than replaced by them.
func ApplyDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir
	}
	if cfg.EngineBackend == "" {
		cfg.EngineBackend = DefaultEngineBackend
	}

	if cfg.Server.SocketPath == "" {
		cfg.Server.SocketPath = DefaultSocketPath
	}
	if cfg.Server.AdminGroup == "" {
		cfg.Server.AdminGroup = DefaultAdminGroup
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.MaxMessageBytes == 0 {
		cfg.Server.MaxMessageBytes = DefaultMaxMessageBytes
	}
	if cfg.Server.ProtocolVersionCurrent == 0 {
		cfg.Server.ProtocolVersionCurrent = DefaultProtocolVersionCurrent
	}
	if cfg.Server.ProtocolVersionMinSupported == 0 {
		cfg.Server.ProtocolVersionMinSupported = DefaultProtocolVersionMinSupported
	}

	if cfg.RateLimit.PerIdentityTokens == 0 {
		cfg.RateLimit.PerIdentityTokens = DefaultRateLimitPerIdentityTokens
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = DefaultRateLimitWindowSeconds
	}
	if cfg.RateLimit.GlobalTokens == 0 {
		cfg.RateLimit.GlobalTokens = DefaultRateLimitGlobalTokens
	}

	if cfg.Watcher.DebounceMs == 0 {
		cfg.Watcher.DebounceMs = DefaultWatcherDebounceMs
	}

	if cfg.Audit.RetentionDays == 0 {
		cfg.Audit.RetentionDays = DefaultAuditRetentionDays
	}
	if cfg.Audit.PruneSchedule == "" {
		cfg.Audit.PruneSchedule = DefaultAuditPruneSchedule
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
}
