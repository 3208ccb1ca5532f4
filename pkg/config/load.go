package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads YAML from path, applies defaults, validates, and
// returns the result. Does not consult the environment; see
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads YAML from path, then applies
// SENTRYFW_*-prefixed environment variable overrides, which always take
// precedence over file-based configuration, then re-validates.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies SENTRYFW_SECTION_FIELD environment variable
// overrides to cfg.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("SENTRYFW_DATA_DIR"); val != "" {
		cfg.DataDir = val
	}
	if val := os.Getenv("SENTRYFW_ENGINE_BACKEND"); val != "" {
		cfg.EngineBackend = val
	}
	if val := os.Getenv("SENTRYFW_AUTO_APPLY_LKG"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.AutoApplyLKG = b
		}
	}

	if val := os.Getenv("SENTRYFW_SERVER_SOCKET_PATH"); val != "" {
		cfg.Server.SocketPath = val
	}
	if val := os.Getenv("SENTRYFW_SERVER_ADMIN_GROUP"); val != "" {
		cfg.Server.AdminGroup = val
	}
	if val := os.Getenv("SENTRYFW_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("SENTRYFW_SERVER_MAX_MESSAGE_BYTES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Server.MaxMessageBytes = i
		}
	}

	if val := os.Getenv("SENTRYFW_RATE_LIMIT_PER_IDENTITY_TOKENS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.RateLimit.PerIdentityTokens = i
		}
	}
	if val := os.Getenv("SENTRYFW_RATE_LIMIT_WINDOW_SECONDS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.RateLimit.WindowSeconds = i
		}
	}
	if val := os.Getenv("SENTRYFW_RATE_LIMIT_GLOBAL_TOKENS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.RateLimit.GlobalTokens = i
		}
	}

	if val := os.Getenv("SENTRYFW_WATCHER_DEBOUNCE_MS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Watcher.DebounceMs = i
		}
	}

	if val := os.Getenv("SENTRYFW_AUDIT_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Audit.RetentionDays = i
		}
	}
	if val := os.Getenv("SENTRYFW_AUDIT_MAX_ENTRIES"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Audit.MaxEntries = i
		}
	}
	if val := os.Getenv("SENTRYFW_AUDIT_PRUNE_SCHEDULE"); val != "" {
		cfg.Audit.PruneSchedule = val
	}
	if val := os.Getenv("SENTRYFW_AUDIT_INDEX_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Audit.IndexEnabled = b
		}
	}

	if val := os.Getenv("SENTRYFW_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("SENTRYFW_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("SENTRYFW_LOGGING_REDACT_SENSITIVE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Logging.RedactSensitive = b
		}
	}

	if val := os.Getenv("SENTRYFW_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("SENTRYFW_METRICS_LISTEN_ADDRESS"); val != "" {
		cfg.Telemetry.Metrics.ListenAddress = val
	}
}
