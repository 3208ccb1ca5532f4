// Package config loads sentryfwd's YAML configuration, applies
// defaults, validates the result, and supports SENTRYFW_*-prefixed
// environment overrides.
//
//	cfg, err := config.LoadConfigWithEnvOverrides("/etc/sentryfw/config.yaml")
package config
