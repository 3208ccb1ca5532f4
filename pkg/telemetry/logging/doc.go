// Package logging wraps log/slog with the format/level selection,
// sensitive-field redaction, and context propagation shared by the
// daemon and CLI's subsystems.
//
// Usage:
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	sub := logger.With("component", "reconcile")
//	ctx = logging.IntoContext(ctx, sub)
//	...
//	logging.FromContext(ctx).Info("applied policy", "filters_created", 3)
package logging
