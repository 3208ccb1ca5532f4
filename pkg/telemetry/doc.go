// Package telemetry groups the controller's ambient observability:
// structured logging (telemetry/logging), Prometheus metrics
// (telemetry/metrics) and health endpoints (telemetry/health). All of
// it is served on a loopback-only listener, never on the request
// socket.
package telemetry
