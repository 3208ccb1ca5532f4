// Package metrics provides Prometheus metrics for the controller's
// state-changing operations: applies, reconciliation diffs, rate-limit
// rejections, and watcher reloads. Served on a loopback-only /metrics
// endpoint separate from the administrative request socket.
package metrics
