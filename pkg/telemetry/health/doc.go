// Package health provides liveness and readiness probes for the
// daemon's loopback telemetry listener. Liveness (/healthz) only
// confirms the process serves HTTP; readiness (/readyz) runs every
// registered component probe — engine reachability, data directory
// writability — with a per-check timeout and degrades to 503 when any
// fails.
package health
