// Sentryfwd is the host-resident firewall controller daemon.
//
// It translates declarative JSON traffic policies into kernel-enforced
// packet filters and serves an authenticated local request/reply channel
// for the sentryfwctl client:
//   - Idempotent policy application: validate, compile, diff, reconcile
//   - Last-known-good policy persistence with integrity checking
//   - Hot reload of a watched policy file with debounced coalescing
//   - Append-only audit log with optional SQLite index and retention
//
// Usage:
//
//	# Start the daemon with the default configuration path
//	sentryfwd run
//
//	# Start with an explicit configuration file
//	sentryfwd run --config /etc/sentryfw/config.yaml
//
//	# Show version information
//	sentryfwd version
package main

func main() {
	Execute()
}
