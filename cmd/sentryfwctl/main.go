// Sentryfwctl is the command-line client for the sentryfwd firewall
// controller daemon.
//
// It speaks the daemon's length-prefixed JSON protocol over the local
// Unix domain socket; every invocation is one request/reply exchange.
//
// Usage:
//
//	# Check the daemon is up
//	sentryfwctl status
//
//	# Validate a policy file without applying it
//	sentryfwctl validate /etc/sentryfw/policy.json
//
//	# Apply a policy file
//	sentryfwctl apply /etc/sentryfw/policy.json
//
//	# Remove every installed filter
//	sentryfwctl rollback
//
//	# Watch a policy file for changes
//	sentryfwctl watch set /etc/sentryfw/policy.json
//
//	# Tail the audit log
//	sentryfwctl logs --tail 20
package main

func main() {
	Execute()
}
