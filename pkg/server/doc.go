// Package server implements the request server: a
// privileged, local-only Unix-domain-socket endpoint that authenticates
// and rate-limits each caller, then dispatches one framed request/reply
// exchange per connection to the reconciliation engine, LKG store, file
// watcher, and audit log.
//
// Lifecycle: shutdown channel, sync.Once, running flag under a mutex,
// draining in-flight connections within a grace window.
package server
