package cli

import (
	"fmt"
	"strings"
)

// Exit codes sentryfwctl reports to the shell. Stable: scripts may
// depend on them.
const (
	ExitOK              = 0
	ExitFailure         = 1 // unclassified server-side failure
	ExitInvalidArgument = 2
	ExitNotFound        = 3
	ExitAccessDenied    = 4
	ExitUnavailable     = 5 // daemon not reachable
	ExitRateLimited     = 6
	ExitProtocol        = 7 // protocol version / framing mismatch
)

// CommandError is a failed verb plus the underlying cause and the exit
// code the process should terminate with.
type CommandError struct {
	Command string
	Code    int
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// NewCommandError wraps err for the named verb, deriving the exit code
// from the error text.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{Command: command, Code: ExitCodeFor(err.Error()), Err: err}
}

// ExitCodeFor maps a daemon error message onto a stable exit code. The
// daemon's well-known failure messages carry stable substrings
// ("Access denied", "Rate limited", "Protocol version mismatch",
// "too large", "timed out"), which is the only contract available on
// the wire: responses carry an error string, not a code.
func ExitCodeFor(message string) int {
	switch {
	case message == "":
		return ExitOK
	case strings.Contains(message, "Access denied"):
		return ExitAccessDenied
	case strings.Contains(message, "Rate limited"):
		return ExitRateLimited
	case strings.Contains(message, "Protocol version mismatch"),
		strings.Contains(message, "too large"),
		strings.Contains(message, "timed out"):
		return ExitProtocol
	case strings.Contains(message, "does not exist"),
		strings.Contains(message, "not found"):
		return ExitNotFound
	case strings.Contains(message, "must not"),
		strings.Contains(message, "must be"),
		strings.Contains(message, "invalid"),
		strings.Contains(message, "traversal"),
		strings.Contains(message, "validation"):
		return ExitInvalidArgument
	default:
		return ExitFailure
	}
}
