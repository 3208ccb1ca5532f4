package cli

import (
	"errors"
	"testing"
)

func TestExitCodeForStableSubstrings(t *testing.T) {
	cases := []struct {
		message string
		want    int
	}{
		{"", ExitOK},
		{"Access denied: uid 1000 is not a member of \"sentryfw-admins\"", ExitAccessDenied},
		{"Rate limited: request rate exceeds the configured limit", ExitRateLimited},
		{"Protocol version mismatch: client requested 99, server supports [1, 1]; update the client", ExitProtocol},
		{"message length 65537 exceeds maximum of 65536 bytes: message too large", ExitProtocol},
		{"reading request timed out", ExitProtocol},
		{"lkg record does not exist", ExitNotFound},
		{"policyPath must not be empty", ExitInvalidArgument},
		{`policyPath must not contain ".." segments (path traversal)`, ExitInvalidArgument},
		{"something unexpected happened", ExitFailure},
	}
	for _, tc := range cases {
		if got := ExitCodeFor(tc.message); got != tc.want {
			t.Errorf("ExitCodeFor(%q) = %d, want %d", tc.message, got, tc.want)
		}
	}
}

func TestNewCommandErrorDerivesCode(t *testing.T) {
	err := NewCommandError("apply", errors.New("Rate limited: slow down"))
	if err.Code != ExitRateLimited {
		t.Fatalf("got code %d, want %d", err.Code, ExitRateLimited)
	}
	if err.Error() != "apply: Rate limited: slow down" {
		t.Fatalf("got %q", err.Error())
	}
}

func TestCommandErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewCommandError("rollback", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected Unwrap to expose the cause")
	}
}
