package main

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/hearthguard/sentryfw/pkg/cli"
	"github.com/hearthguard/sentryfw/pkg/clientproto"
)

// roundTrip performs one request/reply exchange with the daemon. A
// connection failure maps to ExitUnavailable; a reply with ok=false
// maps to the exit code derived from its error message. When the
// global --json flag is set, the raw reply is printed before any error
// handling so scripts always see the full response.
func roundTrip(verb string, req clientproto.Request) (clientproto.Response, error) {
	req.ProtocolVersion = clientproto.CurrentVersion

	timeout := time.Duration(dialTimeout) * time.Second
	conn, err := net.DialTimeout("unix", socketPath, timeout)
	if err != nil {
		return clientproto.Response{}, &cli.CommandError{
			Command: verb,
			Code:    cli.ExitUnavailable,
			Err:     fmt.Errorf("cannot reach sentryfwd at %s (is the service running?): %w", socketPath, err),
		}
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(timeout))

	if err := clientproto.WriteRequest(conn, req); err != nil {
		return clientproto.Response{}, cli.NewCommandError(verb, err)
	}
	resp, err := clientproto.ReadResponse(conn, clientproto.MaxMessageBytes)
	if err != nil {
		return clientproto.Response{}, cli.NewCommandError(verb, err)
	}

	if jsonOutput {
		cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, resp)
	}
	if !resp.Ok {
		return resp, cli.NewCommandError(verb, fmt.Errorf("%s", resp.Error))
	}
	return resp, nil
}
