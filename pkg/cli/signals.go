package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalHandler creates a context that is cancelled on SIGINT or
// SIGTERM. The daemon uses it to drive graceful shutdown. The stop
// function of signal.NotifyContext is discarded, so both signals stay
// captured for the life of the process: a second signal does not
// terminate it.
func SetupSignalHandler() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}
