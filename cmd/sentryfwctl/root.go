package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hearthguard/sentryfw/pkg/cli"
)

var (
	socketPath  string
	jsonOutput  bool
	dialTimeout int
)

var rootCmd = &cobra.Command{
	Use:   "sentryfwctl",
	Short: "sentryfw firewall controller client",
	Long: `Sentryfwctl administers the sentryfwd daemon over its local request
socket: validate and apply traffic policies, roll back installed
filters, inspect the last-known-good record, control the policy file
watcher, and read the audit log.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command, exiting with the stable code carried
// by a CommandError when one surfaces.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var cmdErr *cli.CommandError
		if errors.As(err, &cmdErr) {
			os.Exit(cmdErr.Code)
		}
		os.Exit(cli.ExitFailure)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "/var/run/sentryfw/sentryfw.sock", "daemon socket path")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print the raw JSON reply")
	rootCmd.PersistentFlags().IntVar(&dialTimeout, "timeout", 10, "request timeout in seconds")
}
