package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "sentryfwd",
	Short: "sentryfw host firewall controller daemon",
	Long: `Sentryfwd reconciles declarative JSON traffic policies into kernel
packet filters and serves an authenticated local request channel for
the sentryfwctl client.

The daemon owns a single provider/sublayer registration in the host's
filtering platform; every apply converges the sublayer's filter set to
exactly what the policy compiles to, inside one transaction.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "/etc/sentryfw/config.yaml", "config file path")
}
