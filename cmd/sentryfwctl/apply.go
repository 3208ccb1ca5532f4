package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hearthguard/sentryfw/pkg/cli"
	"github.com/hearthguard/sentryfw/pkg/clientproto"
)

var applyCmd = &cobra.Command{
	Use:   "apply <path>",
	Short: "Apply a policy file to the kernel",
	Long: `Apply validates and compiles the policy file at the given path, then
reconciles the kernel's filter set to exactly what it describes. The
path is resolved to an absolute path and read by the daemon, not by
this client.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return cli.NewCommandError("apply", err)
		}

		resp, err := roundTrip("apply", clientproto.Request{
			Type:       clientproto.TypeApply,
			PolicyPath: path,
		})
		if err != nil {
			return err
		}

		if !jsonOutput {
			fmt.Printf("applied policy %s: %d created, %d removed, %d rules (%d skipped)\n",
				resp.PolicyVersion, resp.FiltersCreated, resp.FiltersRemoved, resp.TotalRules, resp.RulesSkipped)
			for _, w := range resp.Warnings {
				fmt.Printf("  warning: %s\n", w)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)
}
