package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hearthguard/sentryfw/pkg/cli"
	"github.com/hearthguard/sentryfw/pkg/clientproto"
)

var validateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Validate a policy file without applying it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return cli.NewCommandError("validate", err)
		}

		resp, err := roundTrip("validate", clientproto.Request{
			Type:       clientproto.TypeValidate,
			PolicyJSON: string(raw),
		})
		if err != nil {
			return err
		}

		if !resp.Valid {
			if !jsonOutput {
				fmt.Printf("policy is invalid (%d errors):\n", len(resp.Errors))
				for _, e := range resp.Errors {
					fmt.Printf("  - %s\n", e)
				}
			}
			return &cli.CommandError{
				Command: "validate",
				Code:    cli.ExitInvalidArgument,
				Err:     fmt.Errorf("policy failed validation with %d errors", len(resp.Errors)),
			}
		}
		if !jsonOutput {
			fmt.Printf("policy is valid: version %s, %d rules\n", resp.PolicyVersion, resp.RuleCount)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
