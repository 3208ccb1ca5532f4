package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hearthguard/sentryfw/pkg/clientproto"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Remove every installed filter",
	Long: `Rollback deletes every filter the controller owns in one transaction.
The provider and sublayer registrations are kept so a later apply does
not need to re-bootstrap.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := roundTrip("rollback", clientproto.Request{Type: clientproto.TypeRollback})
		if err != nil {
			return err
		}
		if !jsonOutput {
			fmt.Printf("removed %d filters\n", resp.FiltersRemoved)
		}
		return nil
	},
}

var teardownCmd = &cobra.Command{
	Use:   "teardown",
	Short: "Remove the provider and sublayer registrations",
	Long: `Teardown deletes the controller's sublayer and provider from the
filtering platform. It fails if any filters are still installed; run
rollback first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := roundTrip("teardown", clientproto.Request{Type: clientproto.TypeTeardown}); err != nil {
			return err
		}
		if !jsonOutput {
			fmt.Println("provider and sublayer removed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(teardownCmd)
}
