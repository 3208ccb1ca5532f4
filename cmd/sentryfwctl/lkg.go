package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hearthguard/sentryfw/pkg/clientproto"
)

var lkgShowCmd = &cobra.Command{
	Use:   "lkg-show",
	Short: "Show the last-known-good policy record",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := roundTrip("lkg-show", clientproto.Request{Type: clientproto.TypeLkgShow})
		if err != nil {
			return err
		}
		if jsonOutput {
			return nil
		}

		if !resp.Exists {
			fmt.Println("no last-known-good policy is saved")
			return nil
		}
		if resp.IsCorrupt {
			fmt.Println("last-known-good record exists but is corrupt; lkg-revert will fail")
			return nil
		}
		fmt.Printf("last-known-good policy: version %s, %d rules, saved %s\n",
			resp.PolicyVersion, resp.RuleCount, resp.SavedAt.Format("2006-01-02 15:04:05 MST"))
		if resp.SourcePath != "" {
			fmt.Printf("  source: %s\n", resp.SourcePath)
		}
		return nil
	},
}

var lkgRevertCmd = &cobra.Command{
	Use:   "lkg-revert",
	Short: "Re-apply the last-known-good policy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := roundTrip("lkg-revert", clientproto.Request{Type: clientproto.TypeLkgRevert})
		if err != nil {
			return err
		}
		if !jsonOutput {
			fmt.Printf("reverted to policy %s: %d created, %d removed\n",
				resp.PolicyVersion, resp.FiltersCreated, resp.FiltersRemoved)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lkgShowCmd)
	rootCmd.AddCommand(lkgRevertCmd)
}
