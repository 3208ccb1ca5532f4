package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hearthguard/sentryfw/pkg/clientproto"
)

var demoBlockCmd = &cobra.Command{
	Use:   "demo-block",
	Short: "Toggle the built-in demonstration block filter",
	Long: `Demo-block installs a single pinned filter blocking outbound TCP to a
documentation-reserved address, proving end to end that the controller
can reach the kernel. It never touches the applied policy's filters.`,
}

var demoBlockEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Install the demonstration filter",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := roundTrip("demo-block enable", clientproto.Request{Type: clientproto.TypeDemoBlockEnable}); err != nil {
			return err
		}
		if !jsonOutput {
			fmt.Println("demo block enabled")
		}
		return nil
	},
}

var demoBlockDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Remove the demonstration filter",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := roundTrip("demo-block disable", clientproto.Request{Type: clientproto.TypeDemoBlockDisable}); err != nil {
			return err
		}
		if !jsonOutput {
			fmt.Println("demo block disabled")
		}
		return nil
	},
}

var demoBlockStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the demonstration filter is installed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := roundTrip("demo-block status", clientproto.Request{Type: clientproto.TypeDemoBlockStatus})
		if err != nil {
			return err
		}
		if !jsonOutput {
			if resp.DemoBlockActive {
				fmt.Println("demo block is active")
			} else {
				fmt.Println("demo block is inactive")
			}
		}
		return nil
	},
}

func init() {
	demoBlockCmd.AddCommand(demoBlockEnableCmd)
	demoBlockCmd.AddCommand(demoBlockDisableCmd)
	demoBlockCmd.AddCommand(demoBlockStatusCmd)
	rootCmd.AddCommand(demoBlockCmd)
}
