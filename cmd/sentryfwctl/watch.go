package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hearthguard/sentryfw/pkg/cli"
	"github.com/hearthguard/sentryfw/pkg/clientproto"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Control the policy file watcher",
}

var watchSetCmd = &cobra.Command{
	Use:   "set <path>",
	Short: "Watch a policy file and re-apply it on change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return cli.NewCommandError("watch set", err)
		}
		resp, err := roundTrip("watch set", clientproto.Request{
			Type:       clientproto.TypeWatchSet,
			PolicyPath: path,
		})
		if err != nil {
			return err
		}
		if !jsonOutput {
			fmt.Printf("watching %s\n", resp.WatchPath)
		}
		return nil
	},
}

var watchStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show watcher state and counters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := roundTrip("watch status", clientproto.Request{Type: clientproto.TypeWatchStatus})
		if err != nil {
			return err
		}
		if jsonOutput {
			return nil
		}

		if !resp.WatchActive {
			fmt.Println("watcher is idle")
			return nil
		}
		fmt.Printf("watching %s: %d applies, %d errors\n", resp.WatchPath, resp.ApplyCount, resp.ErrorCount)
		if resp.LastApplyTime != "" {
			fmt.Printf("  last apply: %s\n", resp.LastApplyTime)
		}
		if resp.LastError != "" {
			fmt.Printf("  last error: %s\n", resp.LastError)
		}
		return nil
	},
}

var watchClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Stop watching",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := roundTrip("watch clear", clientproto.Request{Type: clientproto.TypeWatchSet}); err != nil {
			return err
		}
		if !jsonOutput {
			fmt.Println("watcher stopped")
		}
		return nil
	},
}

func init() {
	watchCmd.AddCommand(watchSetCmd)
	watchCmd.AddCommand(watchStatusCmd)
	watchCmd.AddCommand(watchClearCmd)
	rootCmd.AddCommand(watchCmd)
}
