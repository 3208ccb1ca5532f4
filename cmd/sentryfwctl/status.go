package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hearthguard/sentryfw/pkg/clientproto"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check daemon reachability and version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := roundTrip("status", clientproto.Request{Type: clientproto.TypePing})
		if err != nil {
			return err
		}
		if !jsonOutput {
			fmt.Printf("sentryfwd %s is running (server time %s, protocol %d)\n",
				resp.Version, resp.Time.Format("2006-01-02 15:04:05 MST"), resp.ProtocolVersion)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
