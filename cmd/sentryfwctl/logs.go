package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hearthguard/sentryfw/pkg/clientproto"
)

var (
	logsTail         int
	logsSinceMinutes int
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Read the tail of the audit log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := roundTrip("logs", clientproto.Request{
			Type:         clientproto.TypeAuditLogs,
			Tail:         logsTail,
			SinceMinutes: logsSinceMinutes,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return nil
		}

		if len(resp.Entries) == 0 {
			fmt.Println("no audit entries")
			return nil
		}
		for _, e := range resp.Entries {
			line := fmt.Sprintf("%s  %-22s %-8s %s", e.Timestamp.Format("2006-01-02 15:04:05"), e.Event, e.Status, e.Source)
			if e.ErrorMessage != "" {
				line += fmt.Sprintf("  [%s] %s", e.ErrorCode, e.ErrorMessage)
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	logsCmd.Flags().IntVar(&logsTail, "tail", 50, "number of entries to return")
	logsCmd.Flags().IntVar(&logsSinceMinutes, "since-minutes", 0, "only entries from the last N minutes")
	rootCmd.AddCommand(logsCmd)
}
