package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/santaclaude2025/flowsync/pkg/history"
	"github.com/santaclaude2025/flowsync/pkg/mappingstore"
	"github.com/santaclaude2025/flowsync/pkg/utils"
)

var historyCmd = &cobra.Command{
	Use:   "history [file]",
	Short: "Show recent pulls, pushes and restores",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		db, err := openHistory()
		if err != nil {
			return err
		}
		defer db.Close()

		var records []history.Record
		if len(args) == 1 {
			path, err := mappingstore.CanonicalPath(args[0])
			if err != nil {
				return err
			}
			records, err = db.ForPath(cmd.Context(), path, limit)
			if err != nil {
				return err
			}
		} else {
			records, err = db.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
		}

		if len(records) == 0 {
			fmt.Println("No syncs recorded")
			return nil
		}

		for _, r := range records {
			direction := string(r.Direction)
			if r.DryRun {
				direction += " (dry run)"
			}
			fmt.Printf("  %-16s %-18s %-24s %s\n",
				formatAge(r.Time),
				direction,
				utils.TruncateEnd(r.FlowID, 24),
				utils.TruncateWithEllipsis(r.Path, 50))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Number of records to show")
}
