package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/santaclaude2025/flowsync/pkg/config"
	"github.com/santaclaude2025/flowsync/pkg/logger"
)

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "Manage backups of remote flow definitions",
	Long: `Every push first saves the remote definition it is about to replace, zstd
compressed, under ~/.flowsync/backups/<flow-id>/. Backups hold the real values.`,
}

var backupsListCmd = &cobra.Command{
	Use:   "list [flow-id]",
	Short: "List backups, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.GetConfig()
		if err != nil {
			return err
		}
		manager, err := backupManager(cfg)
		if err != nil {
			return err
		}

		flowID := ""
		if len(args) == 1 {
			flowID = args[0]
		}
		backups, err := manager.List(flowID)
		if err != nil {
			return err
		}
		if len(backups) == 0 {
			fmt.Println("No backups found")
			return nil
		}

		for _, b := range backups {
			fmt.Printf("  %-24s %-16s %8s  %s\n", b.FlowID, formatAge(b.Time), formatSize(b.Size), faint(b.Path))
		}
		return nil
	},
}

var backupsRestoreCmd = &cobra.Command{
	Use:   "restore <flow-id> [backup-file]",
	Short: "Upload a backup to its flow (default: the newest backup)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		flowID := args[0]

		cfg, err := config.EnsureConfigured()
		if err != nil {
			return err
		}
		manager, err := backupManager(cfg)
		if err != nil {
			return err
		}

		path := ""
		if len(args) == 2 {
			path = args[1]
		} else {
			latest, err := manager.Latest(flowID)
			if err != nil {
				return err
			}
			path = latest.Path
		}

		syncer, closeFn, err := newSyncer(cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		logger.Info("Restoring flow %s from %s", flowID, path)
		undo, err := syncer.Restore(cmd.Context(), flowID, path)
		if err != nil {
			return err
		}

		printSuccess("Restored flow %s from %s", flowID, path)
		if undo != "" {
			fmt.Printf("  Replaced definition saved to %s\n", undo)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupsCmd)
	backupsCmd.AddCommand(backupsListCmd)
	backupsCmd.AddCommand(backupsRestoreCmd)
}
