package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/santaclaude2025/flowsync/pkg/logger"
)

const logFileName = "flowsync.log"

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Manage flowsync logs",
	Long:  "View or manage flowsync CLI logs",
}

var logsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print log directory path",
	RunE: func(cmd *cobra.Command, args []string) error {
		logDir, err := logger.LogDir()
		if err != nil {
			return err
		}
		fmt.Println(logDir)
		return nil
	},
}

var logsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all log files",
	RunE: func(cmd *cobra.Command, args []string) error {
		logDir, err := logger.LogDir()
		if err != nil {
			return err
		}

		files, err := filepath.Glob(filepath.Join(logDir, "flowsync*.log*"))
		if err != nil {
			return fmt.Errorf("failed to list logs: %w", err)
		}

		if len(files) == 0 {
			fmt.Println("No log files found")
			return nil
		}

		for _, file := range files {
			info, err := os.Stat(file)
			if err != nil {
				logger.Warn("Failed to stat %s: %v", file, err)
				continue
			}
			fmt.Printf("%s (%s)\n", filepath.Base(file), formatSize(info.Size()))
		}
		return nil
	},
}

var logsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all rotated log files (keeps current)",
	RunE: func(cmd *cobra.Command, args []string) error {
		logDir, err := logger.LogDir()
		if err != nil {
			return err
		}

		// Rotated files look like flowsync-2025-03-01T12-00-00.000.log(.gz)
		files, err := filepath.Glob(filepath.Join(logDir, "flowsync-*.log*"))
		if err != nil {
			return fmt.Errorf("failed to list logs: %w", err)
		}

		if len(files) == 0 {
			fmt.Println("No old log files to delete")
			return nil
		}

		deletedCount := 0
		for _, file := range files {
			if filepath.Base(file) == logFileName {
				continue
			}
			if err := os.Remove(file); err != nil {
				logger.Warn("Failed to delete %s: %v", filepath.Base(file), err)
			} else {
				fmt.Printf("Deleted %s\n", filepath.Base(file))
				deletedCount++
			}
		}

		fmt.Printf("\nDeleted %d old log file(s)\n", deletedCount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.AddCommand(logsPathCmd)
	logsCmd.AddCommand(logsListCmd)
	logsCmd.AddCommand(logsClearCmd)
}
