package cmd

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/santaclaude2025/flowsync/pkg/config"
	"github.com/santaclaude2025/flowsync/pkg/logger"
	"github.com/santaclaude2025/flowsync/pkg/mappingstore"
	"github.com/santaclaude2025/flowsync/pkg/utils"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show flowsync status",
	Long:  `Displays the API configuration, the secret store and recent syncs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Info("Running status command")

		fmt.Println("=== Flowsync: Status ===")
		fmt.Println()

		cfg, err := config.GetConfig()
		if err != nil {
			logger.Error("Failed to get config: %v", err)
			fmt.Println("Flow API: " + failure("✗ Configuration error"))
			cfg = &config.Config{}
		} else if cfg.APIURL == "" || cfg.APIToken == "" {
			fmt.Println("Flow API: " + failure("✗ Not configured"))
			fmt.Println("  Run 'flowsync configure' to set it up")
		} else {
			fmt.Println("Flow API: " + success("✓ Configured"))
			fmt.Printf("  URL:   %s\n", cfg.APIURL)
			fmt.Printf("  Token: %s\n", utils.TruncateSecret(cfg.APIToken, 8, 4))
			if cfg.Environment != "" {
				fmt.Printf("  Environment: %s\n", cfg.Environment)
			}
		}
		fmt.Println()

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		entries := store.List()
		total := lo.SumBy(entries, func(e mappingstore.Entry) int { return e.Placeholders })
		fmt.Printf("Secret store: %s\n", store.Path())
		fmt.Printf("  %d files, %d placeholders\n", len(entries), total)
		fmt.Println()

		db, err := openHistory()
		if err != nil {
			logger.Warn("Failed to open history: %v", err)
			return nil
		}
		defer db.Close()

		records, err := db.Recent(cmd.Context(), 5)
		if err != nil {
			return err
		}
		if len(records) > 0 {
			fmt.Println("Recent syncs:")
			for _, r := range records {
				fmt.Printf("  %-16s %-8s %s\n", formatAge(r.Time), r.Direction, utils.TruncateWithEllipsis(r.Path, 50))
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
