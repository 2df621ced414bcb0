package cmd

import (
	"fmt"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/santaclaude2025/flowsync/pkg/config"
	"github.com/santaclaude2025/flowsync/pkg/extractor"
	"github.com/santaclaude2025/flowsync/pkg/logger"
	"github.com/santaclaude2025/flowsync/pkg/utils"
)

var mappingsCmd = &cobra.Command{
	Use:   "mappings",
	Short: "Inspect the secret store",
	Long: `Inspect or retire entries of the secret store (~/.flowsync/secrets.json).
Recorded values are never printed.`,
}

var mappingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List files with a recorded mapping",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.GetConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}

		entries := store.List()
		if len(entries) == 0 {
			fmt.Println("No mappings recorded")
			return nil
		}

		fmt.Printf("Secret store: %s\n\n", store.Path())
		for _, e := range entries {
			fmt.Printf("  %-60s %d placeholders\n", utils.TruncateWithEllipsis(e.Path, 60), e.Placeholders)
		}
		return nil
	},
}

var mappingsShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Show the placeholders recorded for a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.GetConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}

		mapping, err := store.Get(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s\n\n", formatStats(extractor.StatsFor(mapping)))
		for _, token := range mapping.Tokens() {
			fmt.Printf("  %-16s %s\n", token, faint(fmt.Sprintf("%d chars", utf8.RuneCountInString(mapping[token]))))
		}
		return nil
	},
}

var mappingsForgetCmd = &cobra.Command{
	Use:   "forget <file>",
	Short: "Delete the mapping recorded for a file",
	Long: `Delete the mapping of a file. Its placeholders can no longer be restored;
pull the flow again to get a new mapping.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.GetConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}

		existed, err := store.Forget(args[0])
		if err != nil {
			return err
		}
		if !existed {
			fmt.Printf("No mapping recorded for %s\n", args[0])
			return nil
		}

		logger.Info("Forgot mapping of %s", args[0])
		printSuccess("Forgot mapping of %s", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mappingsCmd)
	mappingsCmd.AddCommand(mappingsListCmd)
	mappingsCmd.AddCommand(mappingsShowCmd)
	mappingsCmd.AddCommand(mappingsForgetCmd)
}
