package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/santaclaude2025/flowsync/pkg/config"
	"github.com/santaclaude2025/flowsync/pkg/extractor"
	"github.com/santaclaude2025/flowsync/pkg/logger"
	"github.com/santaclaude2025/flowsync/pkg/rehydrator"
	"github.com/santaclaude2025/flowsync/pkg/utils"
)

var redactCmd = &cobra.Command{
	Use:   "redact <input> <output>",
	Short: "Replace secrets in a local JSON file with placeholders",
	Long: `Redact a JSON document that is already on disk, without contacting the flow
API. The mapping is recorded for <output>, so 'flowsync rehydrate <output>'
restores the values later.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, output := args[0], args[1]

		cfg, err := config.GetConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		c, err := loadClassifier()
		if err != nil {
			return err
		}

		doc, err := os.ReadFile(input)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", input, err)
		}

		res, err := extractor.New(c).Extract(doc)
		if err != nil {
			return fmt.Errorf("%s: %w", input, err)
		}

		// Mapping first: a redacted file without its mapping cannot be restored
		if err := store.Put(output, res.Mapping); err != nil {
			return fmt.Errorf("failed to persist secret mapping, %s not written: %w", output, err)
		}
		if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", output, err)
		}
		if err := utils.WriteFileAtomic(output, res.Redacted, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", output, err)
		}

		logger.Info("Redacted %s into %s (%d placeholders)", input, output, res.Stats.Total())
		printSuccess("Redacted %s into %s", input, output)
		fmt.Printf("  %s\n", formatStats(res.Stats))
		return nil
	},
}

var rehydrateCmd = &cobra.Command{
	Use:   "rehydrate <file>",
	Short: "Restore recorded secrets into a redacted file",
	Long: `Substitute recorded values for the placeholders of a file that was pulled or
redacted, without contacting the flow API. The result contains secrets and is
written to a file (default: <file>.rehydrated.json), never to the terminal.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".rehydrated.json"
		}

		cfg, err := config.GetConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}

		edited, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		mapping, err := store.Get(args[0])
		if err != nil {
			return err
		}

		res, err := rehydrator.Rehydrate(edited, mapping)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		// Contains secrets
		if err := utils.WriteFileAtomic(output, res.Document, 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", output, err)
		}

		for _, token := range res.Unknown {
			printWarning("%s has no recorded value and is kept as literal text", token)
		}
		logger.Info("Rehydrated %s into %s (%d substitutions)", args[0], output, res.Substituted)
		printSuccess("Rehydrated %s into %s (%d substitutions)", args[0], output, res.Substituted)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redactCmd)
	rootCmd.AddCommand(rehydrateCmd)

	rehydrateCmd.Flags().StringP("output", "o", "", "File to write the rehydrated document to")
}
