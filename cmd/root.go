package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/santaclaude2025/flowsync/pkg/config"
	"github.com/santaclaude2025/flowsync/pkg/logger"
	"github.com/santaclaude2025/flowsync/pkg/mappingstore"
)

var rootCmd = &cobra.Command{
	Use:   "flowsync",
	Short: "Edit workflow definitions locally without exposing their secrets",
	Long: `Flowsync pulls a remote workflow definition into a local JSON file with every
sensitive value (emails, URLs, identifiers, free text) replaced by a placeholder
such as {{EMAIL_1}}. The file can be edited by anyone, or anything, without
seeing those values. Pushing puts the originals back and uploads the result.

The placeholder mapping never leaves this machine; it is kept in
~/.flowsync/secrets.json.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnvFiles(); err != nil {
			return err
		}

		if err := logger.Init(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: logging to stderr only: %v\n", err)
		}

		levelName, _ := cmd.Flags().GetString("log-level")
		level, err := logger.ParseLevel(levelName)
		if err != nil {
			return err
		}
		log := logger.Get()
		log.SetLevel(level)

		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			log.SetAlsoStderr(true)
		}

		logger.Debug("Running %s", cmd.CommandPath())
		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		logger.Error("%s", err)
		fmt.Fprintln(os.Stderr, failure("Error: ")+err.Error())
		if errors.Is(err, mappingstore.ErrNotExtracted) {
			fmt.Fprintln(os.Stderr, "This file was never pulled by flowsync. Run 'flowsync pull <flow-id> <file>' first.")
		} else if errors.Is(err, config.ErrNotConfigured) {
			fmt.Fprintln(os.Stderr, "Run 'flowsync configure' first.")
		}
		logger.Close()
		os.Exit(1)
	}
	logger.Close()
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Also print log messages to stderr")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.SilenceErrors = true
}
