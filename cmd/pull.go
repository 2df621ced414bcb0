package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/santaclaude2025/flowsync/pkg/config"
	"github.com/santaclaude2025/flowsync/pkg/logger"
)

var pullCmd = &cobra.Command{
	Use:   "pull <flow-id> [file]",
	Short: "Download a flow definition with its secrets replaced by placeholders",
	Long: `Fetch the definition of a flow, replace every sensitive value with a
placeholder and write the result to a local file (default: <flow-id>.json).

The placeholder mapping is stored in the secret store before the file is
written. Pulling the same file again replaces its mapping.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		flowID := args[0]
		path := flowID + ".json"
		if len(args) == 2 {
			path = args[1]
		}

		cfg, err := config.EnsureConfigured()
		if err != nil {
			return err
		}

		syncer, closeFn, err := newSyncer(cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		logger.Info("Running pull for flow %s", flowID)
		res, err := syncer.Pull(cmd.Context(), flowID, path)
		if err != nil {
			return err
		}

		printSuccess("Pulled flow %s into %s", res.FlowID, res.Path)
		fmt.Printf("  %s\n", formatStats(res.Stats))
		fmt.Println(faint("  Edit the file freely; keep placeholders such as {{EMAIL_1}} intact to keep their values."))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pullCmd)
}
