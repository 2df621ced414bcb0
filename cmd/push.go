package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/santaclaude2025/flowsync/pkg/config"
	"github.com/santaclaude2025/flowsync/pkg/flowsync"
	"github.com/santaclaude2025/flowsync/pkg/logger"
)

var pushCmd = &cobra.Command{
	Use:   "push <file>",
	Short: "Restore secrets into an edited file and upload it",
	Long: `Replace every placeholder in the file with its recorded value and upload the
result to the flow it was pulled from (or --flow). The current remote definition
is backed up first; see 'flowsync backups'.

With --dry-run nothing is uploaded. The rehydrated document contains secrets,
so it is only printed when --unsafe-print is also given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flowID, _ := cmd.Flags().GetString("flow")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		unsafePrint, _ := cmd.Flags().GetBool("unsafe-print")

		if unsafePrint && !dryRun {
			return fmt.Errorf("--unsafe-print requires --dry-run")
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

		logger.Info("Running push for %s (dry run: %v)", args[0], dryRun)
		res, err := syncer.Push(cmd.Context(), args[0], flowsync.PushOptions{
			FlowID: flowID,
			DryRun: dryRun,
		})
		if err != nil {
			return err
		}

		for _, token := range res.Unknown {
			printWarning("%s has no recorded value and is kept as literal text", token)
		}
		if len(res.Unused) > 0 {
			fmt.Println(faint(fmt.Sprintf("  %d placeholders were removed from the document", len(res.Unused))))
		}

		if res.DryRun {
			printSuccess("Dry run: %s rehydrated for flow %s (%d substitutions), nothing uploaded", res.Path, res.FlowID, res.Substituted)
			if unsafePrint {
				os.Stdout.Write(res.Document)
			}
			return nil
		}

		printSuccess("Pushed %s to flow %s (%d substitutions)", res.Path, res.FlowID, res.Substituted)
		if res.BackupPath != "" {
			fmt.Printf("  Previous definition saved to %s\n", res.BackupPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pushCmd)

	pushCmd.Flags().String("flow", "", "Flow id to update (default: the flow the file was pulled from)")
	pushCmd.Flags().Bool("dry-run", false, "Rehydrate without uploading")
	pushCmd.Flags().Bool("unsafe-print", false, "With --dry-run, print the rehydrated document including secrets")
}
