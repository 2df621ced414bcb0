package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/santaclaude2025/flowsync/pkg/classifier"
	"github.com/santaclaude2025/flowsync/pkg/config"
	"github.com/santaclaude2025/flowsync/pkg/logger"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and extend the values kept visible",
	Long: `Values matching a preserve rule stay visible in pulled files; everything else
long enough to matter is replaced by a placeholder. Builtin rules cover
workflow vocabulary (action types, HTTP verbs, run states...). Extra rules
live in ~/.flowsync/preserve.yaml:

  preserve:
    - name: Stages
      pattern: (Dev|Test|Prod)
      reason: deployment stage names

Patterns must match the whole value.`,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List preserve rules in evaluation order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadClassifier()
		if err != nil {
			return err
		}

		builtin := len(classifier.GetBuiltinRules())
		for i, r := range c.Rules() {
			source := "builtin"
			if i >= builtin {
				source = "custom"
			}
			fmt.Printf("  %-24s %-8s %s\n", r.Name, faint(source), r.Pattern)
		}
		return nil
	},
}

var rulesAddCmd = &cobra.Command{
	Use:   "add <name> <pattern>",
	Short: "Add a custom preserve rule",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")
		rule := classifier.Rule{Name: args[0], Pattern: args[1], Reason: reason}

		// Reject patterns that do not compile before touching the file
		if _, err := classifier.New(rule); err != nil {
			return err
		}

		path, err := config.GetRulesPath()
		if err != nil {
			return err
		}
		rules, err := classifier.LoadRules(path)
		if err != nil {
			return err
		}
		rules = append(rules, rule)

		if err := classifier.SaveRules(path, rules); err != nil {
			return err
		}

		logger.Info("Added preserve rule %q", rule.Name)
		printSuccess("Added rule %q to %s", rule.Name, path)
		return nil
	},
}

var explainCmd = &cobra.Command{
	Use:   "explain <value>",
	Short: "Show how a string value would be classified",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadClassifier()
		if err != nil {
			return err
		}

		d := c.Explain(args[0])
		verdict := warning("extract as " + d.Classification.String())
		if d.Classification == classifier.Preserve {
			verdict = success("preserve")
		}

		fmt.Printf("%s (step: %s)\n", verdict, d.Step)
		if d.Rule != nil {
			fmt.Printf("  rule: %s %s\n", d.Rule.Name, faint(d.Rule.Pattern))
			if d.Rule.Reason != "" {
				fmt.Printf("  reason: %s\n", d.Rule.Reason)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesAddCmd)
	rulesCmd.AddCommand(explainCmd)

	rulesAddCmd.Flags().String("reason", "", "Why values matching this rule are safe to show")
}
