package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/santaclaude2025/flowsync/pkg/config"
	"github.com/santaclaude2025/flowsync/pkg/logger"
	"github.com/santaclaude2025/flowsync/pkg/utils"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Configure the flow API connection",
	Long: `Set the flow API URL, token and environment. Without --api-token the token
is read from the terminal without echo. FLOWSYNC_API_TOKEN, if set, overrides
the stored token at run time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		apiURL, _ := cmd.Flags().GetString("api-url")
		apiToken, _ := cmd.Flags().GetString("api-token")
		environment, _ := cmd.Flags().GetString("environment")
		retries, _ := cmd.Flags().GetInt("max-retries")
		compress, _ := cmd.Flags().GetBool("compress")

		cfg, err := config.GetConfig()
		if err != nil {
			return fmt.Errorf("failed to get config: %w", err)
		}

		if apiURL != "" {
			cfg.APIURL = apiURL
		}
		if environment != "" {
			cfg.Environment = environment
		}
		if cmd.Flags().Changed("max-retries") {
			cfg.MaxRetries = &retries
		}
		if cmd.Flags().Changed("compress") {
			cfg.CompressRequests = compress
		}

		if apiToken == "" && cfg.APIToken == "" && term.IsTerminal(int(os.Stdin.Fd())) {
			apiToken, err = promptToken()
			if err != nil {
				return err
			}
		}
		if apiToken != "" {
			cfg.APIToken = apiToken
		}

		if err := config.SaveConfig(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		logger.Info("Configuration updated (api url %s, environment %q)", cfg.APIURL, cfg.Environment)

		fmt.Println("=== Flow API Configuration Updated ===")
		fmt.Println()
		fmt.Printf("API URL:     %s\n", cfg.APIURL)
		fmt.Printf("API Token:   %s\n", utils.TruncateSecret(cfg.APIToken, 8, 4))
		if cfg.Environment != "" {
			fmt.Printf("Environment: %s\n", cfg.Environment)
		}
		fmt.Printf("Retries:     %d\n", cfg.Retries())
		return nil
	},
}

func promptToken() (string, error) {
	fmt.Print("API token: ")
	token, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		// Fall back to a plain read (e.g. some Windows terminals)
		line, readErr := bufio.NewReader(os.Stdin).ReadString('\n')
		if readErr != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return strings.TrimSpace(line), nil
	}
	return strings.TrimSpace(string(token)), nil
}

func init() {
	rootCmd.AddCommand(configureCmd)

	configureCmd.Flags().String("api-url", "", "Flow API base URL (e.g., https://flows.example.com/api)")
	configureCmd.Flags().String("api-token", "", "API token (prompted when omitted)")
	configureCmd.Flags().String("environment", "", "Environment the flows live in")
	configureCmd.Flags().Int("max-retries", config.DefaultMaxRetries, "Retries after a failed API call")
	configureCmd.Flags().Bool("compress", false, "Send large request bodies zstd compressed")
}
