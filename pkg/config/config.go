package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"

	"github.com/santaclaude2025/flowsync/pkg/utils"
)

// ErrNotConfigured is returned when a remote command runs before `flowsync configure`
var ErrNotConfigured = errors.New("flowsync is not configured. Run 'flowsync configure' first")

var environmentPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// Config holds the flow API settings and local state locations
type Config struct {
	APIURL      string `json:"api_url"`
	APIToken    string `json:"api_token"`
	Environment string `json:"environment,omitempty"`
	StorePath   string `json:"store_path,omitempty"`
	BackupDir   string `json:"backup_dir,omitempty"`
	MaxRetries  *int   `json:"max_retries,omitempty"`
	// CompressRequests enables zstd request bodies; not every API accepts them
	CompressRequests bool `json:"compress_requests,omitempty"`
}

// LoadEnvFiles loads .env files into the process environment.
// Variables already set are not overridden; missing files are ignored.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// GetConfig reads ~/.flowsync/config.json and applies environment overrides
func GetConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	cfg := &Config{}

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		// Defaults; environment may still supply everything
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if v := os.Getenv(APIURLEnv); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv(APITokenEnv); v != "" {
		cfg.APIToken = v
	}
	if v := os.Getenv(EnvironmentEnv); v != "" {
		cfg.Environment = v
	}

	return cfg, nil
}

// SaveConfig writes the config to ~/.flowsync/config.json
func SaveConfig(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Holds the API token
	if err := utils.WriteFileAtomic(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Retries returns the configured retry count, or the default
func (c *Config) Retries() int {
	if c.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *c.MaxRetries
}

// ValidateAPIURL checks if the API URL is valid
func ValidateAPIURL(apiURL string) error {
	if apiURL == "" {
		return nil // Empty is allowed (not configured)
	}

	parsed, err := url.Parse(apiURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	if parsed.Scheme == "" {
		return fmt.Errorf("url must include scheme (http:// or https://)")
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("url must include a host")
	}

	return nil
}

// ValidateAPIToken checks if the API token format is valid
func ValidateAPIToken(token string) error {
	if token == "" {
		return nil // Empty is allowed (not configured)
	}

	if len(token) < MinAPITokenLength {
		return fmt.Errorf("api token too short (minimum %d characters)", MinAPITokenLength)
	}

	if strings.ContainsAny(token, " \t\n\r") {
		return fmt.Errorf("api token contains invalid whitespace characters")
	}

	return nil
}

// ValidateEnvironment checks an environment name used as a URL path segment
func ValidateEnvironment(env string) error {
	if env == "" {
		return nil
	}
	if !environmentPattern.MatchString(env) {
		return fmt.Errorf("environment %q may only contain letters, digits, '-' and '_'", env)
	}
	return nil
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if err := ValidateAPIURL(c.APIURL); err != nil {
		return fmt.Errorf("invalid API URL: %w", err)
	}

	if err := ValidateAPIToken(c.APIToken); err != nil {
		return fmt.Errorf("invalid API token: %w", err)
	}

	if err := ValidateEnvironment(c.Environment); err != nil {
		return fmt.Errorf("invalid environment: %w", err)
	}

	if c.MaxRetries != nil && (*c.MaxRetries < 0 || *c.MaxRetries > MaxAllowedRetries) {
		return fmt.Errorf("max_retries must be between 0 and %d", MaxAllowedRetries)
	}

	return nil
}

// EnsureConfigured reads the config and verifies the remote settings are present
func EnsureConfigured() (*Config, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}

	if cfg.APIURL == "" || cfg.APIToken == "" {
		return nil, ErrNotConfigured
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
