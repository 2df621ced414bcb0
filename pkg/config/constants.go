package config

import "time"

// Application constants shared across packages

// === Network ===

const (
	// DefaultHTTPTimeout is used for fetching and updating flow definitions
	DefaultHTTPTimeout = 60 * time.Second

	// CompressionThreshold is the body size above which request bodies are zstd compressed
	CompressionThreshold = 1 * KB
)

// === Retry Configuration ===

const (
	// DefaultMaxRetries is the number of retries after the first failed remote call
	DefaultMaxRetries = 4

	// MaxAllowedRetries caps the configurable retry count
	MaxAllowedRetries = 10

	// BaseRetryDelay is the initial backoff delay between remote attempts
	BaseRetryDelay = 500 * time.Millisecond

	// MaxRetryDelay caps a single backoff delay
	MaxRetryDelay = 10 * time.Second
)

// Byte size constants
const (
	KB = 1024
	MB = 1024 * KB
)

// === Validation ===

const (
	// MinAPITokenLength catches truncated or corrupted tokens
	MinAPITokenLength = 16
)

// === File Paths ===

// Names relative to the flowsync directory
const (
	// FlowsyncDir is the main flowsync directory under the home directory
	FlowsyncDir = ".flowsync"

	ConfigFileName  = "config.json"
	StoreFileName   = "secrets.json"
	HistoryFileName = "history.db"
	RulesFileName   = "preserve.yaml"
	BackupDirName   = "backups"
	LogDirName      = "logs"
)

// === Environment Variables ===

const (
	// HomeEnv overrides the flowsync directory (default ~/.flowsync)
	HomeEnv = "FLOWSYNC_HOME"

	// ConfigPathEnv overrides the config file location
	ConfigPathEnv = "FLOWSYNC_CONFIG_PATH"

	// APITokenEnv overrides the stored API token
	APITokenEnv = "FLOWSYNC_API_TOKEN"

	// APIURLEnv overrides the stored API URL
	APIURLEnv = "FLOWSYNC_API_URL"

	// EnvironmentEnv overrides the stored environment name
	EnvironmentEnv = "FLOWSYNC_ENVIRONMENT"
)
