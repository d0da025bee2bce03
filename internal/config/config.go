// Package config loads and validates the host's process-wide settings.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the fully-resolved, validated configuration for one host
// process. It is read once at startup from the environment (with an
// optional YAML overlay, see LoadWithOverlay) and passed by value or handle to the
// components that need it; nothing in the host re-reads the environment
// after Load returns.
type Config struct {
	LLM       LLMConfig
	Session   SessionConfig
	Inventory InventoryConfig
	Logging   LoggingConfig
}

// LLMConfig configures the default LLM provider binding.
type LLMConfig struct {
	// Provider selects which provider adapter to construct: "anthropic",
	// "openai", "google", or "bedrock".
	Provider string

	// APIKey is the provider credential. Required for anthropic, openai,
	// and google; bedrock uses the AWS credential chain instead unless
	// AccessKeyID/SecretAccessKey are set.
	APIKey string

	// Model is the default model name. When empty, each provider adapter
	// falls back to its own default model.
	Model string

	// Temperature must fall in [0, 2].
	Temperature float64

	// MaxTokens must be positive.
	MaxTokens int

	// Region is the AWS region for the bedrock provider. Ignored by
	// other providers.
	Region string

	// AccessKeyID/SecretAccessKey, if both set, pin the bedrock provider
	// to explicit AWS credentials instead of the default chain.
	AccessKeyID     string
	SecretAccessKey string
}

// SessionConfig configures the Session Store's retention and eviction.
type SessionConfig struct {
	// MaxMessages bounds the retained message count before the overflow
	// rewrite kicks in.
	MaxMessages int

	// IdleTimeout is how long a session may go unaccessed before the
	// background sweep evicts it.
	IdleTimeout time.Duration

	// CleanupInterval is how often the eviction sweep runs.
	CleanupInterval time.Duration
}

// InventoryConfig configures the server-inventory descriptor loader.
type InventoryConfig struct {
	// Path is the on-disk location of the inventory descriptor.
	Path string

	// Watch enables live-reload on descriptor changes.
	Watch bool

	// ToolTimeout bounds a single tools/call round trip.
	ToolTimeout time.Duration
}

// LoggingConfig configures the process-wide slog handler.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string

	// File, if set, tees logs to a rotated file in addition to stderr.
	File string
}

func defaults() Config {
	return Config{
		LLM: LLMConfig{
			Provider:    "anthropic",
			Model:       "",
			Temperature: 0.1,
			MaxTokens:   1000,
		},
		Session: SessionConfig{
			MaxMessages:      50,
			IdleTimeout:      30 * time.Minute,
			CleanupInterval:  5 * time.Minute,
		},
		Inventory: InventoryConfig{
			Path:        "./mcp_servers.json",
			Watch:       true,
			ToolTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds a Config from the process environment, applying defaults for
// anything unset, then validates it. A non-nil error means the process
// should abort startup (ConfigInvalid, per the error taxonomy).
func Load() (*Config, error) {
	cfg := defaults()
	applyEnvOverrides(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("MCPHOST_LLM_PROVIDER")); v != "" {
		cfg.LLM.Provider = v
	}
	if v := strings.TrimSpace(firstNonEmpty(os.Getenv("MCPHOST_LLM_API_KEY"), os.Getenv("ANTHROPIC_API_KEY"), os.Getenv("OPENAI_API_KEY"))); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("MCPHOST_LLM_MODEL")); v != "" {
		cfg.LLM.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("MCPHOST_LLM_TEMPERATURE")); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.LLM.Temperature = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("MCPHOST_LLM_MAX_TOKENS")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.LLM.MaxTokens = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("MCPHOST_LLM_REGION")); v != "" {
		cfg.LLM.Region = v
	}
	if v := strings.TrimSpace(os.Getenv("AWS_ACCESS_KEY_ID")); v != "" {
		cfg.LLM.AccessKeyID = v
	}
	if v := strings.TrimSpace(os.Getenv("AWS_SECRET_ACCESS_KEY")); v != "" {
		cfg.LLM.SecretAccessKey = v
	}

	if v := strings.TrimSpace(os.Getenv("MCPHOST_MAX_MESSAGES")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Session.MaxMessages = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("MCPHOST_IDLE_TIMEOUT_MINUTES")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Session.IdleTimeout = time.Duration(parsed) * time.Minute
		}
	}
	if v := strings.TrimSpace(os.Getenv("MCPHOST_CLEANUP_INTERVAL_MINUTES")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Session.CleanupInterval = time.Duration(parsed) * time.Minute
		}
	}

	if v := strings.TrimSpace(os.Getenv("MCPHOST_INVENTORY_PATH")); v != "" {
		cfg.Inventory.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("MCPHOST_INVENTORY_WATCH")); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			cfg.Inventory.Watch = parsed
		}
	}

	if v := strings.TrimSpace(os.Getenv("MCPHOST_LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("MCPHOST_LOG_FILE")); v != "" {
		cfg.Logging.File = v
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// ValidationError collects every invalid-config issue found so a single
// abort message can name all of them at once, rather than failing fast on
// the first field.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "config validation failed:\n- " + strings.Join(e.Issues, "\n- ")
}

func validate(cfg *Config) error {
	var issues []string

	if cfg.LLM.Provider != "bedrock" && strings.TrimSpace(cfg.LLM.APIKey) == "" {
		issues = append(issues, "llm: api key is required (set MCPHOST_LLM_API_KEY, ANTHROPIC_API_KEY, or OPENAI_API_KEY)")
	}
	switch cfg.LLM.Provider {
	case "anthropic", "openai", "google", "bedrock":
	default:
		issues = append(issues, "llm.provider must be one of \"anthropic\", \"openai\", \"google\", \"bedrock\"")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		issues = append(issues, "llm.temperature must be in [0, 2]")
	}
	if cfg.LLM.MaxTokens <= 0 {
		issues = append(issues, "llm.max_tokens must be positive")
	}

	if cfg.Session.MaxMessages <= 0 {
		issues = append(issues, "session.max_messages must be positive")
	}
	if cfg.Session.IdleTimeout <= 0 {
		issues = append(issues, "session.idle_timeout must be positive")
	}
	if cfg.Session.CleanupInterval <= 0 {
		issues = append(issues, "session.cleanup_interval must be positive")
	}

	if strings.TrimSpace(cfg.Inventory.Path) == "" {
		issues = append(issues, "inventory.path must not be empty")
	}
	if cfg.Inventory.ToolTimeout <= 0 {
		issues = append(issues, "inventory.tool_timeout must be positive")
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		issues = append(issues, "logging.level must be one of debug, info, warn, error")
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
