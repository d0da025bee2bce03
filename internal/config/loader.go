package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

// overlay mirrors Config but with every field optional, so a YAML file only
// needs to name the settings it wants to change.
type overlay struct {
	LLM struct {
		Provider        *string  `yaml:"provider"`
		APIKey          *string  `yaml:"api_key"`
		Model           *string  `yaml:"model"`
		Temperature     *float64 `yaml:"temperature"`
		MaxTokens       *int     `yaml:"max_tokens"`
		Region          *string  `yaml:"region"`
		AccessKeyID     *string  `yaml:"access_key_id"`
		SecretAccessKey *string  `yaml:"secret_access_key"`
	} `yaml:"llm"`
	Session struct {
		MaxMessages         *int    `yaml:"max_messages"`
		IdleTimeoutMinutes  *int    `yaml:"idle_timeout_minutes"`
		CleanupIntervalMins *int    `yaml:"cleanup_interval_minutes"`
	} `yaml:"session"`
	Inventory struct {
		Path  *string `yaml:"path"`
		Watch *bool   `yaml:"watch"`
	} `yaml:"inventory"`
	Logging struct {
		Level *string `yaml:"level"`
		File  *string `yaml:"file"`
	} `yaml:"logging"`
}

// LoadWithOverlay behaves like Load, but first applies a YAML file's
// settings on top of the defaults, before the environment (which remains
// authoritative, per the Environment Configuration contract) and final
// validation.
func LoadWithOverlay(path string) (*Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) != "" {
		if err := applyOverlayFile(&cfg, path); err != nil {
			return nil, err
		}
	}
	applyEnvOverrides(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyOverlayFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: reading overlay file: %w", err)
	}

	var o overlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		return fmt.Errorf("config: parsing overlay file: %w", err)
	}

	if o.LLM.Provider != nil {
		cfg.LLM.Provider = *o.LLM.Provider
	}
	if o.LLM.APIKey != nil {
		cfg.LLM.APIKey = *o.LLM.APIKey
	}
	if o.LLM.Model != nil {
		cfg.LLM.Model = *o.LLM.Model
	}
	if o.LLM.Temperature != nil {
		cfg.LLM.Temperature = *o.LLM.Temperature
	}
	if o.LLM.MaxTokens != nil {
		cfg.LLM.MaxTokens = *o.LLM.MaxTokens
	}
	if o.LLM.Region != nil {
		cfg.LLM.Region = *o.LLM.Region
	}
	if o.LLM.AccessKeyID != nil {
		cfg.LLM.AccessKeyID = *o.LLM.AccessKeyID
	}
	if o.LLM.SecretAccessKey != nil {
		cfg.LLM.SecretAccessKey = *o.LLM.SecretAccessKey
	}

	if o.Session.MaxMessages != nil {
		cfg.Session.MaxMessages = *o.Session.MaxMessages
	}
	if o.Session.IdleTimeoutMinutes != nil {
		cfg.Session.IdleTimeout = minutes(*o.Session.IdleTimeoutMinutes)
	}
	if o.Session.CleanupIntervalMins != nil {
		cfg.Session.CleanupInterval = minutes(*o.Session.CleanupIntervalMins)
	}

	if o.Inventory.Path != nil {
		cfg.Inventory.Path = *o.Inventory.Path
	}
	if o.Inventory.Watch != nil {
		cfg.Inventory.Watch = *o.Inventory.Watch
	}

	if o.Logging.Level != nil {
		cfg.Logging.Level = *o.Logging.Level
	}
	if o.Logging.File != nil {
		cfg.Logging.File = *o.Logging.File
	}

	return nil
}
