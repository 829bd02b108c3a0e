// Package config provides configuration loading for the operator daemon.
// Configuration sources (in priority order): env vars > config file > defaults.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all daemon configuration.
type Config struct {
	// ListenAddr is the health/metrics HTTP listen address (default ":8080").
	ListenAddr string `yaml:"listen_addr"`
	// DataDir holds all per-subsystem SQLite files (default "/var/lib/operator").
	DataDir string `yaml:"data_dir"`
	// InboxDir is the operator UI file-inbox directory.
	InboxDir string `yaml:"inbox_dir"`

	// LogLevel: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// LLM settings for the model-router collaborator.
	LLM LLMConfig `yaml:"llm,omitempty"`

	// Telegram operator-notification settings.
	Telegram TelegramConfig `yaml:"telegram,omitempty"`

	// ExpiryHours is how long a pending approval lives before expire_old()
	// is eligible to mark it expired.
	ExpiryHours int `yaml:"expiry_hours"`

	// DedupWindowMinutes is the checkin-log notification dedup window.
	DedupWindowMinutes int `yaml:"dedup_window_minutes"`

	// OperatorTokenHash is the bcrypt hash of the operator's MCP/dashboard
	// bearer token (empty disables auth on that surface).
	OperatorTokenHash string `yaml:"operator_token_hash,omitempty"`

	// KillSwitchActive, when true, activates the kill switch at every boot,
	// not only the first; false never deactivates a switch already active.
	KillSwitchActive bool `yaml:"kill_switch_active"`

	// Persona names the principal the operator posts and distributes
	// video on behalf of. internal/operations uses Name as the video title
	// when a request carries no theme_title, and always uses Description as
	// the video description — core execution logic never hardcodes a
	// principal's name.
	Persona PersonaConfig `yaml:"persona,omitempty"`
}

// PersonaConfig names the operator's principal for content distribution.
type PersonaConfig struct {
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// LLMConfig configures the model-router provider.
type LLMConfig struct {
	Provider string `yaml:"provider,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
	Models   Tiers  `yaml:"models,omitempty"`
}

// Tiers maps a model tier to a concrete model name.
type Tiers struct {
	Cheap string `yaml:"cheap,omitempty"`
	Mid   string `yaml:"mid,omitempty"`
	High  string `yaml:"high,omitempty"`
}

// TelegramConfig configures the Telegram operator-notification adapter.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token,omitempty"`
	ChatID   string `yaml:"chat_id,omitempty"`
}

// Default returns configuration with sensible defaults.
func Default() Config {
	return Config{
		ListenAddr:         ":8080",
		DataDir:            "/var/lib/operator",
		InboxDir:           "/var/lib/operator/content_feedback",
		LogLevel:           "info",
		ExpiryHours:        48,
		DedupWindowMinutes: 240,
		LLM: LLMConfig{
			Models: Tiers{Cheap: "gpt-4o-mini", Mid: "gpt-4o", High: "gpt-4o"},
		},
	}
}

// Load reads configuration from a YAML file, then overlays environment
// variables. path="" skips the file and applies defaults + env only.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if v := os.Getenv("OPERATOR_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("OPERATOR_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("OPERATOR_INBOX_DIR"); v != "" {
		cfg.InboxDir = v
	}
	if v := os.Getenv("OPERATOR_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("OPERATOR_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("OPERATOR_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("OPERATOR_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("OPERATOR_TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("OPERATOR_TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("OPERATOR_EXPIRY_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ExpiryHours = n
		}
	}
	if v := os.Getenv("OPERATOR_DEDUP_WINDOW_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DedupWindowMinutes = n
		}
	}
	if v := os.Getenv("OPERATOR_KILL_SWITCH_ACTIVE"); v != "" {
		cfg.KillSwitchActive = v == "true" || v == "1"
	}
	if v := os.Getenv("OPERATOR_PERSONA_NAME"); v != "" {
		cfg.Persona.Name = v
	}
	if v := os.Getenv("OPERATOR_PERSONA_DESCRIPTION"); v != "" {
		cfg.Persona.Description = v
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables and defaults only.
func LoadFromEnv() Config {
	cfg, _ := Load("")
	return cfg
}
