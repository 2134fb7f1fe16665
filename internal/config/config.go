package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/hochfrequenz/repo-migrator/internal/domain"
)

// Config holds all application configuration. It is constructed once at
// startup and passed down explicitly; no component reads the environment
// on its own.
type Config struct {
	General       GeneralConfig       `toml:"general"`
	LLM           LLMConfig           `toml:"llm"`
	Executor      ExecutorConfig      `toml:"executor"`
	Notifications NotificationsConfig `toml:"notifications"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	CloneDir         string `toml:"clone_dir"`
	Concurrency      int    `toml:"concurrency"`
	MaxContextTokens int    `toml:"max_context_tokens"`
	DatabasePath     string `toml:"database_path"`
}

// LLMConfig holds strategy-generation API settings. The API key is never
// read from the config file; it comes from the --api-key flag or the
// OPENAI_API_KEY environment variable, resolved once in ResolveAPIKey.
type LLMConfig struct {
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
	APIKey    string `toml:"-"`
}

// ExecutorConfig holds settings for the external migration executor
type ExecutorConfig struct {
	Command     string `toml:"command"`
	MaxTurns    int    `toml:"max_turns"`
	TestCommand string `toml:"test_command"`
}

// NotificationsConfig holds notification settings
type NotificationsConfig struct {
	Desktop      bool   `toml:"desktop"`
	SlackWebhook string `toml:"slack_webhook"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			CloneDir:         filepath.Join(home, ".repo-migrator", "repos"),
			Concurrency:      4,
			MaxContextTokens: 100000,
			DatabasePath:     filepath.Join(home, ".repo-migrator", "runs.db"),
		},
		LLM: LLMConfig{
			Model:     "gpt-4.1",
			MaxTokens: 8192,
		},
		Executor: ExecutorConfig{
			Command:     "claude",
			MaxTurns:    50,
			TestCommand: "",
		},
		Notifications: NotificationsConfig{
			Desktop: false,
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.General.CloneDir = ExpandPath(cfg.General.CloneDir)
	cfg.General.DatabasePath = ExpandPath(cfg.General.DatabasePath)

	return cfg, nil
}

// ResolveAPIKey fills in the LLM API key from the flag value or the
// environment. A missing key is a precondition failure for the whole run.
func (c *Config) ResolveAPIKey(flagValue string) error {
	key := flagValue
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" {
		return &domain.ConfigError{Reason: "no API key: set OPENAI_API_KEY or pass --api-key"}
	}
	c.LLM.APIKey = key
	return nil
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "repo-migrator", "config.toml")
}
