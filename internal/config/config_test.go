package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hochfrequenz/repo-migrator/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.General.Concurrency != 4 {
		t.Errorf("Concurrency = %d, want 4", cfg.General.Concurrency)
	}
	if cfg.General.MaxContextTokens != 100000 {
		t.Errorf("MaxContextTokens = %d, want 100000", cfg.General.MaxContextTokens)
	}
	if cfg.Executor.Command != "claude" {
		t.Errorf("Executor.Command = %q, want claude", cfg.Executor.Command)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[general]
concurrency = 8
max_context_tokens = 50000

[llm]
model = "gpt-4.1-mini"

[executor]
test_command = "npm test"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.General.Concurrency != 8 {
		t.Errorf("Concurrency = %d, want 8", cfg.General.Concurrency)
	}
	if cfg.LLM.Model != "gpt-4.1-mini" {
		t.Errorf("Model = %q, want gpt-4.1-mini", cfg.LLM.Model)
	}
	if cfg.Executor.TestCommand != "npm test" {
		t.Errorf("TestCommand = %q, want npm test", cfg.Executor.TestCommand)
	}
	// Unset fields keep defaults
	if cfg.Executor.MaxTurns != 50 {
		t.Errorf("MaxTurns = %d, want default 50", cfg.Executor.MaxTurns)
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("not [valid toml"), 0644)

	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed config")
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg := Default()
	err := cfg.ResolveAPIKey("")
	var cfgErr *domain.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}

	if err := cfg.ResolveAPIKey("sk-flag"); err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.APIKey != "sk-flag" {
		t.Errorf("APIKey = %q, want sk-flag", cfg.LLM.APIKey)
	}

	t.Setenv("OPENAI_API_KEY", "sk-env")
	cfg = Default()
	if err := cfg.ResolveAPIKey(""); err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.APIKey != "sk-env" {
		t.Errorf("APIKey = %q, want sk-env", cfg.LLM.APIKey)
	}

	// Flag wins over environment
	cfg = Default()
	if err := cfg.ResolveAPIKey("sk-flag"); err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.APIKey != "sk-flag" {
		t.Errorf("APIKey = %q, want flag value over env", cfg.LLM.APIKey)
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()
	if got := ExpandPath("~/x"); got != filepath.Join(home, "x") {
		t.Errorf("ExpandPath(~/x) = %q", got)
	}
	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("ExpandPath(/abs/path) = %q", got)
	}
}
