package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xaviserrafigueras/RedAI/pkg/cortex/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.resolve())
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "gpt-4o-mini", cfg.AI.Model)
	assert.Equal(t, "https://api.openai.com/v1", cfg.AI.BaseURL)
	assert.Equal(t, 20, cfg.Agent.MaxSteps)
	assert.Equal(t, 120*time.Second, cfg.CommandTimeout())
	assert.Equal(t, "General", cfg.Agent.DefaultProject)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
ai:
  provider: deepseek
  temperature: 0.2
agent:
  max_steps: 5
  command_timeout: 60
tools:
  Nmap:
    timeout: 900
  gobuster: {}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "deepseek", cfg.AI.Provider)
	assert.Equal(t, "deepseek-chat", cfg.AI.Model)
	assert.Equal(t, "https://api.deepseek.com/v1", cfg.AI.BaseURL)
	assert.InDelta(t, 0.2, cfg.AI.Temperature, 1e-9)
	assert.Equal(t, 5, cfg.Agent.MaxSteps)
	assert.Equal(t, 15, cfg.Agent.MaxHistory)

	timeouts := cfg.ToolTimeouts()
	assert.Equal(t, 900*time.Second, timeouts["nmap"])
	assert.Equal(t, 300*time.Second, timeouts["gobuster"])
}

func TestLoad_EmptyToolEntryGetsDefaults(t *testing.T) {
	path := writeConfig(t, `
tools:
  gobuster: {}
  Nikto:
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Contains(t, cfg.Tools, "gobuster")
	require.Contains(t, cfg.Tools, "nikto")
	assert.Equal(t, DefaultToolConfig(), cfg.Tools["gobuster"])
	assert.Equal(t, 300*time.Second, cfg.ToolTimeouts()["nikto"])
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
ai:
  provider: openai
agent:
  max_steps: 5
`)
	t.Setenv("AI_PROVIDER", "ollama")
	t.Setenv("AGENT_MAX_STEPS", "42")
	t.Setenv("AGENT_AUTO_APPROVE", "true")
	t.Setenv("REDAI_PROJECT", "acme")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.AI.Provider)
	assert.Equal(t, "llama3", cfg.AI.Model)
	assert.Equal(t, 42, cfg.Agent.MaxSteps)
	assert.True(t, cfg.Agent.AutoApprove)
	assert.Equal(t, "acme", cfg.Agent.DefaultProject)
}

func TestLoad_ResolvesAPIKeyFromProviderEnv(t *testing.T) {
	path := writeConfig(t, "ai:\n  provider: claude\n")
	t.Setenv("CLAUDE_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-ant-test", cfg.AI.APIKey)
	assert.Equal(t, "claude-3-haiku-20240307", cfg.AI.Model)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeConfigInvalid))
}

func TestValidate_ReportsAllViolations(t *testing.T) {
	cfg := Default()
	cfg.AI.Provider = "skynet"
	cfg.AI.Temperature = 3
	cfg.Agent.MaxSteps = 0
	cfg.Agent.CommandTimeout = 5
	cfg.Logging.Level = "TRACE"
	cfg.Database.Driver = DriverPostgres

	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeConfigInvalid, apperrors.CodeOf(err))

	msg := err.Error()
	assert.Contains(t, msg, "ai.provider")
	assert.Contains(t, msg, "ai.temperature")
	assert.Contains(t, msg, "agent.max_steps")
	assert.Contains(t, msg, "agent.command_timeout")
	assert.Contains(t, msg, "logging.level")
	assert.Contains(t, msg, "database.dsn")
}

func TestValidate_RetryWindow(t *testing.T) {
	cfg := Default()
	cfg.AI.Retry.MinWait = 10
	cfg.AI.Retry.MaxWait = 5

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_wait")
}

func TestSave_RoundTripsWithoutAPIKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.AI.APIKey = "sk-secret"
	cfg.Agent.MaxSteps = 7

	require.NoError(t, Save(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-secret")

	t.Setenv("OPENAI_API_KEY", "")
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Agent.MaxSteps)
	assert.Empty(t, loaded.AI.APIKey)
}

func TestLookupProvider(t *testing.T) {
	p, ok := LookupProvider(" OpenAI ")
	require.True(t, ok)
	assert.Equal(t, APIOpenAI, p.API)
	assert.True(t, p.RequiresKey())

	ollama, ok := LookupProvider("ollama")
	require.True(t, ok)
	assert.False(t, ollama.RequiresKey())

	_, ok = LookupProvider("unknown")
	assert.False(t, ok)

	assert.Equal(t, []string{"claude", "deepseek", "ollama", "openai"}, ProviderNames())
}

func TestDatabaseDSN(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "database.db", cfg.DatabaseDSN())

	cfg.Database.Driver = DriverPostgres
	cfg.Database.DSN = "postgres://localhost/redai"
	assert.Equal(t, "postgres://localhost/redai", cfg.DatabaseDSN())
}
