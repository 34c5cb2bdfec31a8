package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dario.cat/mergo"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	apperrors "github.com/xaviserrafigueras/RedAI/pkg/cortex/errors"
)

// DefaultConfigFiles are tried in order when no explicit path is given
var DefaultConfigFiles = []string{"config.yaml", "config.yml", "config.local.yaml"}

// LogLevels accepted by logging.level
var LogLevels = []string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"}

// envBindings maps configuration keys to the environment variables that override them
var envBindings = map[string]string{
	"ai.provider":           "AI_PROVIDER",
	"ai.model":              "AI_MODEL",
	"ai.base_url":           "AI_BASE_URL",
	"ai.temperature":        "AI_TEMPERATURE",
	"ai.max_tokens":         "AI_MAX_TOKENS",
	"agent.max_steps":       "AGENT_MAX_STEPS",
	"agent.command_timeout": "AGENT_COMMAND_TIMEOUT",
	"agent.auto_approve":    "AGENT_AUTO_APPROVE",
	"agent.max_history":     "AGENT_MAX_HISTORY",
	"agent.default_project": "REDAI_PROJECT",
	"logging.level":         "LOG_LEVEL",
	"database.driver":       "DATABASE_DRIVER",
	"database.dsn":          "DATABASE_DSN",
	"metrics.addr":          "METRICS_ADDR",
}

// Load resolves the configuration from .env, the given YAML file (or the
// first default file found) and the environment, then validates it.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.New(apperrors.ErrCodeConfigInvalid, "failed to load .env file", err)
	}

	v := viper.New()
	setDefaults(v, Default())
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, apperrors.New(apperrors.ErrCodeConfigInvalid, fmt.Sprintf("failed to bind %s", env), err)
		}
	}

	file := path
	if file == "" {
		file = findConfigFile()
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, apperrors.New(apperrors.ErrCodeConfigInvalid, fmt.Sprintf("failed to read config file %s", file), err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, apperrors.New(apperrors.ErrCodeConfigInvalid, "failed to decode configuration", err)
	}
	// Unmarshal drops empty entries like "gobuster: {}"; they still get defaults.
	for name := range v.GetStringMap("tools") {
		if cfg.Tools == nil {
			cfg.Tools = map[string]ToolConfig{}
		}
		if _, ok := cfg.Tools[name]; !ok {
			cfg.Tools[name] = ToolConfig{}
		}
	}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	for _, name := range DefaultConfigFiles {
		if info, err := os.Stat(name); err == nil && !info.IsDir() {
			return name
		}
	}
	return ""
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("ai.provider", d.AI.Provider)
	v.SetDefault("ai.model", d.AI.Model)
	v.SetDefault("ai.base_url", d.AI.BaseURL)
	v.SetDefault("ai.temperature", d.AI.Temperature)
	v.SetDefault("ai.max_tokens", d.AI.MaxTokens)
	v.SetDefault("ai.retry.max_attempts", d.AI.Retry.MaxAttempts)
	v.SetDefault("ai.retry.min_wait", d.AI.Retry.MinWait)
	v.SetDefault("ai.retry.max_wait", d.AI.Retry.MaxWait)
	v.SetDefault("agent.max_steps", d.Agent.MaxSteps)
	v.SetDefault("agent.command_timeout", d.Agent.CommandTimeout)
	v.SetDefault("agent.auto_approve", d.Agent.AutoApprove)
	v.SetDefault("agent.max_history", d.Agent.MaxHistory)
	v.SetDefault("agent.default_project", d.Agent.DefaultProject)
	v.SetDefault("paths.logs", d.Paths.Logs)
	v.SetDefault("paths.database", d.Paths.Database)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file_enabled", d.Logging.FileEnabled)
	v.SetDefault("logging.console_enabled", d.Logging.ConsoleEnabled)
	v.SetDefault("ui.show_banner", d.UI.ShowBanner)
	v.SetDefault("ui.verbose", d.UI.Verbose)
	v.SetDefault("ui.width", d.UI.Width)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
}

// resolve fills values derived from the provider preset and merges tool defaults
func (c *Config) resolve() error {
	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
	c.Logging.Level = strings.ToUpper(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "WARN" {
		c.Logging.Level = "WARNING"
	}

	if provider, ok := LookupProvider(c.AI.Provider); ok {
		if c.AI.Model == "" {
			c.AI.Model = provider.DefaultModel
		}
		if c.AI.BaseURL == "" {
			c.AI.BaseURL = provider.BaseURL
		}
		if c.AI.APIKey == "" {
			c.AI.APIKey = provider.ResolveKey()
		}
	}

	if c.Tools == nil {
		c.Tools = map[string]ToolConfig{}
	}
	merged := make(map[string]ToolConfig, len(c.Tools))
	for name, tool := range c.Tools {
		if err := mergo.Merge(&tool, DefaultToolConfig()); err != nil {
			return apperrors.New(apperrors.ErrCodeConfigInvalid, fmt.Sprintf("failed to merge defaults for tool %s", name), err)
		}
		merged[strings.ToLower(name)] = tool
	}
	c.Tools = merged
	return nil
}

// Validate checks every field range and reports all violations at once
func (c *Config) Validate() error {
	var result *multierror.Error

	if _, ok := LookupProvider(c.AI.Provider); !ok {
		result = multierror.Append(result, fmt.Errorf("ai.provider %q must be one of %s", c.AI.Provider, strings.Join(ProviderNames(), ", ")))
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		result = multierror.Append(result, fmt.Errorf("ai.temperature must be between 0 and 2, got %v", c.AI.Temperature))
	}
	if c.AI.MaxTokens < 1 || c.AI.MaxTokens > 128000 {
		result = multierror.Append(result, fmt.Errorf("ai.max_tokens must be between 1 and 128000, got %d", c.AI.MaxTokens))
	}
	if c.AI.Retry.MaxAttempts < 1 || c.AI.Retry.MaxAttempts > 10 {
		result = multierror.Append(result, fmt.Errorf("ai.retry.max_attempts must be between 1 and 10, got %d", c.AI.Retry.MaxAttempts))
	}
	if c.AI.Retry.MinWait < 1 {
		result = multierror.Append(result, fmt.Errorf("ai.retry.min_wait must be at least 1, got %d", c.AI.Retry.MinWait))
	}
	if c.AI.Retry.MaxWait < c.AI.Retry.MinWait {
		result = multierror.Append(result, fmt.Errorf("ai.retry.max_wait (%d) must not be below min_wait (%d)", c.AI.Retry.MaxWait, c.AI.Retry.MinWait))
	}

	if c.Agent.MaxSteps < 1 || c.Agent.MaxSteps > 100 {
		result = multierror.Append(result, fmt.Errorf("agent.max_steps must be between 1 and 100, got %d", c.Agent.MaxSteps))
	}
	if c.Agent.CommandTimeout < 10 || c.Agent.CommandTimeout > 3600 {
		result = multierror.Append(result, fmt.Errorf("agent.command_timeout must be between 10 and 3600, got %d", c.Agent.CommandTimeout))
	}
	if c.Agent.MaxHistory < 1 || c.Agent.MaxHistory > 50 {
		result = multierror.Append(result, fmt.Errorf("agent.max_history must be between 1 and 50, got %d", c.Agent.MaxHistory))
	}
	if strings.TrimSpace(c.Agent.DefaultProject) == "" {
		result = multierror.Append(result, fmt.Errorf("agent.default_project must not be empty"))
	}

	if !validLogLevel(c.Logging.Level) {
		result = multierror.Append(result, fmt.Errorf("logging.level %q must be one of %s", c.Logging.Level, strings.Join(LogLevels, ", ")))
	}

	switch c.Database.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.Database.DSN == "" {
			result = multierror.Append(result, fmt.Errorf("database.dsn is required for the postgres driver"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("database.driver %q must be %s or %s", c.Database.Driver, DriverSQLite, DriverPostgres))
	}

	names := make([]string, 0, len(c.Tools))
	for name := range c.Tools {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if c.Tools[name].Timeout < 1 {
			result = multierror.Append(result, fmt.Errorf("tools.%s.timeout must be positive, got %d", name, c.Tools[name].Timeout))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return apperrors.New(apperrors.ErrCodeConfigInvalid, "invalid configuration", err)
	}
	return nil
}

func validLogLevel(level string) bool {
	for _, l := range LogLevels {
		if l == level {
			return true
		}
	}
	return false
}

// Save writes the configuration as YAML. API keys are never written.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return apperrors.New(apperrors.ErrCodeConfigInvalid, "failed to encode configuration", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperrors.New(apperrors.ErrCodeConfigInvalid, "failed to create config directory", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperrors.New(apperrors.ErrCodeConfigInvalid, fmt.Sprintf("failed to write %s", path), err)
	}
	return nil
}
