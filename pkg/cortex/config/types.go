package config

import (
	"path/filepath"
	"strings"
	"time"
)

// Config represents the RedAI configuration. Values are resolved with the
// priority environment > config file > defaults.
type Config struct {
	AI       AIConfig              `mapstructure:"ai" yaml:"ai"`
	Agent    AgentConfig           `mapstructure:"agent" yaml:"agent"`
	Paths    PathsConfig           `mapstructure:"paths" yaml:"paths"`
	Database DatabaseConfig        `mapstructure:"database" yaml:"database"`
	Logging  LoggingConfig         `mapstructure:"logging" yaml:"logging"`
	UI       UIConfig              `mapstructure:"ui" yaml:"ui"`
	Tools    map[string]ToolConfig `mapstructure:"tools" yaml:"tools,omitempty"`
	Metrics  MetricsConfig         `mapstructure:"metrics" yaml:"metrics"`
}

// AIConfig holds LLM provider configuration
type AIConfig struct {
	Provider    string      `mapstructure:"provider" yaml:"provider"`
	Model       string      `mapstructure:"model" yaml:"model"`
	BaseURL     string      `mapstructure:"base_url" yaml:"base_url,omitempty"`
	APIKey      string      `mapstructure:"api_key" yaml:"-"`
	Temperature float64     `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int         `mapstructure:"max_tokens" yaml:"max_tokens"`
	Retry       RetryConfig `mapstructure:"retry" yaml:"retry"`
}

// RetryConfig controls retries of failed LLM calls. Waits are in seconds.
type RetryConfig struct {
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`
	MinWait     int `mapstructure:"min_wait" yaml:"min_wait"`
	MaxWait     int `mapstructure:"max_wait" yaml:"max_wait"`
}

// AgentConfig holds the autonomous agent loop settings
type AgentConfig struct {
	MaxSteps       int    `mapstructure:"max_steps" yaml:"max_steps"`
	CommandTimeout int    `mapstructure:"command_timeout" yaml:"command_timeout"`
	AutoApprove    bool   `mapstructure:"auto_approve" yaml:"auto_approve"`
	MaxHistory     int    `mapstructure:"max_history" yaml:"max_history"`
	DefaultProject string `mapstructure:"default_project" yaml:"default_project"`
}

// PathsConfig holds filesystem locations
type PathsConfig struct {
	Logs     string `mapstructure:"logs" yaml:"logs"`
	Database string `mapstructure:"database" yaml:"database"`
}

// DatabaseConfig selects the history store backend
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	DSN    string `mapstructure:"dsn" yaml:"dsn,omitempty"`
}

// LoggingConfig holds log sink settings
type LoggingConfig struct {
	Level          string `mapstructure:"level" yaml:"level"`
	FileEnabled    bool   `mapstructure:"file_enabled" yaml:"file_enabled"`
	ConsoleEnabled bool   `mapstructure:"console_enabled" yaml:"console_enabled"`
}

// UIConfig holds console rendering settings
type UIConfig struct {
	ShowBanner bool `mapstructure:"show_banner" yaml:"show_banner"`
	Verbose    bool `mapstructure:"verbose" yaml:"verbose"`
	Width      int  `mapstructure:"width" yaml:"width"`
}

// ToolConfig overrides settings for a single command-line tool. Timeout is in seconds.
type ToolConfig struct {
	Timeout int `mapstructure:"timeout" yaml:"timeout"`
}

// MetricsConfig controls the optional status server. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr,omitempty"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		AI: AIConfig{
			Provider:    "openai",
			Temperature: 0.7,
			MaxTokens:   4000,
			Retry: RetryConfig{
				MaxAttempts: 3,
				MinWait:     2,
				MaxWait:     30,
			},
		},
		Agent: AgentConfig{
			MaxSteps:       20,
			CommandTimeout: 120,
			AutoApprove:    false,
			MaxHistory:     15,
			DefaultProject: "General",
		},
		Paths: PathsConfig{
			Logs:     "./logs",
			Database: "./database.db",
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
		},
		Logging: LoggingConfig{
			Level:          "INFO",
			FileEnabled:    true,
			ConsoleEnabled: true,
		},
		UI: UIConfig{
			ShowBanner: true,
			Width:      100,
		},
		Tools: map[string]ToolConfig{},
	}
}

// DefaultToolConfig is merged into every entry of Config.Tools
func DefaultToolConfig() ToolConfig {
	return ToolConfig{Timeout: 300}
}

// Database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// CommandTimeout returns the default per-command timeout
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.Agent.CommandTimeout) * time.Second
}

// ToolTimeouts returns the per-binary timeout overrides keyed by lower-case tool name
func (c *Config) ToolTimeouts() map[string]time.Duration {
	out := make(map[string]time.Duration, len(c.Tools))
	for name, tool := range c.Tools {
		if tool.Timeout <= 0 {
			continue
		}
		out[strings.ToLower(name)] = time.Duration(tool.Timeout) * time.Second
	}
	return out
}

// DatabaseDSN returns the connection string for the configured driver
func (c *Config) DatabaseDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	if c.Database.Driver == DriverSQLite || c.Database.Driver == "" {
		return filepath.Clean(c.Paths.Database)
	}
	return ""
}
