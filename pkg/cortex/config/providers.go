package config

import (
	"os"
	"sort"
	"strings"
)

// API flavours spoken by the supported providers
const (
	APIOpenAI    = "openai"
	APIAnthropic = "anthropic"
)

// Provider describes an LLM provider preset
type Provider struct {
	Name         string
	API          string
	BaseURL      string
	EnvKeys      []string
	DefaultModel string
}

// RequiresKey reports whether the provider needs an API key
func (p Provider) RequiresKey() bool {
	return len(p.EnvKeys) > 0
}

// ResolveKey returns the first non-empty API key from the provider's environment variables
func (p Provider) ResolveKey() string {
	for _, env := range p.EnvKeys {
		if key := strings.TrimSpace(os.Getenv(env)); key != "" {
			return key
		}
	}
	return ""
}

var providers = map[string]Provider{
	"openai": {
		Name:         "openai",
		API:          APIOpenAI,
		BaseURL:      "https://api.openai.com/v1",
		EnvKeys:      []string{"OPENAI_API_KEY"},
		DefaultModel: "gpt-4o-mini",
	},
	"deepseek": {
		Name:         "deepseek",
		API:          APIOpenAI,
		BaseURL:      "https://api.deepseek.com/v1",
		EnvKeys:      []string{"DEEPSEEK_API_KEY"},
		DefaultModel: "deepseek-chat",
	},
	"claude": {
		Name:         "claude",
		API:          APIAnthropic,
		BaseURL:      "https://api.anthropic.com",
		EnvKeys:      []string{"CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
		DefaultModel: "claude-3-haiku-20240307",
	},
	"ollama": {
		Name:         "ollama",
		API:          APIOpenAI,
		BaseURL:      "http://localhost:11434/v1",
		DefaultModel: "llama3",
	},
}

// LookupProvider returns the preset for name (case-insensitive)
func LookupProvider(name string) (Provider, bool) {
	p, ok := providers[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// ProviderNames returns the supported provider names in sorted order
func ProviderNames() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
