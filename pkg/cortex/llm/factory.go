package llm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/xaviserrafigueras/RedAI/pkg/cortex/config"
	apperrors "github.com/xaviserrafigueras/RedAI/pkg/cortex/errors"
)

// Constructor builds a Client for a resolved AI configuration
type Constructor func(cfg config.AIConfig) (Client, error)

// Registry maps provider API flavours to client constructors
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry creates a registry with the OpenAI-compatible and Anthropic constructors registered
func NewRegistry() *Registry {
	r := &Registry{constructors: make(map[string]Constructor)}
	r.constructors[config.APIOpenAI] = func(cfg config.AIConfig) (Client, error) {
		return NewOpenAIClient(cfg)
	}
	r.constructors[config.APIAnthropic] = func(cfg config.AIConfig) (Client, error) {
		return NewAnthropicClient(cfg)
	}
	return r
}

// Register registers a constructor for an API flavour
func (r *Registry) Register(api string, ctor Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.constructors[api]; exists {
		return fmt.Errorf("constructor for %s already registered", api)
	}
	r.constructors[api] = ctor
	return nil
}

// Get retrieves the constructor for an API flavour
func (r *Registry) Get(api string) (Constructor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ctor, exists := r.constructors[api]
	if !exists {
		return nil, fmt.Errorf("constructor for %s not found", api)
	}
	return ctor, nil
}

// List returns all registered API flavours
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewClient creates a client for the configured provider
func (r *Registry) NewClient(cfg config.AIConfig) (Client, error) {
	provider, ok := config.LookupProvider(cfg.Provider)
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeConfigInvalid,
			fmt.Sprintf("unsupported provider: %s", cfg.Provider), nil)
	}
	if provider.RequiresKey() && cfg.APIKey == "" {
		return nil, apperrors.New(apperrors.ErrCodeConfigInvalid,
			fmt.Sprintf("missing API key for %s: set %s", provider.Name, provider.EnvKeys[0]), nil)
	}
	if cfg.Model == "" {
		cfg.Model = provider.DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = provider.BaseURL
	}

	ctor, err := r.Get(provider.API)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeConfigInvalid, "no client for provider", err)
	}
	return ctor(cfg)
}

// NewClient creates a client for the configured provider using the built-in constructors
func NewClient(cfg config.AIConfig) (Client, error) {
	return NewRegistry().NewClient(cfg)
}
