package llm

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/mimibot/mimi/internal/config"
)

// ProviderSpec selects a backend and model for a single turn. It is a
// value passed per call, never global state, so concurrent turns can use
// different providers without interfering.
type ProviderSpec struct {
	Provider    string  // anthropic, openai, ollama, ninerouter
	Model       string  // provider-specific model name; empty means the configured default
	Temperature float64 // 0 means provider default
}

// KnownProviders lists the provider names Resolve accepts.
var KnownProviders = []string{"anthropic", "openai", "ollama", "ninerouter"}

// Selector resolves ProviderSpec values into concrete clients. Clients
// are constructed lazily and cached per provider name.
type Selector struct {
	cfg    config.ProvidersConfig
	logger *slog.Logger

	mu      sync.Mutex
	clients map[string]Client
}

// NewSelector creates a Selector from provider configuration.
func NewSelector(cfg config.ProvidersConfig, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[string]Client),
	}
}

// DefaultSpec returns the spec for the configured default provider.
func (s *Selector) DefaultSpec() ProviderSpec {
	return ProviderSpec{
		Provider:    s.cfg.Default,
		Model:       s.cfg.DefaultModel,
		Temperature: s.cfg.Temperature,
	}
}

// Resolve returns the client, model name, and request options for a spec.
// Unknown providers are an error; an empty model falls back to the
// configured default for that provider.
func (s *Selector) Resolve(spec ProviderSpec) (Client, string, Options, error) {
	name := spec.Provider
	if name == "" {
		name = s.cfg.Default
	}

	client, err := s.clientFor(name)
	if err != nil {
		return nil, "", Options{}, err
	}

	model := spec.Model
	if model == "" {
		model = s.defaultModelFor(name)
	}
	if model == "" {
		return nil, "", Options{}, fmt.Errorf("no model configured for provider %q", name)
	}

	opts := Options{Temperature: spec.Temperature}
	if opts.Temperature == 0 {
		opts.Temperature = s.cfg.Temperature
	}

	return client, model, opts, nil
}

func (s *Selector) clientFor(name string) (Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[name]; ok {
		return c, nil
	}

	var c Client
	switch name {
	case "anthropic":
		if s.cfg.Anthropic.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key")
		}
		c = NewAnthropicClient(s.cfg.Anthropic.APIKey, s.logger)
	case "openai":
		if s.cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		c = NewOpenAIClient(s.cfg.OpenAI.BaseURL, s.cfg.OpenAI.APIKey, s.logger)
	case "ollama":
		c = NewOpenAIClient(s.cfg.Ollama.BaseURL, "", s.logger)
	case "ninerouter":
		c = NewOpenAIClient(s.cfg.NineRouter.BaseURL, s.cfg.NineRouter.APIKey, s.logger)
	default:
		return nil, fmt.Errorf("unknown provider %q (known: %v)", name, KnownProviders)
	}

	s.clients[name] = c
	return c, nil
}

func (s *Selector) defaultModelFor(name string) string {
	if name == "ollama" && s.cfg.Ollama.Model != "" {
		return s.cfg.Ollama.Model
	}
	return s.cfg.DefaultModel
}
