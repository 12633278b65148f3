package llm

import (
	"testing"

	"github.com/mimibot/mimi/internal/config"
)

func testProviders() config.ProvidersConfig {
	return config.ProvidersConfig{
		Default:      "anthropic",
		DefaultModel: "claude-sonnet-4-20250514",
		Temperature:  0.7,
		Anthropic:    config.AnthropicConfig{APIKey: "sk-test"},
		Ollama:       config.OllamaConfig{BaseURL: "http://localhost:11434/v1", Model: "qwen3"},
	}
}

func TestResolveDefaultSpec(t *testing.T) {
	s := NewSelector(testProviders(), nil)

	client, model, opts, err := s.Resolve(s.DefaultSpec())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, ok := client.(*AnthropicClient); !ok {
		t.Errorf("client = %T, want *AnthropicClient", client)
	}
	if model != "claude-sonnet-4-20250514" {
		t.Errorf("model = %q", model)
	}
	if opts.Temperature != 0.7 {
		t.Errorf("temperature = %v", opts.Temperature)
	}
}

func TestResolveUnknownProvider(t *testing.T) {
	s := NewSelector(testProviders(), nil)
	if _, _, _, err := s.Resolve(ProviderSpec{Provider: "mystery"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestResolveOllamaModelFallback(t *testing.T) {
	s := NewSelector(testProviders(), nil)

	client, model, _, err := s.Resolve(ProviderSpec{Provider: "ollama"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, ok := client.(*OpenAIClient); !ok {
		t.Errorf("client = %T, want *OpenAIClient", client)
	}
	if model != "qwen3" {
		t.Errorf("model = %q, want ollama-configured default", model)
	}
}

func TestResolveSpecOverrides(t *testing.T) {
	s := NewSelector(testProviders(), nil)

	_, model, opts, err := s.Resolve(ProviderSpec{Provider: "anthropic", Model: "claude-haiku-3-5", Temperature: 0.2})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if model != "claude-haiku-3-5" {
		t.Errorf("model = %q", model)
	}
	if opts.Temperature != 0.2 {
		t.Errorf("temperature = %v", opts.Temperature)
	}
}

func TestResolveMissingAnthropicKey(t *testing.T) {
	cfg := testProviders()
	cfg.Anthropic.APIKey = ""
	s := NewSelector(cfg, nil)

	if _, _, _, err := s.Resolve(ProviderSpec{Provider: "anthropic"}); err == nil {
		t.Fatal("expected error when API key is missing")
	}
}

func TestClientsAreCached(t *testing.T) {
	s := NewSelector(testProviders(), nil)

	c1, _, _, err := s.Resolve(ProviderSpec{Provider: "ollama"})
	if err != nil {
		t.Fatal(err)
	}
	c2, _, _, err := s.Resolve(ProviderSpec{Provider: "ollama"})
	if err != nil {
		t.Fatal(err)
	}
	if c1 != c2 {
		t.Error("expected same cached client instance")
	}
}
