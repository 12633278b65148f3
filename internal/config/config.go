// Package config handles Mimi configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mimibot/mimi/internal/paths"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/mimi/config.yaml, /etc/mimi/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "mimi", "config.yaml"))
	}

	paths = append(paths, "/etc/mimi/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Mimi configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Providers ProvidersConfig `yaml:"providers"`
	History   HistoryConfig   `yaml:"history"`
	Memory    MemoryConfig    `yaml:"memory"`
	Search    SearchConfig    `yaml:"search"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Forge     ForgeConfig     `yaml:"forge"`
	Email     EmailConfig     `yaml:"email"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	ShellExec ShellExecConfig `yaml:"shell_exec"`
	Personas  []PersonaConfig `yaml:"personas"`
	DataDir   string          `yaml:"data_dir"`
	Timezone  string          `yaml:"timezone"`
	LogLevel  string          `yaml:"log_level"`
}

// TelegramConfig defines the Telegram transport settings.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	// AllowedUserIDs restricts who may talk to the bot.
	// Empty means everyone is allowed.
	AllowedUserIDs []int64 `yaml:"allowed_user_ids"`
	// PollTimeoutSec is the long-poll timeout for getUpdates (default 30).
	PollTimeoutSec int `yaml:"poll_timeout_sec"`
}

// ProvidersConfig defines model backend settings. Default names the
// provider used when a persona has no override.
type ProvidersConfig struct {
	Default      string  `yaml:"default"`       // anthropic, openai, ollama, ninerouter
	DefaultModel string  `yaml:"default_model"` // model name for the default provider
	Temperature  float64 `yaml:"temperature"`

	Anthropic  AnthropicConfig  `yaml:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Ollama     OllamaConfig     `yaml:"ollama"`
	NineRouter NineRouterConfig `yaml:"ninerouter"`
}

// AnthropicConfig defines Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
}

// OpenAIConfig defines OpenAI API settings.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"` // defaults to the public API
}

// OllamaConfig defines the local Ollama endpoint.
type OllamaConfig struct {
	BaseURL string `yaml:"base_url"` // default http://localhost:11434/v1
	Model   string `yaml:"model"`
}

// NineRouterConfig defines the 9Router OpenAI-compatible proxy.
type NineRouterConfig struct {
	BaseURL string `yaml:"base_url"` // default http://localhost:20128/v1
	APIKey  string `yaml:"api_key"`
}

// HistoryConfig tunes the conversation store window and retention.
type HistoryConfig struct {
	// WindowMessages is the number of recent messages loaded per turn
	// (default 40). The window is message-count bounded, not token
	// bounded: a deliberate simplification that avoids shipping a
	// tokenizer in the core.
	WindowMessages int `yaml:"window_messages"`
	// KeepLast is the per-conversation retention applied after every
	// turn (default 100).
	KeepLast int `yaml:"keep_last"`
	// MaxSteps caps tool-use rounds within one turn (default 10).
	MaxSteps int `yaml:"max_steps"`
}

// MemoryConfig defines the long-term memory gateway sidecar.
type MemoryConfig struct {
	// BaseURL of the OpenMemory-compatible HTTP service.
	// Empty disables long-term memory.
	BaseURL string `yaml:"base_url"`
}

// SearchConfig defines web search providers.
type SearchConfig struct {
	// TavilyAPIKey enables Tavily as the primary provider.
	// DuckDuckGo is always available as fallback and needs no key.
	TavilyAPIKey string `yaml:"tavily_api_key"`
}

// FetchConfig defines the headless-browser page fetch sidecar.
type FetchConfig struct {
	// CamoufoxURL is the Camoufox control endpoint
	// (default http://localhost:9377). The fetcher falls back to a
	// plain HTTP GET when the sidecar is unreachable.
	CamoufoxURL string `yaml:"camoufox_url"`
}

// ForgeConfig defines code-hosting access for pull request tools.
type ForgeConfig struct {
	GitHubToken  string `yaml:"github_token"`
	DefaultOwner string `yaml:"default_owner"`
	DefaultRepo  string `yaml:"default_repo"`
}

// EmailConfig defines the external mail CLI.
type EmailConfig struct {
	// GogBinary is the gog CLI path (default "gog"). Empty string
	// keeps the default; set enabled=false to turn email tools off.
	GogBinary string `yaml:"gog_binary"`
	Enabled   bool   `yaml:"enabled"`
}

// WorkspaceConfig defines the agent's workspace for file operations.
type WorkspaceConfig struct {
	// Path is the root directory for file operations.
	// All file tool paths are relative to this directory.
	// If empty, file tools are disabled.
	Path string `yaml:"path"`
}

// ShellExecConfig defines shell execution capabilities.
type ShellExecConfig struct {
	// Enabled allows shell command execution. Disabled by default for safety.
	Enabled bool `yaml:"enabled"`
	// WorkingDir sets the default working directory for commands.
	WorkingDir string `yaml:"working_dir"`
	// DeniedPatterns are command patterns to block (e.g., "rm -rf /").
	DeniedPatterns []string `yaml:"denied_patterns"`
	// DefaultTimeoutSec is the default timeout in seconds (default 30).
	DefaultTimeoutSec int `yaml:"default_timeout_sec"`
}

// PersonaConfig overrides a built-in persona or defines a new one.
type PersonaConfig struct {
	Name         string  `yaml:"name"`
	IdentityFile string  `yaml:"identity_file"`
	ReferenceDir string  `yaml:"reference_dir"`
	Bundle       string  `yaml:"bundle"`
	Provider     string  `yaml:"provider"`
	Model        string  `yaml:"model"`
	Temperature  float64 `yaml:"temperature"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	cfg := &Config{
		Providers: ProvidersConfig{
			Default:      "anthropic",
			DefaultModel: "claude-3-5-sonnet-20241022",
			Temperature:  0.3,
		},
		DataDir:  "data",
		Timezone: "Asia/Ho_Chi_Minh",
	}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills zero values that have non-zero defaults.
func (c *Config) applyDefaults() {
	if c.Telegram.PollTimeoutSec <= 0 {
		c.Telegram.PollTimeoutSec = 30
	}
	if c.History.WindowMessages <= 0 {
		c.History.WindowMessages = 40
	}
	if c.History.KeepLast <= 0 {
		c.History.KeepLast = 100
	}
	if c.History.MaxSteps <= 0 {
		c.History.MaxSteps = 10
	}
	if c.Providers.Ollama.BaseURL == "" {
		c.Providers.Ollama.BaseURL = "http://localhost:11434/v1"
	}
	if c.Providers.NineRouter.BaseURL == "" {
		c.Providers.NineRouter.BaseURL = "http://localhost:20128/v1"
	}
	if c.Fetch.CamoufoxURL == "" {
		c.Fetch.CamoufoxURL = "http://localhost:9377"
	}
	if c.Email.GogBinary == "" {
		c.Email.GogBinary = "gog"
	}
	if c.ShellExec.DefaultTimeoutSec <= 0 {
		c.ShellExec.DefaultTimeoutSec = 30
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}

	// Tilde paths keep one config file portable across machines.
	c.DataDir = paths.ExpandHome(c.DataDir)
	c.Workspace.Path = paths.ExpandHome(c.Workspace.Path)
	c.ShellExec.WorkingDir = paths.ExpandHome(c.ShellExec.WorkingDir)
	for i := range c.Personas {
		c.Personas[i].IdentityFile = paths.ExpandHome(c.Personas[i].IdentityFile)
		c.Personas[i].ReferenceDir = paths.ExpandHome(c.Personas[i].ReferenceDir)
	}
}

// DatabasePath returns the SQLite database location under the data dir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "mimi.db")
}

// Location resolves the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks the configuration for serve mode.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	switch c.Providers.Default {
	case "anthropic", "openai", "ollama", "ninerouter":
	default:
		return fmt.Errorf("unknown default provider %q (valid: anthropic, openai, ollama, ninerouter)", c.Providers.Default)
	}
	if c.Providers.Default == "anthropic" && c.Providers.Anthropic.APIKey == "" {
		return fmt.Errorf("providers.anthropic.api_key is required when anthropic is the default provider")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
