// Mimi is a personal AI assistant that lives in Telegram.
//
// It long-polls the Telegram Bot API and routes each message to an
// agent persona (assistant, social writer, blog writer) backed by a
// configurable model provider. Configuration is loaded from a single
// YAML file discovered automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	mimi serve               Start the Telegram bot
//	mimi init [dir]          Initialize a working directory with defaults
//	mimi ask <question>      Ask a single question (for testing)
//	mimi version             Print version and build information
//	mimi -o json version     Output version information as JSON
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mimibot/mimi/internal/agent"
	"github.com/mimibot/mimi/internal/buildinfo"
	"github.com/mimibot/mimi/internal/config"
	"github.com/mimibot/mimi/internal/email"
	"github.com/mimibot/mimi/internal/fetch"
	"github.com/mimibot/mimi/internal/forge"
	"github.com/mimibot/mimi/internal/history"
	"github.com/mimibot/mimi/internal/llm"
	"github.com/mimibot/mimi/internal/memory"
	"github.com/mimibot/mimi/internal/prompts"
	"github.com/mimibot/mimi/internal/search"
	"github.com/mimibot/mimi/internal/tasks"
	"github.com/mimibot/mimi/internal/telegram"
	"github.com/mimibot/mimi/internal/tools"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run]. This keeps
// os.Exit, os.Stdout, and os.Args out of the application logic so that
// the full startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the mimi command. All OS-level
// dependencies are injected as parameters:
//
//   - ctx controls the lifetime of the process. Cancelling it triggers
//     graceful shutdown of the bot and background goroutines.
//   - stdout and stderr receive all program output. Structured logs go
//     to stdout; fatal error messages go to stderr.
//   - args is os.Args[1:] — the command-line arguments after the program
//     name. We parse these manually rather than using the flag package
//     to avoid global state that interferes with parallel tests.
//
// run returns nil on clean shutdown and a non-nil error for any failure.
// The caller (main) is responsible for printing the error and exiting.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	// Parse arguments by hand. The flag package relies on package-level
	// globals (flag.CommandLine), which makes it impossible to call run()
	// concurrently from tests. Our argument surface is small enough that
	// manual parsing is clearer than bringing in a CLI framework.
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++ // skip the value
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				// Collect remaining args as subcommand arguments.
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	// Default to human-readable text output.
	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, stderr, configPath)
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: mimi ask <question>")
		}
		return runAsk(ctx, stdout, stderr, configPath, cmdArgs)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	// Print fields in a stable order for human readability.
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w. It is called when
// mimi is invoked with no arguments, or with -h / --help.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Mimi - Personal AI Assistant for Telegram")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: mimi [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the Telegram bot")
	fmt.Fprintln(w, "  init [dir]   Initialize working directory with defaults (default: .)")
	fmt.Fprintln(w, "  ask          Ask a single question (for testing)")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/mimi/config.yaml, /etc/mimi/config.yaml")
	return nil
}

// runAsk handles the "mimi ask <question>" subcommand. It boots a
// minimal agent (in-memory stores, no Telegram, no memory sidecar) and
// processes a single question, printing the response to stdout. Useful
// for quick smoke tests and debugging without starting the bot.
func runAsk(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath string, args []string) error {
	logger := newLogger(stderr, slog.LevelWarn, "text")

	question := strings.Join(args, " ")

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Nothing to persist for a one-shot question.
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return fmt.Errorf("open in-memory database: %w", err)
	}
	defer db.Close()

	hist, err := history.NewStoreWithDB(db)
	if err != nil {
		return fmt.Errorf("create history store: %w", err)
	}
	taskStore, err := tasks.NewStoreWithDB(db)
	if err != nil {
		return fmt.Errorf("create task store: %w", err)
	}

	// Minimal tool set: tasks, search, and page fetch. Email, forge,
	// files, and shell stay behind serve-mode configuration.
	registry := tools.NewRegistry()
	tasks.RegisterTools(registry, taskStore)
	newSearchManager(cfg, logger).RegisterTools(registry)
	fetch.New(fetch.NewCamoufox(cfg.Fetch.CamoufoxURL, logger), logger).RegisterTools(registry)
	registry.DefineBundle("research", "web_search", "fetch_page")

	selector := llm.NewSelector(cfg.Providers, logger)
	personas := buildPersonas(cfg)

	loop := agent.NewLoop(hist, nil, registry, selector.Resolve, logger)
	loop.SetLocation(cfg.Location())

	response, err := loop.RunTurn(ctx, "cli-test", question, agent.TurnConfig{
		Persona:  personas["assistant"],
		Provider: selector.DefaultSpec(),
	}, nil)
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	fmt.Fprintln(stdout, response)
	return nil
}

// runServe handles the "mimi serve" subcommand. It is the primary
// operating mode: loads config, opens the database, registers tools,
// initializes the agent loop and personas, and long-polls Telegram
// until a shutdown signal arrives.
func runServe(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo, "text")
	logger.Info("starting Mimi", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", cfgPath, err)
	}

	// Reconfigure the logger now that we know the desired level. The
	// initial Info-level logger covers only the startup banner.
	{
		// ParseLogLevel was already checked by Validate, so the error
		// path is unreachable in practice.
		level, _ := config.ParseLogLevel(cfg.LogLevel)
		logger = newLogger(stdout, level, "text")
	}

	logger.Info("config loaded",
		"path", cfgPath,
		"provider", cfg.Providers.Default,
		"model", cfg.Providers.DefaultModel,
		"data_dir", cfg.DataDir,
	)

	// --- Data directory and database ---
	// Conversation history and tasks share one SQLite database under the
	// data directory.
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}

	db, err := sql.Open("sqlite", cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("open database %s: %w", cfg.DatabasePath(), err)
	}
	defer db.Close()

	hist, err := history.NewStoreWithDB(db)
	if err != nil {
		return fmt.Errorf("create history store: %w", err)
	}
	taskStore, err := tasks.NewStoreWithDB(db)
	if err != nil {
		return fmt.Errorf("create task store: %w", err)
	}
	logger.Info("database opened", "path", cfg.DatabasePath())

	// --- Tool registry ---
	registry := tools.NewRegistry()
	tasks.RegisterTools(registry, taskStore)

	// Long-term memory sidecar. Optional; without it the agent still has
	// per-conversation history, just no remembered facts.
	var gateway memory.Gateway
	if cfg.Memory.BaseURL != "" {
		gw := memory.NewClient(cfg.Memory.BaseURL, logger)
		memory.RegisterTools(registry, gw)
		gateway = gw
		logger.Info("memory gateway enabled", "url", cfg.Memory.BaseURL)
	} else {
		logger.Info("memory gateway disabled (no base_url configured)")
	}

	// Web search and page fetch are always available: DuckDuckGo needs
	// no key and the fetcher degrades to plain HTTP when the Camoufox
	// sidecar is unreachable.
	newSearchManager(cfg, logger).RegisterTools(registry)
	fetch.New(fetch.NewCamoufox(cfg.Fetch.CamoufoxURL, logger), logger).RegisterTools(registry)

	// File tools, sandboxed to the workspace directory.
	if cfg.Workspace.Path != "" {
		tools.NewFileTools(cfg.Workspace.Path).RegisterTools(registry)
		logger.Info("file tools enabled", "workspace", cfg.Workspace.Path)
	} else {
		logger.Info("file tools disabled (no workspace path configured)")
	}

	// Shell exec. Disabled by default for safety.
	if cfg.ShellExec.Enabled {
		shellCfg := tools.ShellExecConfig{
			Enabled:        true,
			WorkingDir:     cfg.ShellExec.WorkingDir,
			DeniedCmds:     cfg.ShellExec.DeniedPatterns,
			DefaultTimeout: time.Duration(cfg.ShellExec.DefaultTimeoutSec) * time.Second,
		}
		if len(shellCfg.DeniedCmds) == 0 {
			shellCfg.DeniedCmds = tools.DefaultShellExecConfig().DeniedCmds
		}
		tools.NewShellExec(shellCfg).RegisterTools(registry)
		logger.Info("shell exec enabled", "working_dir", cfg.ShellExec.WorkingDir)
	} else {
		logger.Info("shell exec disabled")
	}

	// GitHub pull request tools. The tools register unconditionally and
	// report "not configured" at call time when no token is set, so the
	// model gets a clear error instead of an absent tool.
	var gh *forge.GitHub
	if cfg.Forge.GitHubToken != "" {
		gh, err = forge.NewGitHub(nil, cfg.Forge.GitHubToken, "", logger)
		if err != nil {
			return fmt.Errorf("create github client: %w", err)
		}
		logger.Info("github enabled", "default_repo", forgeDefaultRepo(cfg))
	}
	forge.NewTools(gh, forgeDefaultRepo(cfg)).RegisterTools(registry)

	// Email via the gog CLI.
	if cfg.Email.Enabled {
		email.NewGog(cfg.Email.GogBinary, logger).RegisterTools(registry)
		logger.Info("email tools enabled", "binary", cfg.Email.GogBinary)
	} else {
		logger.Info("email tools disabled")
	}

	// The research bundle is the narrow tool set for the writing
	// personas; "general" (everything) is predefined by the registry.
	registry.DefineBundle("research", "web_search", "fetch_page")
	logger.Info("tools registered", "tools", registry.Names())

	// --- Model providers and personas ---
	selector := llm.NewSelector(cfg.Providers, logger)
	personas := buildPersonas(cfg)

	// --- Agent loop ---
	loop := agent.NewLoop(hist, gateway, registry, selector.Resolve, logger)
	loop.SetWindow(cfg.History.WindowMessages, cfg.History.KeepLast)
	loop.SetMaxSteps(cfg.History.MaxSteps)
	loop.SetLocation(cfg.Location())

	// --- Telegram transport ---
	client := telegram.NewClient(cfg.Telegram.BotToken, logger)
	bot := telegram.New(client, loop, hist, personas, selector.DefaultSpec, telegram.Options{
		AllowedUserIDs: cfg.Telegram.AllowedUserIDs,
		PollTimeout:    time.Duration(cfg.Telegram.PollTimeoutSec) * time.Second,
	}, logger)

	// --- Signal handling ---
	// NotifyContext wraps the parent context so that SIGINT/SIGTERM
	// cancellation flows through the same ctx used by all components.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := bot.Run(ctx); err != nil {
		if ctx.Err() == nil {
			return fmt.Errorf("bot failed: %w", err)
		}
	}

	logger.Info("Mimi stopped")
	return nil
}

// newSearchManager builds the web search stack: Tavily when a key is
// configured, DuckDuckGo always as fallback.
func newSearchManager(cfg *config.Config, logger *slog.Logger) *search.Manager {
	var primary search.Provider
	if cfg.Search.TavilyAPIKey != "" {
		primary = search.NewTavily(cfg.Search.TavilyAPIKey)
	}
	return search.NewManager(primary, search.NewDuckDuckGo(), logger)
}

// forgeDefaultRepo joins the configured owner and repo, or returns ""
// when either half is missing.
func forgeDefaultRepo(cfg *config.Config) string {
	if cfg.Forge.DefaultOwner == "" || cfg.Forge.DefaultRepo == "" {
		return ""
	}
	return cfg.Forge.DefaultOwner + "/" + cfg.Forge.DefaultRepo
}

// buildPersonas overlays configured persona settings onto the built-in
// defaults. Unknown names define new personas from scratch.
func buildPersonas(cfg *config.Config) map[string]*prompts.Persona {
	personas := prompts.Defaults()
	for _, pc := range cfg.Personas {
		p, ok := personas[pc.Name]
		if !ok {
			p = &prompts.Persona{Name: pc.Name, Bundle: "general"}
			personas[pc.Name] = p
		}
		if pc.IdentityFile != "" {
			p.IdentityFile = pc.IdentityFile
		}
		if pc.ReferenceDir != "" {
			p.ReferenceDir = pc.ReferenceDir
		}
		if pc.Bundle != "" {
			p.Bundle = pc.Bundle
		}
		if pc.Provider != "" {
			p.Provider = pc.Provider
		}
		if pc.Model != "" {
			p.Model = pc.Model
		}
		if pc.Temperature > 0 {
			p.Temperature = pc.Temperature
		}
	}
	return personas
}

// newLogger creates a structured logger that writes to w at the given
// level and format. Format must be "text" or "json"; any other value
// defaults to text. All log output in Mimi goes through slog; this
// helper standardizes the handler configuration across subcommands.
func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// loadConfig locates and parses the YAML configuration file. If explicit
// is non-empty, that exact path is used (and must exist). Otherwise,
// [config.FindConfig] searches the default locations. Returns the parsed
// config, the path that was loaded, and any error.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}
