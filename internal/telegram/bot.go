package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mimibot/mimi/internal/agent"
	"github.com/mimibot/mimi/internal/history"
	"github.com/mimibot/mimi/internal/llm"
	"github.com/mimibot/mimi/internal/prompts"
)

// maxChunk is the reply chunk size, under Telegram's 4096 hard limit.
const maxChunk = 4000

// defaultPollTimeout is the getUpdates long-poll timeout.
const defaultPollTimeout = 30 * time.Second

// turnRunner is the slice of the agent loop the bot needs.
type turnRunner interface {
	RunTurn(ctx context.Context, convID, userText string, cfg agent.TurnConfig, onProgress agent.ProgressFunc) (string, error)
}

// Options holds transport settings.
type Options struct {
	// AllowedUserIDs restricts who may talk to the bot. Empty allows
	// everyone.
	AllowedUserIDs []int64
	PollTimeout    time.Duration
}

// Bot long-polls Telegram and routes each message to a persona turn.
type Bot struct {
	client      *Client
	loop        turnRunner
	history     *history.Store
	personas    map[string]*prompts.Persona
	defaultSpec func() llm.ProviderSpec
	allowed     map[int64]bool
	pollTimeout time.Duration
	logger      *slog.Logger

	// Per-chat provider overrides. Each /provider switch replaces the
	// chat's snapshot; defaults are never mutated.
	mu        sync.Mutex
	overrides map[int64]llm.ProviderSpec
}

// New creates the bot transport.
func New(client *Client, loop turnRunner, hist *history.Store, personas map[string]*prompts.Persona, defaultSpec func() llm.ProviderSpec, opts Options, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}

	allowed := make(map[int64]bool, len(opts.AllowedUserIDs))
	for _, id := range opts.AllowedUserIDs {
		allowed[id] = true
	}

	pollTimeout := opts.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}

	return &Bot{
		client:      client,
		loop:        loop,
		history:     hist,
		personas:    personas,
		defaultSpec: defaultSpec,
		allowed:     allowed,
		pollTimeout: pollTimeout,
		logger:      logger.With("component", "bot"),
		overrides:   make(map[int64]llm.ProviderSpec),
	}
}

// Run polls for updates until ctx is cancelled. Each message is
// handled on its own goroutine so a long agent turn never stalls
// polling.
func (b *Bot) Run(ctx context.Context) error {
	me, err := b.client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("getMe: %w", err)
	}
	b.logger.Info("bot online", "username", me.Username)

	var offset int64
	for {
		updates, err := b.client.GetUpdates(ctx, offset, b.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.logger.Warn("getUpdates failed", "error", err)
			select {
			case <-time.After(3 * time.Second):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			if u.Message == nil || u.Message.Text == "" {
				continue
			}
			go b.handle(ctx, u.Message)
		}
	}
}

func (b *Bot) handle(ctx context.Context, msg *Message) {
	if len(b.allowed) > 0 && (msg.From == nil || !b.allowed[msg.From.ID]) {
		b.reply(ctx, msg.Chat.ID, "Unauthorized. Contact the bot owner to get access.")
		return
	}

	if strings.HasPrefix(msg.Text, "/") {
		b.handleCommand(ctx, msg)
		return
	}

	b.runPersona(ctx, msg.Chat, b.personas["assistant"], msg.Text)
}

// parseCommand splits "/cmd@botname rest of text" into ("cmd", "rest of text").
func parseCommand(text string) (string, string) {
	cmd, rest, _ := strings.Cut(text, " ")
	cmd = strings.TrimPrefix(cmd, "/")
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}
	return cmd, strings.TrimSpace(rest)
}

func (b *Bot) handleCommand(ctx context.Context, msg *Message) {
	cmd, args := parseCommand(msg.Text)
	chat := msg.Chat

	switch cmd {
	case "start":
		name := "there"
		if msg.From != nil && msg.From.FirstName != "" {
			name = msg.From.FirstName
		}
		b.reply(ctx, chat.ID,
			fmt.Sprintf("Hey %s! I'm *Mimi*, your AI assistant.\n\n"+
				"I can help you with:\n"+
				"- Gmail (search, read, archive, send)\n"+
				"- Code & files (read, write, run commands)\n"+
				"- Research (search the web, read docs)\n"+
				"- Tasks (create, track, update)\n"+
				"- Long-term memory\n"+
				"- GitHub (PRs, code review)\n\n"+
				"Just start chatting!", name))

	case "help":
		b.reply(ctx, chat.ID,
			"*Mimi commands:*\n"+
				"/tasks — list your tasks\n"+
				"/memories — show what I remember about you\n"+
				"/blog <topic> — write a long-form article\n"+
				"/social <topic> — draft a social post\n"+
				"/provider [name [model]] — show or switch the AI backend\n"+
				"/clear — reset the chat context\n\n"+
				"Anything else is just conversation: ask me to search, read "+
				"files, run commands, manage tasks, or remember things.")

	case "clear":
		if err := b.history.Clear(strconv.FormatInt(chat.ID, 10)); err != nil {
			b.logger.Error("clear history failed", "chat", chat.ID, "error", err)
			b.reply(ctx, chat.ID, "Couldn't clear the chat context, sorry.")
			return
		}
		b.reply(ctx, chat.ID, "Chat context cleared! Starting fresh. Your long-term memories are still intact.")

	case "tasks":
		b.runPersona(ctx, chat, b.personas["assistant"], "List all my tasks grouped by status.")

	case "memories":
		b.runPersona(ctx, chat, b.personas["assistant"], "Show me all memories you have stored about me.")

	case "blog":
		if args == "" {
			b.reply(ctx, chat.ID, "Please provide a topic! Example: `/blog The future of AI in 2026`")
			return
		}
		b.runPersona(ctx, chat, b.personas["blog"], args)

	case "social":
		if args == "" {
			b.reply(ctx, chat.ID, "Please provide a topic or platform! Example: `/social Write an X thread about AI agents`")
			return
		}
		b.runPersona(ctx, chat, b.personas["social"], args)

	case "provider":
		b.handleProvider(ctx, chat, args)

	default:
		// Unknown slash commands go to the assistant as plain text.
		b.runPersona(ctx, chat, b.personas["assistant"], msg.Text)
	}
}

func (b *Bot) handleProvider(ctx context.Context, chat Chat, args string) {
	if args == "" {
		spec := b.providerFor(chat.ID)
		b.reply(ctx, chat.ID, fmt.Sprintf(
			"*Current AI setup:*\nProvider: `%s`\nModel: `%s`\n\nTo switch: `/provider <%s> [model]`",
			spec.Provider, spec.Model, strings.Join(llm.KnownProviders, "|")))
		return
	}

	fields := strings.Fields(args)
	name := strings.ToLower(fields[0])

	known := false
	for _, p := range llm.KnownProviders {
		if p == name {
			known = true
			break
		}
	}
	if !known {
		b.reply(ctx, chat.ID, fmt.Sprintf("Invalid provider. Valid options: %s",
			strings.Join(llm.KnownProviders, ", ")))
		return
	}

	spec := llm.ProviderSpec{Provider: name, Temperature: b.defaultSpec().Temperature}
	if len(fields) > 1 {
		spec.Model = fields[1]
	}
	b.setOverride(chat.ID, spec)

	model := spec.Model
	if model == "" {
		model = "(provider default)"
	}
	b.reply(ctx, chat.ID, fmt.Sprintf("Provider switched to *%s*\nActive model: *%s*", name, model))
}

func (b *Bot) providerFor(chatID int64) llm.ProviderSpec {
	b.mu.Lock()
	defer b.mu.Unlock()
	if spec, ok := b.overrides[chatID]; ok {
		return spec
	}
	return b.defaultSpec()
}

func (b *Bot) setOverride(chatID int64, spec llm.ProviderSpec) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overrides[chatID] = spec
}

// runPersona executes one agent turn with live progress edits on an
// ephemeral status message.
func (b *Bot) runPersona(ctx context.Context, chat Chat, persona *prompts.Persona, text string) {
	convID := strconv.FormatInt(chat.ID, 10)

	_ = b.client.SendChatAction(ctx, chat.ID, "typing")

	var onProgress agent.ProgressFunc
	thinking, err := b.client.SendMessage(ctx, chat.ID, persona.ProgressPrefix, false)
	if err != nil {
		b.logger.Warn("status message failed", "chat", chat.ID, "error", err)
	} else {
		onProgress = func(preview string) {
			// Edit failures are cosmetic.
			_ = b.client.EditMessageText(ctx, chat.ID, thinking.MessageID,
				persona.ProgressPrefix+"\n"+preview, false)
		}
	}

	reply, err := b.loop.RunTurn(ctx, convID, text, agent.TurnConfig{
		Persona:  persona,
		Provider: b.providerFor(chat.ID),
	}, onProgress)

	if thinking != nil {
		_ = b.client.DeleteMessage(ctx, chat.ID, thinking.MessageID)
	}
	if err != nil {
		b.logger.Error("turn failed", "chat", chat.ID, "persona", persona.Name, "error", err)
		reply = "Something went wrong handling that message. Please try again."
	}

	b.sendLong(ctx, chat.ID, reply)
}

// reply sends a single Markdown message, retrying as plain text when
// the markup does not parse.
func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if _, err := b.client.SendMessage(ctx, chatID, text, true); err != nil {
		if _, err := b.client.SendMessage(ctx, chatID, text, false); err != nil {
			b.logger.Error("send failed", "chat", chatID, "error", err)
		}
	}
}

// sendLong splits text into chunks under Telegram's message limit and
// sends them in order.
func (b *Bot) sendLong(ctx context.Context, chatID int64, text string) {
	for _, chunk := range chunkMessage(text, maxChunk) {
		b.reply(ctx, chatID, chunk)
	}
}

// chunkMessage splits text into pieces of at most limit bytes,
// preferring to cut at a newline when one falls in the last 30% of a
// chunk. Cuts never land mid-rune.
func chunkMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	remaining := text
	for len(remaining) > 0 {
		if len(remaining) <= limit {
			chunks = append(chunks, remaining)
			break
		}

		cut := limit
		if idx := strings.LastIndex(remaining[:limit], "\n"); idx > limit*7/10 {
			cut = idx
		} else {
			for cut > 0 && !utf8.RuneStart(remaining[cut]) {
				cut--
			}
		}
		chunks = append(chunks, remaining[:cut])
		remaining = remaining[cut:]
	}
	return chunks
}
