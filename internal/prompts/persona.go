// Package prompts assembles the system prompt and replayable history
// for each persona. Prompt text lives in Go code rather than config
// files because it is program logic; identity and reference material
// the user can edit lives on disk and is read at turn time.
package prompts

// Persona describes one of the agent's voices: which identity text it
// speaks with, which tool bundle it may use, and how its rows are
// labelled in the transcript.
type Persona struct {
	Name string

	// IdentityFile is an optional markdown file with the persona's
	// core instructions. DefaultIdentity is used when the file is
	// missing or unreadable.
	IdentityFile    string
	DefaultIdentity string

	// ReferenceDir optionally holds markdown reference guides that are
	// appended to the identity, in filename order.
	ReferenceDir string

	// Bundle names the tool bundle offered to the model.
	Bundle string

	// Provider/Model override the configured default backend when
	// non-empty. Temperature is always applied.
	Provider    string
	Model       string
	Temperature float64

	// HistoryLabel and ResponseLabel prefix the stored user and
	// assistant rows, so mixed transcripts show which persona handled
	// a turn. Empty for the default assistant.
	HistoryLabel  string
	ResponseLabel string

	// ProgressPrefix heads the live progress message in the transport.
	ProgressPrefix string

	// Directives are persona-specific lines added to the context
	// reminder section of the system prompt.
	Directives []string
}

// Defaults returns the built-in personas keyed by name. Callers may
// overlay configured identity files, bundles, and provider overrides.
func Defaults() map[string]*Persona {
	return map[string]*Persona{
		"assistant": {
			Name:            "assistant",
			DefaultIdentity: "You are Mimi, an elite personal AI assistant.",
			Bundle:          "general",
			Temperature:     0.3,
			ProgressPrefix:  "Working...",
			Directives: []string{
				"Task and memory tools operate on the current conversation automatically; never ask the user for a conversation or chat ID.",
			},
		},
		"social": {
			Name:            "social",
			DefaultIdentity: "You are an expert Social Media Strategist and Writer.",
			Bundle:          "research",
			Temperature:     0.6,
			HistoryLabel:    "[Social] ",
			ResponseLabel:   "[Social Output] ",
			ProgressPrefix:  "Drafting social post...",
			Directives: []string{
				"ALWAYS use your web_search and fetch_page tools to gather background research so your posts are specific, accurate, and relevant.",
				"STRICTLY follow the Critical Prohibitions, such as NEVER using words like \"delve\", \"unlock\", or \"game-changer\".",
			},
		},
		"blog": {
			Name:            "blog",
			DefaultIdentity: "You are an expert SEO Content Strategist and Elite Ghostwriter.",
			Bundle:          "research",
			Temperature:     0.5,
			HistoryLabel:    "[Blog] ",
			ResponseLabel:   "[Blog Output] ",
			ProgressPrefix:  "Writing and researching...",
			Directives: []string{
				"ALWAYS use your web_search and fetch_page tools to gather background research, extract real-time data, and build citations before writing.",
				"Long-form output is fine; the platform renders Markdown.",
			},
		},
	}
}
