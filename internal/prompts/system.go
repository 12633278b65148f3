package prompts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// BuildSystemPrompt assembles the full system prompt for a turn:
// persona identity, reference guides, remembered facts, and the
// context reminder. facts may be empty; the memory section is then
// omitted entirely.
func BuildSystemPrompt(p *Persona, conversationID string, facts []string, now time.Time) string {
	sections := []string{identity(p)}
	sections = append(sections, referenceDocs(p.ReferenceDir)...)

	var b strings.Builder
	b.WriteString(strings.Join(sections, "\n\n---\n\n"))

	if len(facts) > 0 {
		b.WriteString("\n\n## Long-Term Memory\n")
		b.WriteString("The following facts were remembered from previous conversations:\n")
		for _, f := range facts {
			b.WriteString("- ")
			b.WriteString(f)
			b.WriteString("\n")
		}
	}

	b.WriteString("\n## Context Reminder\n")
	fmt.Fprintf(&b, "- Current time: %s\n", now.Format("Monday, 2 January 2006 15:04 (MST)"))
	fmt.Fprintf(&b, "- Conversation ID: `%s`\n", conversationID)
	for _, d := range p.Directives {
		b.WriteString("- ")
		b.WriteString(d)
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// identity reads the persona's identity file, falling back to the
// built-in default when the file is missing or unreadable.
func identity(p *Persona) string {
	if p.IdentityFile != "" {
		if data, err := os.ReadFile(p.IdentityFile); err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	return p.DefaultIdentity
}

// referenceDocs loads the markdown guides under dir in filename order.
// Each guide is headed by its first markdown heading, or the filename
// when it has none. A missing directory contributes nothing.
func referenceDocs(dir string) []string {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var docs []string
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		title := firstHeading(data)
		if title == "" {
			title = name
		}
		docs = append(docs, fmt.Sprintf("### Reference: %s\n\n%s", title, strings.TrimSpace(string(data))))
	}
	return docs
}

// firstHeading returns the text of the first markdown heading in src,
// or "" when there is none.
func firstHeading(src []byte) string {
	doc := goldmark.New().Parser().Parse(gmtext.NewReader(src))

	var title string
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if _, ok := n.(*ast.Heading); !ok {
			return ast.WalkContinue, nil
		}

		var b strings.Builder
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				b.Write(t.Segment.Value(src))
			}
		}
		title = strings.TrimSpace(b.String())
		return ast.WalkStop, nil
	})
	return title
}
