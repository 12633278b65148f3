package fetch

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Elements whose subtree carries no readable content.
var skippedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Iframe:   true,
	atom.Svg:      true,
	atom.Head:     true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Header:   true,
}

// extractHTML parses raw HTML and returns the page title and readable
// body text with boilerplate stripped.
func extractHTML(raw string) (title, text string) {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		// html.Parse almost never fails on real pages; give back the
		// raw bytes rather than nothing.
		return "", raw
	}

	var b strings.Builder
	walk(doc, &b, &title)
	return title, collapseWhitespace(b.String())
}

func walk(n *html.Node, b *strings.Builder, title *string) {
	switch n.Type {
	case html.ElementNode:
		if n.DataAtom == atom.Title && *title == "" {
			*title = strings.TrimSpace(textOf(n))
			return
		}
		// The head carries no body text but does hold the title, which
		// the parser relocates there even for malformed documents. Pull
		// it out before skipping the subtree.
		if n.DataAtom == atom.Head {
			if *title == "" {
				*title = findTitle(n)
			}
			return
		}
		if skippedElements[n.DataAtom] {
			return
		}
		if blockLevel(n.DataAtom) && b.Len() > 0 {
			b.WriteString("\n\n")
		}
	case html.TextNode:
		if t := strings.TrimSpace(n.Data); t != "" {
			b.WriteString(t)
			b.WriteString(" ")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, b, title)
	}

	if n.Type == html.ElementNode && (n.DataAtom == atom.Br || n.DataAtom == atom.Li) {
		b.WriteString("\n")
	}
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		return strings.TrimSpace(textOf(n))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textOf(c))
	}
	return b.String()
}

func blockLevel(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Main,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Blockquote, atom.Pre, atom.Ul, atom.Ol, atom.Table,
		atom.Tr, atom.Dl, atom.Hr:
		return true
	}
	return false
}

// collapseWhitespace squeezes intra-line runs of whitespace and drops
// consecutive blank lines.
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	prevBlank := false

	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if prevBlank {
				continue
			}
			prevBlank = true
		} else {
			prevBlank = false
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
