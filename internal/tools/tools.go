// Package tools defines the tools available to the agent and the
// bundles that scope which tools a persona may call.
package tools

import (
	"context"
	"fmt"
	"sort"
)

// Tool represents a callable tool.
type Tool struct {
	Name        string                                                         `json:"name"`
	Description string                                                         `json:"description"`
	Parameters  map[string]any                                                 `json:"parameters"`
	Handler     func(ctx context.Context, args map[string]any) (string, error) `json:"-"`
}

// Registry holds available tools and named bundles.
type Registry struct {
	tools   map[string]*Tool
	bundles map[string][]string // nil member list means every registered tool
}

// NewRegistry creates an empty tool registry with the "general" bundle
// predefined to include every tool.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*Tool),
		bundles: map[string][]string{
			"general": nil,
		},
	}
}

// Register adds a tool to the registry. Registering a name twice
// replaces the earlier tool.
func (r *Registry) Register(t *Tool) {
	r.tools[t.Name] = t
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefineBundle creates or replaces a named bundle containing exactly the
// given tools. Tools registered later are not implicitly added.
func (r *Registry) DefineBundle(name string, toolNames ...string) {
	r.bundles[name] = append([]string(nil), toolNames...)
}

// Bundle returns a scoped view of the registry. A persona holding a
// Bundle can only see and execute the tools inside it; anything else is
// simply not there.
func (r *Registry) Bundle(name string) (*Bundle, error) {
	members, ok := r.bundles[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool bundle %q", name)
	}

	b := &Bundle{name: name, tools: make(map[string]*Tool)}
	if members == nil {
		for n, t := range r.tools {
			b.tools[n] = t
		}
		return b, nil
	}
	for _, n := range members {
		t, ok := r.tools[n]
		if !ok {
			return nil, fmt.Errorf("bundle %q references unregistered tool %q", name, n)
		}
		b.tools[n] = t
	}
	return b, nil
}

// Bundle is the set of tools exposed to a single persona. It is the only
// execution surface the agent loop sees, so a call outside the bundle
// fails the same way as a call to a tool that does not exist.
type Bundle struct {
	name  string
	tools map[string]*Tool
}

// Name returns the bundle name.
func (b *Bundle) Name() string {
	return b.name
}

// List returns the bundle's tool definitions in OpenAI function format,
// sorted by name for stable prompts.
func (b *Bundle) List() []map[string]any {
	names := make([]string, 0, len(b.tools))
	for name := range b.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	var result []map[string]any
	for _, name := range names {
		t := b.tools[name]
		result = append(result, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		})
	}
	return result
}

// Execute validates args against the tool's schema and runs its handler.
// Validation failures return an error without ever invoking the handler.
// Unknown tools return ErrToolUnavailable.
func (b *Bundle) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	tool, ok := b.tools[name]
	if !ok {
		return "", &ErrToolUnavailable{ToolName: name}
	}

	if err := ValidateArgs(tool.Parameters, args); err != nil {
		return "", fmt.Errorf("invalid arguments for %s: %w", name, err)
	}

	return tool.Handler(ctx, args)
}
