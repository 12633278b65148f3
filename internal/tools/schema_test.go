package tools

import "testing"

func TestValidateArgs(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query":  map[string]any{"type": "string"},
			"limit":  map[string]any{"type": "integer"},
			"status": map[string]any{"type": "string", "enum": []string{"open", "done", "dropped"}},
			"strict": map[string]any{"type": "boolean"},
		},
		"required": []string{"query"},
	}

	tests := []struct {
		name    string
		args    map[string]any
		wantErr bool
	}{
		{"valid minimal", map[string]any{"query": "go"}, false},
		{"valid full", map[string]any{"query": "go", "limit": float64(5), "status": "open", "strict": true}, false},
		{"missing required", map[string]any{"limit": float64(5)}, true},
		{"wrong type", map[string]any{"query": float64(42)}, true},
		{"fractional integer", map[string]any{"query": "go", "limit": 2.5}, true},
		{"whole float as integer", map[string]any{"query": "go", "limit": float64(3)}, false},
		{"bad enum value", map[string]any{"query": "go", "status": "paused"}, true},
		{"unknown arg ignored", map[string]any{"query": "go", "extra": "x"}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateArgs(schema, tc.args)
			if tc.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateArgsJSONDecodedSchema(t *testing.T) {
	// Schemas that round-trip through JSON carry []any for required.
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{"type": "string"},
		},
		"required": []any{"path"},
	}

	if err := ValidateArgs(schema, map[string]any{"path": "a.md"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateArgs(schema, map[string]any{}); err == nil {
		t.Error("expected error for missing required arg")
	}
}

func TestValidateArgsNilSchema(t *testing.T) {
	if err := ValidateArgs(nil, map[string]any{"anything": 1}); err != nil {
		t.Errorf("nil schema should accept everything, got %v", err)
	}
}
