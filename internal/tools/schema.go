package tools

import (
	"fmt"
	"math"
)

// ValidateArgs checks model-supplied arguments against a tool's JSON
// schema before the handler runs. It covers the subset of JSON Schema
// the tool definitions actually use: an object with typed properties,
// required fields, and string enums. JSON numbers arrive as float64, so
// integer checks accept whole-valued floats.
func ValidateArgs(schema map[string]any, args map[string]any) error {
	if schema == nil {
		return nil
	}

	props, _ := schema["properties"].(map[string]any)

	if required, ok := schema["required"].([]string); ok {
		for _, name := range required {
			if _, present := args[name]; !present {
				return fmt.Errorf("missing required argument %q", name)
			}
		}
	} else if required, ok := schema["required"].([]any); ok {
		// Schemas decoded from JSON carry []any instead of []string.
		for _, n := range required {
			name, _ := n.(string)
			if _, present := args[name]; !present {
				return fmt.Errorf("missing required argument %q", name)
			}
		}
	}

	for name, value := range args {
		propAny, known := props[name]
		if !known {
			// Unknown arguments are ignored, matching the lenient
			// behavior models expect.
			continue
		}
		prop, _ := propAny.(map[string]any)
		if prop == nil {
			continue
		}
		if err := validateValue(name, value, prop); err != nil {
			return err
		}
	}

	return nil
}

func validateValue(name string, value any, prop map[string]any) error {
	typ, _ := prop["type"].(string)

	switch typ {
	case "string":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("argument %q must be a string, got %T", name, value)
		}
		if err := checkEnum(name, s, prop); err != nil {
			return err
		}
	case "integer":
		switch v := value.(type) {
		case float64:
			if v != math.Trunc(v) {
				return fmt.Errorf("argument %q must be an integer, got %v", name, v)
			}
		case int, int64:
			// Already integral.
		default:
			return fmt.Errorf("argument %q must be an integer, got %T", name, value)
		}
	case "number":
		switch value.(type) {
		case float64, int, int64:
		default:
			return fmt.Errorf("argument %q must be a number, got %T", name, value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("argument %q must be a boolean, got %T", name, value)
		}
	case "object":
		if _, ok := value.(map[string]any); !ok {
			return fmt.Errorf("argument %q must be an object, got %T", name, value)
		}
	case "array":
		if _, ok := value.([]any); !ok {
			return fmt.Errorf("argument %q must be an array, got %T", name, value)
		}
	}

	return nil
}

func checkEnum(name, value string, prop map[string]any) error {
	var allowed []string
	switch e := prop["enum"].(type) {
	case []string:
		allowed = e
	case []any:
		for _, v := range e {
			if s, ok := v.(string); ok {
				allowed = append(allowed, s)
			}
		}
	default:
		return nil
	}

	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("argument %q must be one of %v, got %q", name, allowed, value)
}
