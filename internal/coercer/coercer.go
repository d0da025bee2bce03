// Package coercer turns the raw text an LLM emits for a tool call into
// arguments matching that tool's JSON Schema, when the model does not
// (or cannot) produce structured JSON directly.
package coercer

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mcphost/host/pkg/models"
)

// Coerce converts raw tool-call text into a map of arguments matching
// desc's fields, following, in order:
//  1. strip a single layer of surrounding quotes
//  2. try raw as a JSON object directly
//  3. split positionally on commas, using the schema's field order
//  4. coerce each positional value to its field's declared type; on a
//     failed coercion use the field's default, else keep the raw string
//     for a required field, else omit the field
//  5. fill fields with no positional value from their defaults; fields
//     with no value and no default, required or not, are omitted
//  6. if nothing above produced usable arguments, fall back to
//     {"input": raw}
//
// The returned arguments are not guaranteed to validate against desc's
// raw schema; call Validate separately to check, non-fatally.
func Coerce(raw string, desc *models.ToolDescriptor) map[string]any {
	raw = stripQuotes(strings.TrimSpace(raw))

	if args, ok := tryJSONObject(raw); ok {
		return fillDefaults(args, desc)
	}

	if args, ok := tryPositional(raw, desc); ok {
		return fillDefaults(args, desc)
	}

	return map[string]any{"input": raw}
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func tryJSONObject(raw string) (map[string]any, bool) {
	if !strings.HasPrefix(raw, "{") {
		return nil, false
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, false
	}
	return out, true
}

// tryPositional splits raw on top-level commas and assigns each part to
// the schema's fields in declaration order, coercing each to its
// declared type. A raw value of "" (no fields, no content) is not a
// usable positional split.
func tryPositional(raw string, desc *models.ToolDescriptor) (map[string]any, bool) {
	if desc == nil || len(desc.Fields) == 0 || raw == "" {
		return nil, false
	}

	parts := splitTopLevelCommas(raw)
	out := make(map[string]any, len(parts))
	for i, part := range parts {
		field, ok := desc.FieldByPosition(i)
		if !ok {
			break
		}
		value, ok := coerceValue(strings.TrimSpace(part), field.Type)
		if !ok {
			switch {
			case field.Default != nil:
				value = field.Default
			case field.Required:
				value = strings.TrimSpace(part)
			default:
				continue
			}
		}
		out[field.Name] = value
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

func splitTopLevelCommas(s string) []string {
	var parts []string
	var depth int
	var inQuote byte
	start := 0

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote != 0:
			if c == inQuote {
				inQuote = 0
			}
		case c == '"' || c == '\'':
			inQuote = c
		case c == '{' || c == '[':
			depth++
		case c == '}' || c == ']':
			depth--
		case c == ',' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func coerceValue(raw string, fieldType models.FieldType) (any, bool) {
	switch fieldType {
	case models.FieldInteger:
		stripped := stripExcept(raw, "0123456789-")
		if stripped == "" {
			return nil, false
		}
		n, err := strconv.ParseInt(stripped, 10, 64)
		if err != nil {
			return nil, false
		}
		return n, true

	case models.FieldNumber:
		stripped := stripExcept(raw, "0123456789.-")
		if stripped == "" {
			return nil, false
		}
		n, err := strconv.ParseFloat(stripped, 64)
		if err != nil {
			return nil, false
		}
		return n, true

	case models.FieldBoolean:
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true", "yes", "1", "t":
			return true, true
		default:
			return false, true
		}

	default: // models.FieldString and anything unrecognized
		return stripQuotes(raw), true
	}
}

// stripExcept removes every rune from s not present in allowed, per
// SPEC_FULL.md §4.2 step 4's numeric pre-processing (e.g. "42 units" →
// "42", "$19.99" → "19.99").
func stripExcept(s, allowed string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(allowed, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// fillDefaults fills in schema defaults for fields the coercion pass did
// not populate, omitting fields entirely (required or optional) when they
// have no default.
func fillDefaults(args map[string]any, desc *models.ToolDescriptor) map[string]any {
	if desc == nil {
		return args
	}
	for _, field := range desc.Fields {
		if _, present := args[field.Name]; present {
			continue
		}
		if field.Default != nil {
			args[field.Name] = field.Default
		}
	}
	return args
}

// Validate runs args against desc's raw JSON Schema, if present. It is
// always non-fatal: callers log the returned error and proceed with the
// coerced arguments regardless, since the schema may be stricter than
// the LLM's actual intent was.
func Validate(args map[string]any, desc *models.ToolDescriptor) error {
	if desc == nil || len(desc.RawSchema) == 0 {
		return nil
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(desc.Name, strings.NewReader(string(desc.RawSchema))); err != nil {
		return err
	}
	schema, err := compiler.Compile(desc.Name)
	if err != nil {
		return err
	}

	data, err := json.Marshal(args)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return schema.Validate(v)
}
