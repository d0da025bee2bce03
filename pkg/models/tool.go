package models

import "encoding/json"

// FieldType is the scalar type vocabulary the Schema Coercer understands.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldInteger FieldType = "integer"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
)

// ToolField describes one positional/named argument of a tool, in the
// order the schema declared it (insertion order of the schema's
// properties map is authoritative for positional coercion).
type ToolField struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Default  any       `json:"default,omitempty"`
	Required bool      `json:"required"`
}

// ToolDescriptor is the flattened, LLM-facing view of a tool exposed by an
// MCP server. Names are unique across the whole registry; populated once
// at subprocess-ready and immutable thereafter.
type ToolDescriptor struct {
	Name        string           `json:"name"`
	ServerID    string           `json:"server_id"`
	Description string          `json:"description,omitempty"`
	Fields      []ToolField      `json:"fields"`
	RawSchema   json.RawMessage  `json:"raw_schema,omitempty"`
}

// FieldByPosition returns the field declared at the given zero-based
// position, or false if out of range.
func (d *ToolDescriptor) FieldByPosition(i int) (ToolField, bool) {
	if i < 0 || i >= len(d.Fields) {
		return ToolField{}, false
	}
	return d.Fields[i], true
}
