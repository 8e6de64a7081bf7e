// Package tools exposes the station-action discovery surface: each tool's
// name, JSON-Schema input shape, side-effect flag and fixed confidence
// increment, plus required-field validation. Reflection metadata only; the
// engine owns execution semantics.
package tools

// Property describes a single parameter for the JSON schema listing.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
}

// Schema defines a tool's input shape.
type Schema struct {
	Required   []string            `json:"required"`
	Properties map[string]Property `json:"properties"`
}

// Tool is one station action a client may invoke.
type Tool struct {
	// Name is the unique identifier looked up by the tool-call path.
	Name string `json:"name"`

	// Description explains what the action does in the station fiction.
	Description string `json:"description"`

	// Schema defines the expected arguments.
	Schema Schema `json:"input_schema"`

	// HasSideEffects marks tools that change client-visible state beyond
	// the confidence increment.
	HasSideEffects bool `json:"has_side_effects"`

	// ConfidenceBoost is the fixed increment applied when the action runs.
	ConfidenceBoost int `json:"-"`
}

// Validate checks the definition itself.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	return nil
}

// ValidateArgs checks required-field presence only. Type checking is left
// to the consumer; the discovery surface promises no more than this.
func (t *Tool) ValidateArgs(args map[string]any) error {
	for _, req := range t.Schema.Required {
		if _, ok := args[req]; !ok {
			return &MissingArgError{Tool: t.Name, Arg: req}
		}
	}
	return nil
}
