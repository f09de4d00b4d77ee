package toolexecutor

import (
	"context"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ToolParameter defines a parameter for a tool
type ToolParameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Format      string `json:"format,omitempty"` // JSON schema format, e.g. "date"
}

// ToolDefinition defines a tool's metadata and handler
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
	Handler     ToolHandler     `json:"-"`
}

// ToolHandler executes a tool with already validated arguments and returns
// the payload fields of its result
type ToolHandler func(ctx context.Context, args map[string]any) (map[string]any, error)

// Rejection reasons for requests that never reach a handler
const (
	ReasonUnknownTool      = "unknown_tool"
	ReasonInvalidArguments = "invalid_arguments"
)

// RejectionError explains why a request was not dispatched
type RejectionError struct {
	Reason string
	Detail string
}

func (e *RejectionError) Error() string {
	if e.Detail == "" {
		return e.Reason
	}
	return e.Reason + ": " + e.Detail
}

// Registry is the fixed tool catalog. It is built once by NewRegistry and is
// read-only afterwards, so it is safe for concurrent use without locking.
type Registry struct {
	tools   map[string]*ToolDefinition
	schemas map[string]*gojsonschema.Schema
	order   []string
}

// NewRegistry validates every definition and compiles its argument schema
func NewRegistry(defs ...ToolDefinition) (*Registry, error) {
	r := &Registry{
		tools:   make(map[string]*ToolDefinition, len(defs)),
		schemas: make(map[string]*gojsonschema.Schema, len(defs)),
	}

	for i := range defs {
		def := defs[i]
		if err := validateToolDefinition(def); err != nil {
			return nil, fmt.Errorf("invalid tool definition: %w", err)
		}
		if _, exists := r.tools[def.Name]; exists {
			return nil, fmt.Errorf("duplicate tool: %s", def.Name)
		}

		schema, err := generateJSONSchema(def)
		if err != nil {
			return nil, fmt.Errorf("failed to generate schema for %s: %w", def.Name, err)
		}

		r.tools[def.Name] = &def
		r.schemas[def.Name] = schema
		r.order = append(r.order, def.Name)
	}

	return r, nil
}

// Lookup returns a tool definition by name
func (r *Registry) Lookup(name string) (*ToolDefinition, bool) {
	def, ok := r.tools[name]
	return def, ok
}

// ListTools returns all tool names in registration order
func (r *Registry) ListTools() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Describe returns one line per tool in the form "- name(arg1, arg2)"
func (r *Registry) Describe() string {
	var sb strings.Builder
	for i, name := range r.order {
		if i > 0 {
			sb.WriteString("\n")
		}
		def := r.tools[name]
		args := make([]string, len(def.Parameters))
		for j, p := range def.Parameters {
			args[j] = p.Name
		}
		fmt.Fprintf(&sb, "- %s(%s)", name, strings.Join(args, ", "))
	}
	return sb.String()
}

// Validate checks that name is registered and args satisfy its schema.
// It returns a *RejectionError otherwise.
func (r *Registry) Validate(name string, args map[string]any) error {
	if _, ok := r.tools[name]; !ok {
		return &RejectionError{Reason: ReasonUnknownTool, Detail: name}
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := validateParameters(r.schemas[name], args); err != nil {
		return &RejectionError{Reason: ReasonInvalidArguments, Detail: err.Error()}
	}
	return nil
}

// validateToolDefinition validates a tool definition
func validateToolDefinition(def ToolDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if def.Description == "" {
		return fmt.Errorf("tool description cannot be empty")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool handler cannot be nil")
	}

	validTypes := map[string]bool{
		"string": true, "number": true, "boolean": true,
		"object": true, "array": true, "integer": true,
	}
	for _, param := range def.Parameters {
		if param.Name == "" {
			return fmt.Errorf("parameter name cannot be empty")
		}
		if param.Description == "" {
			return fmt.Errorf("parameter description cannot be empty for %s", param.Name)
		}
		if !validTypes[param.Type] {
			return fmt.Errorf("invalid parameter type %q for %s", param.Type, param.Name)
		}
	}

	return nil
}

// generateJSONSchema generates a JSON Schema from tool parameters.
// Extra arguments are allowed; only declared ones are checked.
func generateJSONSchema(def ToolDefinition) (*gojsonschema.Schema, error) {
	properties := make(map[string]any, len(def.Parameters))
	required := []string{}

	for _, param := range def.Parameters {
		paramSchema := map[string]any{
			"type":        param.Type,
			"description": param.Description,
		}
		if param.Type == "string" && param.Required {
			paramSchema["minLength"] = 1
		}
		if param.Format != "" {
			paramSchema["format"] = param.Format
		}
		properties[param.Name] = paramSchema

		if param.Required {
			required = append(required, param.Name)
		}
	}

	schemaMap := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schemaMap["required"] = required
	}

	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))
}

// validateParameters validates arguments against a JSON Schema
func validateParameters(schema *gojsonschema.Schema, args map[string]any) error {
	if schema == nil {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return err
	}

	if !result.Valid() {
		errs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}

	return nil
}
