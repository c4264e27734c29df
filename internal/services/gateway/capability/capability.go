// Package capability holds the named operations, resources and prompts the
// gateway exposes. Engines read the registry; capability providers fill it.
package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

var (
	// ErrDuplicate reports a second registration under an existing name or URI.
	ErrDuplicate = errors.New("capability already registered")
	// ErrNotFound reports a lookup for an unregistered name or URI.
	ErrNotFound = errors.New("capability not found")
	// ErrInvalidParams reports arguments that fail decoding or schema validation.
	ErrInvalidParams = errors.New("invalid params")
)

// InvokeFunc executes a tool with raw JSON arguments.
type InvokeFunc func(ctx context.Context, args json.RawMessage) (any, error)

// Tool is a named, invocable operation.
type Tool struct {
	Name        string
	Description string
	// InputSchema describes the arguments object. Its type must be "object".
	InputSchema *jsonschema.Schema
	Invoke      InvokeFunc
}

func (t *Tool) validate() error {
	if t == nil {
		return errors.New("tool is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("tool name is required")
	}
	if t.InputSchema == nil {
		return fmt.Errorf("tool %q: input schema is required", t.Name)
	}
	if t.InputSchema.Type != "object" {
		return fmt.Errorf("tool %q: input schema must have type \"object\"", t.Name)
	}
	if t.Invoke == nil {
		return fmt.Errorf("tool %q: invoke function is required", t.Name)
	}
	return nil
}

// NewTool builds a Tool whose schema is inferred from In. Arguments are
// validated against that schema, defaults applied, and decoded into In
// before fn runs.
func NewTool[In, Out any](name, description string, fn func(context.Context, In) (Out, error)) (*Tool, error) {
	if fn == nil {
		return nil, fmt.Errorf("tool %q: handler is required", name)
	}
	schema, err := jsonschema.For[In](nil)
	if err != nil {
		return nil, fmt.Errorf("tool %q: infer input schema: %w", name, err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("tool %q: resolve input schema: %w", name, err)
	}

	return &Tool{
		Name:        name,
		Description: description,
		InputSchema: schema,
		Invoke: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in In
			if err := DecodeArgs(args, resolved, &in); err != nil {
				return nil, err
			}
			return fn(ctx, in)
		},
	}, nil
}

// MustTool is NewTool for static registrations; it panics on a bad schema.
func MustTool[In, Out any](name, description string, fn func(context.Context, In) (Out, error)) *Tool {
	tool, err := NewTool(name, description, fn)
	if err != nil {
		panic(err)
	}
	return tool
}

// DecodeArgs validates raw against resolved and decodes it into target.
// Missing or null arguments are treated as an empty object.
func DecodeArgs(raw json.RawMessage, resolved *jsonschema.Resolved, target any) error {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		raw = json.RawMessage("{}")
	}

	// Numbers stay json.Number so integers beyond 2^53 reach target intact.
	var instance map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&instance); err != nil {
		return fmt.Errorf("%w: arguments must be a JSON object: %v", ErrInvalidParams, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: arguments must be a single JSON object", ErrInvalidParams)
	}
	if instance == nil {
		return fmt.Errorf("%w: arguments must be a JSON object", ErrInvalidParams)
	}
	if resolved != nil {
		if err := resolved.ApplyDefaults(&instance); err != nil {
			return fmt.Errorf("%w: apply defaults: %v", ErrInvalidParams, err)
		}
	}

	normalized, err := json.Marshal(instance)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if resolved != nil {
		// The validator types json.Number as a string; check a plain copy.
		var plain map[string]any
		if err := json.Unmarshal(normalized, &plain); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
		if err := resolved.Validate(plain); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
	}
	if err := json.Unmarshal(normalized, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

// Resource is a readable descriptor addressed by URI.
type Resource struct {
	URI         string
	Name        string
	Description string
	MIMEType    string
	Read        func(ctx context.Context) (string, error)
}

func (r *Resource) validate() error {
	if r == nil {
		return errors.New("resource is required")
	}
	if strings.TrimSpace(r.URI) == "" {
		return errors.New("resource uri is required")
	}
	if r.Read == nil {
		return fmt.Errorf("resource %q: read function is required", r.URI)
	}
	return nil
}

// PromptArgument describes one template input.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
	// Suggestions feed argument completion.
	Suggestions []string `json:"suggestions,omitempty"`
}

// Prompt is a templated message generator.
type Prompt struct {
	Name        string
	Description string
	Arguments   []PromptArgument
	Render      func(ctx context.Context, args map[string]string) (string, error)
}

func (p *Prompt) validate() error {
	if p == nil {
		return errors.New("prompt is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("prompt name is required")
	}
	if p.Render == nil {
		return fmt.Errorf("prompt %q: render function is required", p.Name)
	}
	return nil
}

// MissingArguments returns the required arguments absent from args.
func (p *Prompt) MissingArguments(args map[string]string) []string {
	var missing []string
	for _, arg := range p.Arguments {
		if !arg.Required {
			continue
		}
		if strings.TrimSpace(args[arg.Name]) == "" {
			missing = append(missing, arg.Name)
		}
	}
	return missing
}
