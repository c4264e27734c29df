package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Module groups related registrations under a name used in error messages.
type Module struct {
	Name     string
	Register func(*Registry) error
}

// Registry stores tools, resources and prompts by unique key. It outlives
// gateway generations and is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]*Tool
	resources map[string]*Resource
	prompts   map[string]*Prompt
}

// NewRegistry returns a registry populated by modules, in order.
func NewRegistry(modules ...Module) (*Registry, error) {
	r := &Registry{
		tools:     make(map[string]*Tool),
		resources: make(map[string]*Resource),
		prompts:   make(map[string]*Prompt),
	}
	for _, module := range modules {
		if module.Register == nil {
			return nil, fmt.Errorf("register %s: register function is required", module.Name)
		}
		if err := module.Register(r); err != nil {
			return nil, fmt.Errorf("register %s: %w", module.Name, err)
		}
	}
	return r, nil
}

// AddTool registers tool under its name.
func (r *Registry) AddTool(tool *Tool) error {
	if err := tool.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[tool.Name]; ok {
		return fmt.Errorf("tool %q: %w", tool.Name, ErrDuplicate)
	}
	r.tools[tool.Name] = tool
	return nil
}

// AddResource registers resource under its URI.
func (r *Registry) AddResource(resource *Resource) error {
	if err := resource.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.resources[resource.URI]; ok {
		return fmt.Errorf("resource %q: %w", resource.URI, ErrDuplicate)
	}
	r.resources[resource.URI] = resource
	return nil
}

// AddPrompt registers prompt under its name.
func (r *Registry) AddPrompt(prompt *Prompt) error {
	if err := prompt.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.prompts[prompt.Name]; ok {
		return fmt.Errorf("prompt %q: %w", prompt.Name, ErrDuplicate)
	}
	r.prompts[prompt.Name] = prompt
	return nil
}

// Tool looks up a tool by name.
func (r *Registry) Tool(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Resource looks up a resource by URI.
func (r *Registry) Resource(uri string) (*Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	resource, ok := r.resources[uri]
	return resource, ok
}

// Prompt looks up a prompt by name.
func (r *Registry) Prompt(name string) (*Prompt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	prompt, ok := r.prompts[name]
	return prompt, ok
}

// Tools returns every tool sorted by name.
func (r *Registry) Tools() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedValues(r.tools, func(t *Tool) string { return t.Name })
}

// Resources returns every resource sorted by URI.
func (r *Registry) Resources() []*Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedValues(r.resources, func(res *Resource) string { return res.URI })
}

// Prompts returns every prompt sorted by name.
func (r *Registry) Prompts() []*Prompt {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedValues(r.prompts, func(p *Prompt) string { return p.Name })
}

// Invoke runs the named tool.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (any, error) {
	tool, ok := r.Tool(name)
	if !ok {
		return nil, fmt.Errorf("tool %q: %w", name, ErrNotFound)
	}
	return tool.Invoke(ctx, args)
}

// ReadResource reads the resource at uri.
func (r *Registry) ReadResource(ctx context.Context, uri string) (string, error) {
	resource, ok := r.Resource(uri)
	if !ok {
		return "", fmt.Errorf("resource %q: %w", uri, ErrNotFound)
	}
	return resource.Read(ctx)
}

// RenderPrompt renders the named prompt after checking required arguments.
func (r *Registry) RenderPrompt(ctx context.Context, name string, args map[string]string) (string, error) {
	prompt, ok := r.Prompt(name)
	if !ok {
		return "", fmt.Errorf("prompt %q: %w", name, ErrNotFound)
	}
	if missing := prompt.MissingArguments(args); len(missing) > 0 {
		return "", fmt.Errorf("%w: prompt %q missing %s", ErrInvalidParams, name, strings.Join(missing, ", "))
	}
	return prompt.Render(ctx, args)
}

func sortedValues[T any](m map[string]T, key func(T) string) []T {
	values := make([]T, 0, len(m))
	for _, v := range m {
		values = append(values, v)
	}
	slices.SortFunc(values, func(a, b T) int { return strings.Compare(key(a), key(b)) })
	return values
}
