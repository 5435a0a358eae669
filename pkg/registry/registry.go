// Package registry holds the tool catalog: typed functions with a JSON-schema
// for their input and a capability tag.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/xeipuuv/gojsonschema"
)

// ToolFunction defines the signature for a tool implementation.
// It receives a context and a map of validated arguments, and returns a result or error.
type ToolFunction func(ctx context.Context, args map[string]any) (any, error)

// Tool is one registered capability.
type Tool struct {
	Name        string
	Description string
	// Parameters is the JSON schema of the arguments object.
	Parameters map[string]any
	Capability domain.Capability
	Fn         ToolFunction
}

// Spec returns what the model sees of the tool.
func (t Tool) Spec() domain.ToolSpec {
	return domain.ToolSpec{Name: t.Name, Description: t.Description, Parameters: t.Parameters}
}

type entry struct {
	tool   Tool
	schema *Schema
}

// Schema is a compiled argument schema for a named tool.
type Schema struct {
	name   string
	schema *gojsonschema.Schema
}

// CompileSchema compiles the JSON schema of the arguments of tool name.
// A nil schema accepts only an empty object.
func CompileSchema(name string, params map[string]any) (*Schema, error) {
	if params == nil {
		params = Object(nil)
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(params))
	if err != nil {
		return nil, fmt.Errorf("tool %q: invalid parameter schema: %w", name, err)
	}
	return &Schema{name: name, schema: schema}, nil
}

// Validate checks args, failing with a *domain.ToolError wrapping
// domain.ErrInvalidArguments.
func (s *Schema) Validate(args map[string]any) error {
	if args == nil {
		args = map[string]any{}
	}
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return domain.NewToolError(domain.ErrInvalidArguments, s.name, "%v", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			msgs = append(msgs, re.String())
		}
		return domain.NewToolError(domain.ErrInvalidArguments, s.name, "%s", strings.Join(msgs, "; "))
	}
	return nil
}

// Registry manages the available tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]entry
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]entry),
	}
}

// Register adds a tool to the registry, compiling its schema.
// If a tool with the same name exists, it is overwritten.
func (r *Registry) Register(tool Tool) error {
	if tool.Name == "" || tool.Fn == nil {
		return fmt.Errorf("tool %q: name and function are required", tool.Name)
	}
	if tool.Capability == "" {
		tool.Capability = domain.Safe
	}
	if tool.Parameters == nil {
		tool.Parameters = Object(nil)
	}

	schema, err := CompileSchema(tool.Name, tool.Parameters)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name] = entry{tool: tool, schema: schema}
	return nil
}

// MustRegister is Register for static catalogs. It panics on an invalid tool.
func (r *Registry) MustRegister(tools ...Tool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Lookup returns a registered tool by name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	return e.tool, ok
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select returns the named tools in the given order.
func (r *Registry) Select(names ...string) ([]Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(names))
	var missing []string
	for _, name := range names {
		e, ok := r.tools[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		out = append(out, e.tool)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrToolNotFound, strings.Join(missing, ", "))
	}
	return out, nil
}

// Validate checks args against the tool's schema.
func (r *Registry) Validate(name string, args map[string]any) error {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return domain.NewToolError(domain.ErrToolNotFound, name, "%s is not a valid tool, try one of the available tools", name)
	}
	return validate(e, args)
}

// Execute looks up a tool by name, validates the arguments and executes it.
// Every failure is a *domain.ToolError carrying one of the taxonomy sentinels.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return nil, domain.NewToolError(domain.ErrToolNotFound, name, "%s is not a valid tool, try one of the available tools", name)
	}
	if err := validate(e, args); err != nil {
		return nil, err
	}

	result, err := e.tool.Fn(ctx, args)
	if err != nil {
		return nil, classify(name, err)
	}
	return result, nil
}

func validate(e entry, args map[string]any) error {
	return e.schema.Validate(args)
}

// classify stamps the tool name on typed failures and treats anything else as
// a collaborator failure.
func classify(name string, err error) error {
	var te *domain.ToolError
	if errors.As(err, &te) {
		if te.Tool == "" {
			stamped := *te
			stamped.Tool = name
			return &stamped
		}
		return te
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.NewToolError(domain.ErrExternalService, name, "%v", err)
}
