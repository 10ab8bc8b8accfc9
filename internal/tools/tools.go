// Package tools holds the typed tool table the agent dispatches through.
// Each tool is a named function over JSON-like arguments returning a
// structured result. Dispatch validates arguments against the declared
// parameters and never lets a tool take the loop down.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrUnknownTool marks a dispatch to a name that was never registered.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrBadArgument marks arguments that fail schema validation.
	ErrBadArgument = errors.New("bad argument")
)

// Args is the JSON-like argument record passed to a tool.
type Args map[string]any

// Param declares one tool parameter for validation and the /tools catalog.
type Param struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"` // string, number, boolean, object, array
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Min         *float64 `json:"min,omitempty"`
}

// Tool is a registered tool descriptor.
type Tool struct {
	Name        string
	Description string
	Params      []Param
	Invoke      func(ctx context.Context, args Args) (any, error)
}

// Info is the catalog entry exposed over HTTP.
type Info struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Parameters  []Param `json:"parameters"`
}

// Registry maps tool names to descriptors.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Tool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Tool)}
}

// Register adds a tool. Re-registering a name replaces the old tool.
func (r *Registry) Register(t *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[t.Name] = t
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

// Catalog lists all tools sorted by name.
func (r *Registry) Catalog() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Info, 0, len(r.byName))
	for _, t := range r.byName {
		params := t.Params
		if params == nil {
			params = []Param{}
		}
		out = append(out, Info{Name: t.Name, Description: t.Description, Parameters: params})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Dispatch validates args and invokes the named tool. Tool panics are
// converted to errors so a misbehaving tool cannot kill the agent loop.
func (r *Registry) Dispatch(ctx context.Context, name string, args Args) (result any, err error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	if err := validateArgs(t, args); err != nil {
		return nil, err
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = fmt.Errorf("tool %s panicked: %v", name, rec)
		}
	}()
	return t.Invoke(ctx, args)
}

func validateArgs(t *Tool, args Args) error {
	for _, p := range t.Params {
		v, present := args[p.Name]
		if !present || v == nil {
			if p.Required {
				return fmt.Errorf("%w: %s requires %q", ErrBadArgument, t.Name, p.Name)
			}
			continue
		}
		if err := checkType(p, v); err != nil {
			return err
		}
	}
	return nil
}

func checkType(p Param, v any) error {
	switch p.Type {
	case "string":
		if _, ok := v.(string); !ok {
			return fmt.Errorf("%w: %q must be a string", ErrBadArgument, p.Name)
		}
	case "number":
		n, ok := toFloat(v)
		if !ok {
			return fmt.Errorf("%w: %q must be a number", ErrBadArgument, p.Name)
		}
		if p.Min != nil && n < *p.Min {
			return fmt.Errorf("%w: %q must be >= %g", ErrBadArgument, p.Name, *p.Min)
		}
	case "boolean":
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("%w: %q must be a boolean", ErrBadArgument, p.Name)
		}
	case "object":
		if _, ok := v.(map[string]any); !ok {
			return fmt.Errorf("%w: %q must be an object", ErrBadArgument, p.Name)
		}
	case "array":
		if _, ok := v.([]any); !ok {
			if _, ok := v.([]string); !ok {
				return fmt.Errorf("%w: %q must be an array", ErrBadArgument, p.Name)
			}
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Argument accessors used by tool implementations.

func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

func (a Args) Number(name string) (float64, bool) {
	return toFloat(a[name])
}

func (a Args) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}

func (a Args) Object(name string) map[string]any {
	o, _ := a[name].(map[string]any)
	return o
}

// StringSlice tolerates both []string and JSON-decoded []any.
func (a Args) StringSlice(name string) []string {
	switch v := a[name].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
