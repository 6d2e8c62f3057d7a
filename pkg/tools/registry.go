package tools

import (
	"context"
	"fmt"
	"sync"
)

// Result is the outcome of a dispatched tool call.
type Result struct {
	// Tool is the name of the tool that ran.
	Tool string

	// Arguments are the call's top-level arguments as text.
	Arguments map[string]interface{}

	Output       string
	Metadata     map[string]interface{}
	LoopBreaking bool
}

// Registry holds tools by name and dispatches XML tool calls to them.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds tools. A name may only be registered once.
func (r *Registry) Register(tools ...Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range tools {
		name := t.Name()
		if _, exists := r.tools[name]; exists {
			return fmt.Errorf("tool %q is already registered", name)
		}
		r.tools[name] = t
		r.order = append(r.order, name)
	}
	return nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns the tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Dispatch parses the first tool call in text and executes it. When the
// tool fails, the returned Result still carries the tool's metadata.
func (r *Registry) Dispatch(ctx context.Context, text string) (*Result, error) {
	call, _, err := ParseToolCall(text)
	if err != nil {
		return nil, err
	}

	tool, ok := r.Get(call.ToolName)
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", call.ToolName)
	}

	argsXML := call.GetArgumentsXML()
	args, err := XMLToMap(argsXML)
	if err != nil {
		return nil, fmt.Errorf("invalid arguments for %s: %w", call.ToolName, err)
	}

	output, metadata, err := tool.Execute(ctx, argsXML)
	result := &Result{
		Tool:         call.ToolName,
		Arguments:    args,
		Output:       output,
		Metadata:     metadata,
		LoopBreaking: tool.IsLoopBreaking(),
	}
	if err != nil {
		return result, fmt.Errorf("%s: %w", call.ToolName, err)
	}
	return result, nil
}
