// Copyright (c) Microsoft. All rights reserved.

package agentserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// ToolResult is the normalized outcome of a tool dispatch, serialized into
// the function_call_output item sent back to the model. Dispatch failures of
// any kind (unknown tool, bad arguments, handler error or panic) are encoded
// as Supported=false with a Reason; they are never raised to the loop.
type ToolResult struct {
	Supported bool   `json:"supported"`
	Scope     string `json:"scope,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Data      any    `json:"data"`
}

// ToolSchema is the declaration advertised to the backend for one tool.
type ToolSchema struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Registry maps tool names to their schema and handler. It is safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	names []string
}

// NewRegistry creates an empty [Registry].
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering a name twice is an initialization error.
func (r *Registry) Register(tools ...Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tools {
		name := t.Name()
		if name == "" {
			return fmt.Errorf("%w: tool with empty name", ErrInitialization)
		}
		if _, exists := r.tools[name]; exists {
			return fmt.Errorf("%w: duplicate tool %q", ErrInitialization, name)
		}
		r.tools[name] = t
		r.names = append(r.names, name)
	}
	return nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.names))
	copy(names, r.names)
	sort.Strings(names)
	return names
}

// Schemas returns the tool declarations to advertise to the backend,
// in registration order.
func (r *Registry) Schemas() []ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schemas := make([]ToolSchema, 0, len(r.names))
	for _, name := range r.names {
		t := r.tools[name]
		schemas = append(schemas, ToolSchema{
			Type:        "function",
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return schemas
}

// Dispatch executes the named tool with the given JSON arguments and
// normalizes the outcome into a [ToolResult]. Dispatch is total: it always
// returns a result value, never an error, so the invocation loop can continue
// after any tool failure.
//
// A handler may return a [ToolResult] (or *ToolResult) to control the full
// result shape; any other return value becomes the Data of a successful
// result.
func (r *Registry) Dispatch(ctx context.Context, name string, args json.RawMessage) (result ToolResult) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.ErrorContext(ctx, "tool handler panicked", "tool", name, "panic", rec)
			result = ToolResult{
				Supported: false,
				Reason:    fmt.Sprintf("Tool error: panic: %v", rec),
			}
		}
	}()

	tool, ok := r.Lookup(name)
	if !ok {
		return ToolResult{
			Supported: false,
			Reason:    fmt.Sprintf("Unknown tool: %s", name),
		}
	}

	value, err := tool.Invoke(ctx, args)
	if err != nil {
		slog.WarnContext(ctx, "tool invocation failed", "tool", name, "error", err)
		return ToolResult{
			Supported: false,
			Reason:    fmt.Sprintf("Tool error: %s", errorKindMessage(err)),
		}
	}

	switch v := value.(type) {
	case ToolResult:
		return v
	case *ToolResult:
		if v != nil {
			return *v
		}
	}
	return ToolResult{Supported: true, Data: value}
}

// errorKindMessage renders an error as "<kind>: <message>" so the model can
// distinguish failure classes.
func errorKindMessage(err error) string {
	var te *ToolError
	if errors.As(err, &te) {
		return fmt.Sprintf("ToolError: %s", te.Message)
	}
	return fmt.Sprintf("%T: %s", err, err)
}
