// Copyright (c) Microsoft. All rights reserved.

package agentserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	as "github.com/microsoft/agent-server/go/agentserver"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := as.NewRegistry()
	tool := as.NewTool("beta", "B", json.RawMessage(`{"type":"object","properties":{}}`),
		func(ctx context.Context, args json.RawMessage) (any, error) { return "b", nil },
	)
	other := as.NewTool("alpha", "A", json.RawMessage(`{"type":"object","properties":{}}`),
		func(ctx context.Context, args json.RawMessage) (any, error) { return "a", nil },
	)
	if err := r.Register(tool, other); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, ok := r.Lookup("beta"); !ok {
		t.Error("Lookup(beta) failed")
	}
	if names := r.Names(); len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("Names = %v", names)
	}

	// Schemas keep registration order for a stable wire payload.
	schemas := r.Schemas()
	if len(schemas) != 2 || schemas[0].Name != "beta" || schemas[1].Name != "alpha" {
		t.Errorf("Schemas order = %v, %v", schemas[0].Name, schemas[1].Name)
	}
	if schemas[0].Type != "function" {
		t.Errorf("schema type = %q", schemas[0].Type)
	}
}

func TestRegistry_DuplicateName(t *testing.T) {
	r := as.NewRegistry()
	mk := func() as.Tool {
		return as.NewTool("dup", "", json.RawMessage(`{}`),
			func(ctx context.Context, args json.RawMessage) (any, error) { return nil, nil },
		)
	}
	if err := r.Register(mk()); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	err := r.Register(mk())
	if !errors.Is(err, as.ErrInitialization) {
		t.Errorf("duplicate Register err = %v, want ErrInitialization", err)
	}
}

func TestDispatch_UnknownTool(t *testing.T) {
	r := as.NewRegistry()
	result := r.Dispatch(context.Background(), "nope", nil)
	if result.Supported {
		t.Error("Supported = true")
	}
	if result.Reason != "Unknown tool: nope" {
		t.Errorf("Reason = %q", result.Reason)
	}
}

func TestDispatch_BadArguments(t *testing.T) {
	tool := as.NewTypedTool("typed", "",
		func(ctx context.Context, args struct {
			N int `json:"n"`
		}) (any, error) {
			return args.N, nil
		},
	)
	r := as.NewRegistry()
	if err := r.Register(tool); err != nil {
		t.Fatal(err)
	}

	result := r.Dispatch(context.Background(), "typed", json.RawMessage(`{"n":"not-a-number"}`))
	if result.Supported {
		t.Error("Supported = true")
	}
	if !strings.HasPrefix(result.Reason, "Tool error:") {
		t.Errorf("Reason = %q", result.Reason)
	}
}

func TestDispatch_PanicRecovered(t *testing.T) {
	tool := as.NewTool("boom", "", json.RawMessage(`{}`),
		func(ctx context.Context, args json.RawMessage) (any, error) {
			panic("kaboom")
		},
	)
	r := as.NewRegistry()
	if err := r.Register(tool); err != nil {
		t.Fatal(err)
	}

	result := r.Dispatch(context.Background(), "boom", nil)
	if result.Supported {
		t.Error("Supported = true")
	}
	if !strings.Contains(result.Reason, "kaboom") {
		t.Errorf("Reason = %q", result.Reason)
	}
}

func TestDispatch_ToolResultPassthrough(t *testing.T) {
	tool := as.NewTool("scoped", "", json.RawMessage(`{}`),
		func(ctx context.Context, args json.RawMessage) (any, error) {
			return as.ToolResult{
				Supported: false,
				Scope:     "container",
				Reason:    "not visible from here",
			}, nil
		},
	)
	r := as.NewRegistry()
	if err := r.Register(tool); err != nil {
		t.Fatal(err)
	}

	result := r.Dispatch(context.Background(), "scoped", nil)
	if result.Supported {
		t.Error("Supported = true, want handler's false")
	}
	if result.Scope != "container" || result.Reason != "not visible from here" {
		t.Errorf("result = %+v", result)
	}
}

func TestDispatch_PlainValueWrapped(t *testing.T) {
	tool := as.NewTool("plain", "", json.RawMessage(`{}`),
		func(ctx context.Context, args json.RawMessage) (any, error) {
			return map[string]any{"answer": 42}, nil
		},
	)
	r := as.NewRegistry()
	if err := r.Register(tool); err != nil {
		t.Fatal(err)
	}

	result := r.Dispatch(context.Background(), "plain", nil)
	if !result.Supported {
		t.Errorf("Supported = false, reason %q", result.Reason)
	}
	data, ok := result.Data.(map[string]any)
	if !ok || data["answer"] != 42 {
		t.Errorf("Data = %#v", result.Data)
	}
}
