// Copyright (c) Microsoft. All rights reserved.

package agentserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	as "github.com/microsoft/agent-server/go/agentserver"
)

// fakeBackend implements as.Backend with function hooks.
type fakeBackend struct {
	createFn   func(ctx context.Context, req *as.ResponseRequest) (*as.ModelOutput, error)
	retrieveFn func(ctx context.Context, id string) (*as.Conversation, error)
}

func (f *fakeBackend) CreateResponse(ctx context.Context, req *as.ResponseRequest) (*as.ModelOutput, error) {
	return f.createFn(ctx, req)
}

func (f *fakeBackend) RetrieveConversation(ctx context.Context, id string) (*as.Conversation, error) {
	if f.retrieveFn == nil {
		return nil, errors.New("no conversation backend")
	}
	return f.retrieveFn(ctx, id)
}

func newTestRegistry(t *testing.T, tools ...as.Tool) *as.Registry {
	t.Helper()
	r := as.NewRegistry()
	if err := r.Register(tools...); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return r
}

func TestRunner_PlainAnswer(t *testing.T) {
	backend := &fakeBackend{
		createFn: func(ctx context.Context, req *as.ResponseRequest) (*as.ModelOutput, error) {
			return &as.ModelOutput{
				ID:     "resp-1",
				Output: []as.Item{as.NewAssistantMessage("All good.")},
				Usage:  as.Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
			}, nil
		},
	}

	runner := as.NewRunner(backend, as.NewRegistry())
	resp, err := runner.Run(context.Background(), &as.RunRequest{
		Input: []as.Item{as.NewUserMessage("status?")},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if resp.OutputText() != "All good." {
		t.Errorf("OutputText = %q", resp.OutputText())
	}
	if resp.Status != as.StatusCompleted {
		t.Errorf("Status = %q", resp.Status)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("TotalTokens = %d", resp.Usage.TotalTokens)
	}
	if !strings.HasPrefix(resp.ID, "resp_") {
		t.Errorf("ID = %q, want resp_ prefix", resp.ID)
	}
}

func TestRunner_ToolCallRoundTrip(t *testing.T) {
	echo := as.NewTypedTool("echo", "Echoes input",
		func(ctx context.Context, args struct {
			Text string `json:"text"`
		}) (any, error) {
			return map[string]any{"echo": args.Text}, nil
		},
	)

	callCount := 0
	var secondInput []as.Item
	backend := &fakeBackend{
		createFn: func(ctx context.Context, req *as.ResponseRequest) (*as.ModelOutput, error) {
			callCount++
			if callCount == 1 {
				return &as.ModelOutput{
					Output: []as.Item{
						&as.FunctionCallItem{CallID: "call-1", Name: "echo", Arguments: `{"text":"hi"}`},
						&as.FunctionCallItem{CallID: "call-2", Name: "echo", Arguments: `{"text":"again"}`},
					},
					Usage: as.Usage{InputTokens: 7, OutputTokens: 3, TotalTokens: 10},
				}, nil
			}
			secondInput = req.Input
			return &as.ModelOutput{
				Output: []as.Item{as.NewAssistantMessage("done")},
				Usage:  as.Usage{InputTokens: 20, OutputTokens: 2, TotalTokens: 22},
			}, nil
		},
	}

	runner := as.NewRunner(backend, newTestRegistry(t, echo))
	resp, err := runner.Run(context.Background(), &as.RunRequest{
		Input: []as.Item{as.NewUserMessage("echo twice")},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if callCount != 2 {
		t.Fatalf("backend called %d times, want 2", callCount)
	}
	if resp.OutputText() != "done" {
		t.Errorf("OutputText = %q", resp.OutputText())
	}
	if resp.Usage.TotalTokens != 32 {
		t.Errorf("accumulated TotalTokens = %d, want 32", resp.Usage.TotalTokens)
	}

	// Every call ID must have a paired output in the second request, in
	// dispatch order.
	var outputs []*as.FunctionCallOutputItem
	for _, item := range secondInput {
		if out, ok := item.(*as.FunctionCallOutputItem); ok {
			outputs = append(outputs, out)
		}
	}
	if len(outputs) != 2 {
		t.Fatalf("got %d function_call_output items, want 2", len(outputs))
	}
	if outputs[0].CallID != "call-1" || outputs[1].CallID != "call-2" {
		t.Errorf("call IDs = %q, %q", outputs[0].CallID, outputs[1].CallID)
	}

	var result as.ToolResult
	if err := json.Unmarshal([]byte(outputs[0].Output), &result); err != nil {
		t.Fatalf("decode tool result: %v", err)
	}
	if !result.Supported {
		t.Errorf("result.Supported = false, reason %q", result.Reason)
	}
}

func TestRunner_TurnLimit(t *testing.T) {
	calls := 0
	backend := &fakeBackend{
		createFn: func(ctx context.Context, req *as.ResponseRequest) (*as.ModelOutput, error) {
			calls++
			return &as.ModelOutput{
				Output: []as.Item{
					&as.FunctionCallItem{CallID: fmt.Sprintf("call-%d", calls), Name: "noop", Arguments: "{}"},
				},
			}, nil
		},
	}

	noop := as.NewTool("noop", "Does nothing", json.RawMessage(`{"type":"object","properties":{}}`),
		func(ctx context.Context, args json.RawMessage) (any, error) { return "ok", nil },
	)

	cfg := as.DefaultConfig()
	cfg.MaxTurns = 3
	runner := as.NewRunner(backend, newTestRegistry(t, noop), as.WithConfig(cfg))

	resp, err := runner.Run(context.Background(), &as.RunRequest{
		Input: []as.Item{as.NewUserMessage("loop forever")},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if calls != 3 {
		t.Errorf("backend called %d times, want 3", calls)
	}
	want := "I hit the 3 max turn limit for this turn. Try rephrasing."
	if resp.OutputText() != want {
		t.Errorf("OutputText = %q, want %q", resp.OutputText(), want)
	}
	if resp.Status != as.StatusCompleted {
		t.Errorf("Status = %q, want completed", resp.Status)
	}
}

func TestRunner_ToolErrorContinuesLoop(t *testing.T) {
	failing := as.NewTypedTool("flaky", "Always fails",
		func(ctx context.Context, args struct{}) (any, error) {
			return nil, errors.New("disk on fire")
		},
	)

	callCount := 0
	var secondInput []as.Item
	backend := &fakeBackend{
		createFn: func(ctx context.Context, req *as.ResponseRequest) (*as.ModelOutput, error) {
			callCount++
			if callCount == 1 {
				return &as.ModelOutput{
					Output: []as.Item{
						&as.FunctionCallItem{CallID: "call-1", Name: "flaky", Arguments: "{}"},
					},
				}, nil
			}
			secondInput = req.Input
			return &as.ModelOutput{
				Output: []as.Item{as.NewAssistantMessage("the tool failed")},
			}, nil
		},
	}

	runner := as.NewRunner(backend, newTestRegistry(t, failing))
	resp, err := runner.Run(context.Background(), &as.RunRequest{
		Input: []as.Item{as.NewUserMessage("try it")},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.OutputText() != "the tool failed" {
		t.Errorf("OutputText = %q", resp.OutputText())
	}

	var out *as.FunctionCallOutputItem
	for _, item := range secondInput {
		if o, ok := item.(*as.FunctionCallOutputItem); ok {
			out = o
		}
	}
	if out == nil {
		t.Fatal("no function_call_output in second request")
	}
	var result as.ToolResult
	if err := json.Unmarshal([]byte(out.Output), &result); err != nil {
		t.Fatalf("decode tool result: %v", err)
	}
	if result.Supported {
		t.Error("Supported = true, want false")
	}
	if !strings.Contains(result.Reason, "Tool error") || !strings.Contains(result.Reason, "disk on fire") {
		t.Errorf("Reason = %q", result.Reason)
	}
}

func TestRunner_BackendErrorPropagates(t *testing.T) {
	backend := &fakeBackend{
		createFn: func(ctx context.Context, req *as.ResponseRequest) (*as.ModelOutput, error) {
			return nil, &as.ServiceError{StatusCode: 500, Message: "boom", Err: as.ErrService}
		},
	}

	runner := as.NewRunner(backend, as.NewRegistry())
	_, err := runner.Run(context.Background(), &as.RunRequest{
		Input: []as.Item{as.NewUserMessage("hi")},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, as.ErrExecution) {
		t.Errorf("error %v should wrap ErrExecution", err)
	}
	if !errors.Is(err, as.ErrService) {
		t.Errorf("error %v should wrap ErrService", err)
	}
}

func TestRunner_ConversationMode(t *testing.T) {
	echo := as.NewTool("ping", "Pings", json.RawMessage(`{"type":"object","properties":{}}`),
		func(ctx context.Context, args json.RawMessage) (any, error) { return "pong", nil },
	)

	callCount := 0
	var inputs [][]as.Item
	var conversations []string
	backend := &fakeBackend{
		retrieveFn: func(ctx context.Context, id string) (*as.Conversation, error) {
			return &as.Conversation{ID: id}, nil
		},
		createFn: func(ctx context.Context, req *as.ResponseRequest) (*as.ModelOutput, error) {
			callCount++
			in := make([]as.Item, len(req.Input))
			copy(in, req.Input)
			inputs = append(inputs, in)
			conversations = append(conversations, req.Conversation)
			if callCount == 1 {
				return &as.ModelOutput{
					Output: []as.Item{
						&as.FunctionCallItem{CallID: "call-1", Name: "ping", Arguments: "{}"},
					},
				}, nil
			}
			return &as.ModelOutput{
				Output: []as.Item{as.NewAssistantMessage("pong received")},
			}, nil
		},
	}

	runner := as.NewRunner(backend, newTestRegistry(t, echo))
	resp, err := runner.Run(context.Background(), &as.RunRequest{
		Input:          []as.Item{as.NewUserMessage("ping please")},
		ConversationID: "conv-42",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.ConversationID != "conv-42" {
		t.Errorf("ConversationID = %q", resp.ConversationID)
	}
	if conversations[0] != "conv-42" || conversations[1] != "conv-42" {
		t.Errorf("conversation fields = %v", conversations)
	}

	// With a service-managed conversation, the second request must carry only
	// the new tool outputs, not the resent history or model output.
	if len(inputs[1]) != 1 {
		t.Fatalf("second input has %d items, want 1", len(inputs[1]))
	}
	if _, ok := inputs[1][0].(*as.FunctionCallOutputItem); !ok {
		t.Errorf("second input item is %T, want *FunctionCallOutputItem", inputs[1][0])
	}
}

func TestRunner_ConversationRetrieveFailureContinues(t *testing.T) {
	backend := &fakeBackend{
		retrieveFn: func(ctx context.Context, id string) (*as.Conversation, error) {
			return nil, errors.New("not found")
		},
		createFn: func(ctx context.Context, req *as.ResponseRequest) (*as.ModelOutput, error) {
			if req.Conversation != "" {
				t.Errorf("request carries conversation %q after retrieval failed", req.Conversation)
			}
			return &as.ModelOutput{
				Output: []as.Item{as.NewAssistantMessage("fresh start")},
			}, nil
		},
	}

	runner := as.NewRunner(backend, as.NewRegistry())
	resp, err := runner.Run(context.Background(), &as.RunRequest{
		Input:          []as.Item{as.NewUserMessage("hello")},
		ConversationID: "conv-missing",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.OutputText() != "fresh start" {
		t.Errorf("OutputText = %q", resp.OutputText())
	}
	if resp.ConversationID != "" {
		t.Errorf("ConversationID = %q, want empty", resp.ConversationID)
	}
}

func TestRunner_HistoryTruncation(t *testing.T) {
	var gotLen int
	backend := &fakeBackend{
		createFn: func(ctx context.Context, req *as.ResponseRequest) (*as.ModelOutput, error) {
			gotLen = len(req.Input)
			return &as.ModelOutput{
				Output: []as.Item{as.NewAssistantMessage("ok")},
			}, nil
		},
	}

	cfg := as.DefaultConfig()
	cfg.ChatHistoryLength = 4
	runner := as.NewRunner(backend, as.NewRegistry(),
		as.WithConfig(cfg),
		as.WithInstructions("be brief"),
	)

	input := make([]as.Item, 0, 10)
	for i := 0; i < 10; i++ {
		input = append(input, as.NewUserMessage(fmt.Sprintf("message %d", i)))
	}
	if _, err := runner.Run(context.Background(), &as.RunRequest{Input: input}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gotLen != 4 {
		t.Errorf("backend received %d items, want 4", gotLen)
	}
}

func TestRunner_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	backend := &fakeBackend{
		createFn: func(ctx context.Context, req *as.ResponseRequest) (*as.ModelOutput, error) {
			cancel()
			return &as.ModelOutput{
				Output: []as.Item{
					&as.FunctionCallItem{CallID: "call-1", Name: "nope", Arguments: "{}"},
				},
			}, nil
		},
	}

	runner := as.NewRunner(backend, as.NewRegistry())
	_, err := runner.Run(ctx, &as.RunRequest{Input: []as.Item{as.NewUserMessage("hi")}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
