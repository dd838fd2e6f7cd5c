// Copyright (c) Microsoft. All rights reserved.

package agentserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/microsoft/agent-server/go/agentserver"

// Runner orchestrates one invocation: it seeds the turn list, calls the
// backend through the configured [Backend], routes every returned tool call
// through the [Registry], feeds the paired results back, and stops when the
// backend answers in plain text or the turn budget is exhausted.
//
// A Runner carries no per-invocation state and is safe for concurrent use.
type Runner struct {
	client       Backend
	registry     *Registry
	cfg          Config
	instructions string
	tracer       trace.Tracer
}

// RunnerOption configures a [Runner] via [NewRunner].
type RunnerOption func(*Runner)

// WithInstructions sets the system instructions seeded into every invocation.
func WithInstructions(instructions string) RunnerOption {
	return func(r *Runner) { r.instructions = instructions }
}

// WithConfig overrides the default [Config].
func WithConfig(cfg Config) RunnerOption {
	return func(r *Runner) { r.cfg = cfg }
}

// WithTracerProvider sets the tracer provider used for invocation spans.
func WithTracerProvider(tp trace.TracerProvider) RunnerOption {
	return func(r *Runner) { r.tracer = tp.Tracer(tracerName) }
}

// NewRunner creates a Runner over the given backend and tool registry.
func NewRunner(client Backend, registry *Registry, opts ...RunnerOption) *Runner {
	r := &Runner{
		client:   client,
		registry: registry,
		cfg:      DefaultConfig(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cfg.MaxTurns <= 0 {
		r.cfg.MaxTurns = DefaultMaxTurns
	}
	if r.cfg.ChatHistoryLength <= 0 {
		r.cfg.ChatHistoryLength = DefaultChatHistoryLength
	}
	return r
}

// RunRequest carries the inputs of one invocation.
type RunRequest struct {
	// Input is the new user input for this invocation.
	Input []Item

	// ConversationID, when set, names a persisted conversation the backend
	// should resume instead of receiving resent history.
	ConversationID string
}

// invocation is the per-run state shared by the loop and the event emitter.
type invocation struct {
	responseID     string
	conversationID string
	createdAt      time.Time
	usage          Usage
}

// Run executes the loop to completion and returns one consolidated response.
// Backend failures propagate; loop exhaustion does not: it yields the fixed
// turn-limit message as a normal completion.
func (r *Runner) Run(ctx context.Context, req *RunRequest) (*Response, error) {
	finalText, inv, err := r.runLoop(ctx, req)
	if err != nil {
		return nil, err
	}
	return r.finalResponse(finalText, inv), nil
}

// RunStream executes the loop and returns the ordered event stream for the
// invocation. On failure the stream ends without a terminal Completed event.
func (r *Runner) RunStream(ctx context.Context, req *RunRequest) *Stream[StreamEvent] {
	return NewStream(ctx, func(ctx context.Context, ch chan<- StreamEvent) error {
		finalText, inv, err := r.runLoop(ctx, req)
		if err != nil {
			return err
		}
		return r.emitEvents(ctx, ch, finalText, inv)
	})
}

// runLoop drives the bounded tool-calling loop and returns the final
// assistant text. Tool calls within one backend turn run sequentially in the
// order the backend returned them, since a result may need to precede the
// next call's context.
func (r *Runner) runLoop(ctx context.Context, req *RunRequest) (string, *invocation, error) {
	ctx, span := r.tracer.Start(ctx, "agent_run")
	defer span.End()

	inv := &invocation{
		responseID: "resp_" + uuid.NewString(),
		createdAt:  time.Now().UTC(),
	}

	slog.InfoContext(ctx, "invocation started",
		"response_id", inv.responseID,
		"conversation_id", req.ConversationID,
		"input_items", len(req.Input),
	)

	items := make([]Item, 0, len(req.Input)+1)
	if r.instructions != "" {
		items = append(items, NewSystemMessage(r.instructions))
	}
	items = append(items, req.Input...)

	var conv *Conversation
	if req.ConversationID != "" {
		span.SetAttributes(attribute.String("gen_ai.conversation.id", req.ConversationID))
		c, err := r.client.RetrieveConversation(ctx, req.ConversationID)
		if err != nil {
			slog.WarnContext(ctx, "failed to retrieve conversation, continuing without prior history",
				"conversation_id", req.ConversationID,
				"error", err,
			)
		} else {
			conv = c
			inv.conversationID = c.ID
		}
	}

	tools := r.registry.Schemas()

	for n := 0; n < r.cfg.MaxTurns; n++ {
		// Cancellation checkpoint between turns.
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}

		text, calledAny, err := r.runIteration(ctx, n, &items, conv, tools, inv)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return "", nil, err
		}
		if !calledAny {
			r.recordUsage(span, inv)
			return text, inv, nil
		}
	}

	limitMsg := fmt.Sprintf("I hit the %d max turn limit for this turn. Try rephrasing.", r.cfg.MaxTurns)
	slog.WarnContext(ctx, "turn limit reached", "response_id", inv.responseID, "max_turns", r.cfg.MaxTurns)
	r.recordUsage(span, inv)
	return limitMsg, inv, nil
}

// runIteration performs one backend round-trip plus the dispatch of every
// tool call it returned. It reports the collected assistant text and whether
// any tool call was processed.
func (r *Runner) runIteration(ctx context.Context, n int, items *[]Item, conv *Conversation, tools []ToolSchema, inv *invocation) (string, bool, error) {
	ctx, span := r.tracer.Start(ctx, "agent_run_iteration")
	defer span.End()
	span.SetAttributes(
		attribute.Int("current_iteration", n),
		attribute.String("gen_ai.request.model", r.cfg.Model),
	)

	// Bounded context window: only the most recent items go to the backend.
	in := *items
	if len(in) > r.cfg.ChatHistoryLength {
		in = in[len(in)-r.cfg.ChatHistoryLength:]
	}

	breq := &ResponseRequest{
		Model: r.cfg.Model,
		Input: in,
		Tools: tools,
	}
	if conv != nil {
		breq.Conversation = conv.ID
	}

	out, err := r.client.CreateResponse(ctx, breq)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", false, fmt.Errorf("%w: %w", ErrExecution, err)
	}
	inv.usage.Add(out.Usage)
	span.SetAttributes(
		attribute.Int("gen_ai.usage.input_tokens", out.Usage.InputTokens),
		attribute.Int("gen_ai.usage.output_tokens", out.Usage.OutputTokens),
	)

	if conv != nil {
		// The backend owns continuity: drop local items so the next call does
		// not duplicate conversation entries.
		*items = (*items)[:0]
	} else {
		*items = append(*items, out.Output...)
	}

	calledAny := false
	var textChunks []string
	for _, item := range out.Output {
		switch it := item.(type) {
		case *MessageItem:
			if txt := strings.TrimSpace(it.Content); txt != "" {
				textChunks = append(textChunks, txt)
			}
		case *FunctionCallItem:
			calledAny = true
			*items = append(*items, r.dispatchCall(ctx, it))
		}
	}

	return strings.TrimSpace(strings.Join(textChunks, "\n")), calledAny, nil
}

// dispatchCall executes one tool call and pairs it with its output item.
// Dispatch is total, so the loop always gets an answer for every call ID.
func (r *Runner) dispatchCall(ctx context.Context, call *FunctionCallItem) *FunctionCallOutputItem {
	ctx, span := r.tracer.Start(ctx, "tool_call_execution")
	defer span.End()
	span.SetAttributes(
		attribute.String("gen_ai.tool.name", call.Name),
		attribute.String("gen_ai.tool.type", "function"),
		attribute.String("gen_ai.tool.call.id", call.CallID),
		attribute.String("gen_ai.tool.call.arguments", truncate(call.Arguments, 1024)),
	)

	result := r.registry.Dispatch(ctx, call.Name, json.RawMessage(call.Arguments))
	if result.Supported {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, result.Reason)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		// ToolResult.Data came from a handler; an unmarshalable value is a
		// handler bug, reported to the model like any other tool failure.
		payload, _ = json.Marshal(ToolResult{
			Supported: false,
			Reason:    fmt.Sprintf("Tool error: unserializable result: %v", err),
		})
	}
	span.SetAttributes(attribute.String("gen_ai.tool.call.result", truncate(string(payload), 1024)))

	callID := call.CallID
	if callID == "" {
		callID = call.Name
	}
	return &FunctionCallOutputItem{CallID: callID, Output: string(payload)}
}

func (r *Runner) recordUsage(span trace.Span, inv *invocation) {
	span.SetAttributes(
		attribute.Int("gen_ai.usage.input_tokens", inv.usage.InputTokens),
		attribute.Int("gen_ai.usage.output_tokens", inv.usage.OutputTokens),
	)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
