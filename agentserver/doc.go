// Copyright (c) Microsoft. All rights reserved.

// Package agentserver implements the hosted agent invocation runtime: a
// bounded tool-calling loop over a Responses-style chat backend, local tool
// dispatch, and an ordered streaming event protocol for delivering results.
//
// # Quick Start
//
// Create a [Backend] (e.g., from the responses package), register tools, and
// build a [Runner]:
//
//	reg := agentserver.NewRegistry()
//	reg.Register(myTool)
//
//	runner := agentserver.NewRunner(client, reg,
//	    agentserver.WithInstructions("You are a helpful assistant."),
//	)
//
//	resp, err := runner.Run(ctx, &agentserver.RunRequest{
//	    Input: []agentserver.Item{agentserver.NewUserMessage("Hello!")},
//	})
//
// # Architecture
//
// The package is organized around these abstractions:
//
//   - [Runner]: drives the bounded loop: call the backend, dispatch the tool
//     calls it returns, feed results back, repeat until the model answers in
//     plain text or the turn budget runs out.
//   - [Backend]: interface for the chat-completion service (implemented by
//     provider packages).
//   - [Registry]: maps tool names to schemas and handlers; its Dispatch is
//     total: every failure becomes a structured [ToolResult], never an error.
//   - [Item]: sealed interface over conversation items (message,
//     function_call, function_call_output).
//   - [StreamEvent]: tagged variants of the wire protocol, each carrying a
//     contiguous sequence number scoped to one invocation.
//   - [Stream]: generic pull-based iterator backing the streaming mode.
//
// # Tools
//
// Use [NewTypedTool] for type-safe tools with automatic JSON Schema
// generation:
//
//	type PortArgs struct {
//	    Port int `json:"port" jsonschema:"description=Port to check,required,minimum=1,maximum=65535"`
//	}
//
//	tool := agentserver.NewTypedTool("check_port", "Check listeners on a port",
//	    func(ctx context.Context, args PortArgs) (any, error) {
//	        return probePort(args.Port)
//	    },
//	)
//
// # Streaming
//
// [Runner.RunStream] yields the event sequence Created, OutputItemAdded,
// ContentPartAdded, TextDelta..., TextDone, ContentPartDone, OutputItemDone,
// Completed. Consumers must treat any gap or decrease in sequence numbers as
// a protocol violation; a stream that ends without Completed failed.
package agentserver
