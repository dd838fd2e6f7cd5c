// Copyright (c) Microsoft. All rights reserved.

package agentserver

import "context"

// ResponseRequest is one chat-completion call: the current turn items, the
// advertised tool declarations, and optionally the ID of a service-side
// conversation to resume.
type ResponseRequest struct {
	Model        string
	Input        []Item
	Tools        []ToolSchema
	Conversation string
}

// ModelOutput is the backend's reply to one [ResponseRequest]: the output
// items (assistant messages and/or function calls) plus token usage for the
// call.
type ModelOutput struct {
	ID     string
	Output []Item
	Usage  Usage
}

// Conversation identifies a service-managed conversation. When present, the
// backend owns history continuity and the runner stops resending local items.
type Conversation struct {
	ID string
}

// Backend is the interface for the chat-completion service.
// Provider packages (e.g., responses) implement this interface.
type Backend interface {
	// CreateResponse sends one turn to the model and returns its output.
	CreateResponse(ctx context.Context, req *ResponseRequest) (*ModelOutput, error)

	// RetrieveConversation looks up a service-managed conversation by ID.
	RetrieveConversation(ctx context.Context, id string) (*Conversation, error)
}
