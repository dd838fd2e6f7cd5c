// Copyright (c) Microsoft. All rights reserved.

package responses

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	as "github.com/microsoft/agent-server/go/agentserver"
)

// Client implements [agentserver.Backend] against a Responses-style API.
// Use [New] to create one.
type Client struct {
	tp transport
}

// Verify interface compliance at compile time.
var _ as.Backend = (*Client)(nil)

// New creates a responses [Client] for the given base endpoint
// (e.g., "https://myproject.services.ai.azure.com/openai/v1").
func New(endpoint string, opts ...Option) *Client {
	cfg := &clientConfig{}
	for _, o := range opts {
		o(cfg)
	}
	return &Client{tp: newHTTPTransport(endpoint, cfg)}
}

// responseRequest is the wire request body for a response creation call.
type responseRequest struct {
	Model        string          `json:"model"`
	Input        []as.Item       `json:"input"`
	Tools        []as.ToolSchema `json:"tools,omitempty"`
	Conversation string          `json:"conversation,omitempty"`
}

// responseWire is the wire shape of a created response.
type responseWire struct {
	ID     string          `json:"id"`
	Output json.RawMessage `json:"output"`
	Usage  *usageWire      `json:"usage,omitempty"`
}

// usageWire tolerates both Responses and Chat Completions counter names.
type usageWire struct {
	InputTokens      int `json:"input_tokens"`
	OutputTokens     int `json:"output_tokens"`
	TotalTokens      int `json:"total_tokens"`
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type conversationWire struct {
	ID string `json:"id"`
}

// CreateResponse sends one turn to the model and parses its output items.
func (c *Client) CreateResponse(ctx context.Context, req *as.ResponseRequest) (*as.ModelOutput, error) {
	body := &responseRequest{
		Model:        req.Model,
		Input:        req.Input,
		Tools:        req.Tools,
		Conversation: req.Conversation,
	}

	resp, err := c.tp.do(ctx, "POST", "/responses", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %v", as.ErrService, err)
	}

	var raw responseWire
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", as.ErrInvalidResponse, err)
	}

	out := &as.ModelOutput{ID: raw.ID}
	if len(raw.Output) > 0 {
		items, err := as.UnmarshalItems(raw.Output)
		if err != nil {
			return nil, fmt.Errorf("%w: parse output items: %v", as.ErrInvalidResponse, err)
		}
		out.Output = items
	}
	out.Usage = parseUsage(raw.Usage)
	return out, nil
}

// RetrieveConversation looks up a service-managed conversation by ID.
func (c *Client) RetrieveConversation(ctx context.Context, id string) (*as.Conversation, error) {
	resp, err := c.tp.do(ctx, "GET", "/conversations/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read conversation body: %v", as.ErrService, err)
	}

	var raw conversationWire
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse conversation: %v", as.ErrInvalidResponse, err)
	}
	if raw.ID == "" {
		return nil, fmt.Errorf("%w: conversation without id", as.ErrInvalidResponse)
	}
	return &as.Conversation{ID: raw.ID}, nil
}

// parseUsage maps wire counters onto framework usage, preferring the
// Responses names and falling back to Chat Completions names.
func parseUsage(u *usageWire) as.Usage {
	if u == nil {
		return as.Usage{}
	}
	in := u.InputTokens
	if in == 0 {
		in = u.PromptTokens
	}
	out := u.OutputTokens
	if out == 0 {
		out = u.CompletionTokens
	}
	total := u.TotalTokens
	if total == 0 {
		total = in + out
	}
	return as.Usage{InputTokens: in, OutputTokens: out, TotalTokens: total}
}
