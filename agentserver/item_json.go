// Copyright (c) Microsoft. All rights reserved.

package agentserver

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Wire shapes follow the Responses API item format. Message content is a
// plain string on input; the service returns it as a list of output_text
// parts. Function call arguments are normally a JSON-encoded string, but
// some local servers send a bare object.

type messageWire struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Role    Role            `json:"role"`
	Content json.RawMessage `json:"content"`
	Status  string          `json:"status,omitempty"`
}

type functionCallWire struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	CallID    string          `json:"call_id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type functionCallOutputWire struct {
	Type   string `json:"type"`
	CallID string `json:"call_id"`
	Output string `json:"output"`
}

type contentPartWire struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// MarshalJSON encodes the message in the flat wire form.
func (i *MessageItem) MarshalJSON() ([]byte, error) {
	content, err := json.Marshal(i.Content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(messageWire{
		Type:    string(ItemTypeMessage),
		ID:      i.ID,
		Role:    i.Role,
		Content: content,
		Status:  i.Status,
	})
}

// MarshalJSON encodes the function call in the flat wire form.
func (i *FunctionCallItem) MarshalJSON() ([]byte, error) {
	var args json.RawMessage
	if i.Arguments != "" {
		b, err := json.Marshal(i.Arguments)
		if err != nil {
			return nil, err
		}
		args = b
	}
	return json.Marshal(functionCallWire{
		Type:      string(ItemTypeFunctionCall),
		ID:        i.ID,
		CallID:    i.CallID,
		Name:      i.Name,
		Arguments: args,
	})
}

// MarshalJSON encodes the function result in the flat wire form.
func (i *FunctionCallOutputItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(functionCallOutputWire{
		Type:   string(ItemTypeFunctionCallOutput),
		CallID: i.CallID,
		Output: i.Output,
	})
}

// UnmarshalItems decodes a JSON array of wire items. Item kinds this runtime
// does not handle are skipped rather than failing the whole response.
func UnmarshalItems(data []byte) ([]Item, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode item list: %w", err)
	}
	items := make([]Item, 0, len(raw))
	for _, r := range raw {
		item, err := unmarshalItem(r)
		if err != nil {
			return nil, err
		}
		if item != nil {
			items = append(items, item)
		}
	}
	return items, nil
}

func unmarshalItem(data json.RawMessage) (Item, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode item discriminator: %w", err)
	}

	switch ItemType(head.Type) {
	case ItemTypeMessage:
		var w messageWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("decode message item: %w", err)
		}
		return &MessageItem{
			ID:      w.ID,
			Role:    w.Role,
			Content: decodeMessageContent(w.Content),
			Status:  w.Status,
		}, nil

	case ItemTypeFunctionCall:
		var w functionCallWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("decode function_call item: %w", err)
		}
		return &FunctionCallItem{
			ID:        w.ID,
			CallID:    w.CallID,
			Name:      w.Name,
			Arguments: decodeArguments(w.Arguments),
		}, nil

	case ItemTypeFunctionCallOutput:
		var w functionCallOutputWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("decode function_call_output item: %w", err)
		}
		return &FunctionCallOutputItem{CallID: w.CallID, Output: w.Output}, nil
	}

	// Unknown item kind: pass over it.
	return nil, nil
}

// decodeMessageContent accepts both a plain string and a list of content
// parts, concatenating the output_text parts in the latter case.
func decodeMessageContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []contentPartWire
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	var texts []string
	for _, p := range parts {
		if p.Type == "output_text" && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.TrimSpace(strings.Join(texts, "\n"))
}

// decodeArguments normalizes arguments to a JSON-encoded object string.
func decodeArguments(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	// Bare object form.
	return string(raw)
}
