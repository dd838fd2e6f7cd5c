// Copyright (c) Microsoft. All rights reserved.

package agentserver

import "encoding/json"

// ResponseStatus is the lifecycle state of a [Response].
type ResponseStatus string

const (
	StatusInProgress ResponseStatus = "in_progress"
	StatusCompleted  ResponseStatus = "completed"
)

// OutputTextPart is one text content part of an assistant output item.
type OutputTextPart struct {
	Type        string `json:"type"`
	Text        string `json:"text"`
	Annotations []any  `json:"annotations"`
}

// NewOutputTextPart creates an output_text part with empty annotations.
func NewOutputTextPart(text string) OutputTextPart {
	return OutputTextPart{Type: "output_text", Text: text, Annotations: []any{}}
}

// AssistantMessageItem is the assistant output item carried by events and by
// the final [Response].
type AssistantMessageItem struct {
	ID      string           `json:"id"`
	Type    string           `json:"type"`
	Role    Role             `json:"role"`
	Status  string           `json:"status"`
	Content []OutputTextPart `json:"content"`
}

// Response is the consolidated result of one invocation: a single completed
// output item plus status and accumulated usage. Batch callers receive it
// directly; streaming callers receive it inside the terminal event.
type Response struct {
	ID             string                  `json:"id"`
	Object         string                  `json:"object"`
	Status         ResponseStatus          `json:"status"`
	CreatedAt      int64                   `json:"created_at,omitempty"`
	ConversationID string                  `json:"conversation_id,omitempty"`
	Output         []*AssistantMessageItem `json:"output"`
	Usage          Usage                   `json:"usage,omitempty"`
	Metadata       map[string]string       `json:"metadata,omitempty"`
}

// OutputText returns the concatenated text of all output items.
func (r *Response) OutputText() string {
	var out string
	for _, item := range r.Output {
		for _, part := range item.Content {
			out += part.Text
		}
	}
	return out
}

// EventType identifies the kind of a [StreamEvent].
type EventType string

const (
	EventResponseCreated          EventType = "response.created"
	EventResponseOutputItemAdded  EventType = "response.output_item.added"
	EventResponseContentPartAdded EventType = "response.content_part.added"
	EventResponseTextDelta        EventType = "response.output_text.delta"
	EventResponseTextDone         EventType = "response.output_text.done"
	EventResponseContentPartDone  EventType = "response.content_part.done"
	EventResponseOutputItemDone   EventType = "response.output_item.done"
	EventResponseCompleted        EventType = "response.completed"
)

// StreamEvent is a sealed interface over the wire protocol's event variants.
// Sequence numbers are contiguous integers starting at 0 for one invocation;
// consumers must treat any gap or decrease as a protocol violation.
type StreamEvent interface {
	// EventType returns the discriminator for this event.
	EventType() EventType

	// Seq returns the event's sequence number within its invocation.
	Seq() int

	// sealed prevents external implementations.
	sealedEvent()
}

type eventBase struct {
	SequenceNumber int `json:"sequence_number"`
}

func (e eventBase) Seq() int   { return e.SequenceNumber }
func (eventBase) sealedEvent() {}

// ResponseCreatedEvent opens the stream with the in-progress response.
type ResponseCreatedEvent struct {
	eventBase
	Response *Response `json:"response"`
}

func (ResponseCreatedEvent) EventType() EventType { return EventResponseCreated }

// ResponseOutputItemAddedEvent announces a new, still-empty output item.
type ResponseOutputItemAddedEvent struct {
	eventBase
	OutputIndex int                   `json:"output_index"`
	Item        *AssistantMessageItem `json:"item"`
}

func (ResponseOutputItemAddedEvent) EventType() EventType { return EventResponseOutputItemAdded }

// ResponseContentPartAddedEvent announces a new, still-empty content part.
type ResponseContentPartAddedEvent struct {
	eventBase
	OutputIndex  int            `json:"output_index"`
	ContentIndex int            `json:"content_index"`
	Part         OutputTextPart `json:"part"`
}

func (ResponseContentPartAddedEvent) EventType() EventType { return EventResponseContentPartAdded }

// ResponseTextDeltaEvent carries one displayable chunk of the final text.
type ResponseTextDeltaEvent struct {
	eventBase
	OutputIndex  int    `json:"output_index"`
	ContentIndex int    `json:"content_index"`
	Delta        string `json:"delta"`
}

func (ResponseTextDeltaEvent) EventType() EventType { return EventResponseTextDelta }

// ResponseTextDoneEvent carries the full assembled text; concatenating all
// preceding deltas yields exactly this text.
type ResponseTextDoneEvent struct {
	eventBase
	OutputIndex  int    `json:"output_index"`
	ContentIndex int    `json:"content_index"`
	Text         string `json:"text"`
}

func (ResponseTextDoneEvent) EventType() EventType { return EventResponseTextDone }

// ResponseContentPartDoneEvent closes a content part.
type ResponseContentPartDoneEvent struct {
	eventBase
	OutputIndex  int            `json:"output_index"`
	ContentIndex int            `json:"content_index"`
	Part         OutputTextPart `json:"part"`
}

func (ResponseContentPartDoneEvent) EventType() EventType { return EventResponseContentPartDone }

// ResponseOutputItemDoneEvent closes an output item, now marked completed.
type ResponseOutputItemDoneEvent struct {
	eventBase
	OutputIndex int                   `json:"output_index"`
	Item        *AssistantMessageItem `json:"item"`
}

func (ResponseOutputItemDoneEvent) EventType() EventType { return EventResponseOutputItemDone }

// ResponseCompletedEvent terminates a successful stream with the finished
// response. Its absence signals that the invocation failed.
type ResponseCompletedEvent struct {
	eventBase
	Response *Response `json:"response"`
}

func (ResponseCompletedEvent) EventType() EventType { return EventResponseCompleted }

// MarshalEvent encodes an event in wire form with its type discriminator.
func MarshalEvent(e StreamEvent) ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	m["type"] = string(e.EventType())
	return json.Marshal(m)
}
