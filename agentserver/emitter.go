// Copyright (c) Microsoft. All rights reserved.

package agentserver

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// finalResponse wraps the loop's final text into one completed output item.
func (r *Runner) finalResponse(finalText string, inv *invocation) *Response {
	item := &AssistantMessageItem{
		ID:      newMessageID(),
		Type:    string(ItemTypeMessage),
		Role:    RoleAssistant,
		Status:  "completed",
		Content: []OutputTextPart{NewOutputTextPart(finalText)},
	}
	return &Response{
		ID:             inv.responseID,
		Object:         "response",
		Status:         StatusCompleted,
		CreatedAt:      inv.createdAt.Unix(),
		ConversationID: inv.conversationID,
		Output:         []*AssistantMessageItem{item},
		Usage:          inv.usage,
		Metadata:       map[string]string{},
	}
}

// emitEvents renders the final text as the ordered event protocol. Sequence
// numbers are contiguous from 0; every send is a cancellation checkpoint, so
// an aborted consumer stops the producer without a partial event repeating.
func (r *Runner) emitEvents(ctx context.Context, ch chan<- StreamEvent, finalText string, inv *invocation) error {
	seq := 0
	nextSeq := func() eventBase {
		b := eventBase{SequenceNumber: seq}
		seq++
		return b
	}
	send := func(e StreamEvent) error {
		select {
		case ch <- e:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := send(ResponseCreatedEvent{
		eventBase: nextSeq(),
		Response: &Response{
			ID:             inv.responseID,
			Object:         "response",
			Status:         StatusInProgress,
			CreatedAt:      inv.createdAt.Unix(),
			ConversationID: inv.conversationID,
			Output:         []*AssistantMessageItem{},
		},
	}); err != nil {
		return err
	}

	itemID := newMessageID()
	if err := send(ResponseOutputItemAddedEvent{
		eventBase: nextSeq(),
		Item: &AssistantMessageItem{
			ID:      itemID,
			Type:    string(ItemTypeMessage),
			Role:    RoleAssistant,
			Status:  "in_progress",
			Content: []OutputTextPart{},
		},
	}); err != nil {
		return err
	}

	if err := send(ResponseContentPartAddedEvent{
		eventBase: nextSeq(),
		Part:      NewOutputTextPart(""),
	}); err != nil {
		return err
	}

	var assembled strings.Builder
	for _, piece := range splitChunks(finalText) {
		assembled.WriteString(piece)
		if err := send(ResponseTextDeltaEvent{
			eventBase: nextSeq(),
			Delta:     piece,
		}); err != nil {
			return err
		}
	}
	text := assembled.String()

	if err := send(ResponseTextDoneEvent{
		eventBase: nextSeq(),
		Text:      text,
	}); err != nil {
		return err
	}

	if err := send(ResponseContentPartDoneEvent{
		eventBase: nextSeq(),
		Part:      NewOutputTextPart(text),
	}); err != nil {
		return err
	}

	doneItem := &AssistantMessageItem{
		ID:      itemID,
		Type:    string(ItemTypeMessage),
		Role:    RoleAssistant,
		Status:  "completed",
		Content: []OutputTextPart{NewOutputTextPart(text)},
	}
	if err := send(ResponseOutputItemDoneEvent{
		eventBase: nextSeq(),
		Item:      doneItem,
	}); err != nil {
		return err
	}

	return send(ResponseCompletedEvent{
		eventBase: nextSeq(),
		Response: &Response{
			ID:             inv.responseID,
			Object:         "response",
			Status:         StatusCompleted,
			CreatedAt:      inv.createdAt.Unix(),
			ConversationID: inv.conversationID,
			Output:         []*AssistantMessageItem{doneItem},
			Usage:          inv.usage,
			Metadata:       map[string]string{},
		},
	})
}

// splitChunks breaks the final text into displayable whitespace-delimited
// chunks; each token carries its trailing space so concatenating the chunks
// reproduces the text.
func splitChunks(text string) []string {
	if text == "" {
		return nil
	}
	words := strings.Split(text, " ")
	chunks := make([]string, len(words))
	for i, w := range words {
		chunks[i] = w + " "
	}
	return chunks
}

func newMessageID() string {
	return "msg_" + uuid.NewString()
}
