// Copyright (c) Microsoft. All rights reserved.

package agentserver

// Role identifies the author of a message item.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ItemType identifies the kind of conversation item.
type ItemType string

const (
	ItemTypeMessage            ItemType = "message"
	ItemTypeFunctionCall       ItemType = "function_call"
	ItemTypeFunctionCallOutput ItemType = "function_call_output"
)

// Item is a sealed interface representing one entry in a conversation turn
// list: a message, a tool call requested by the model, or the paired tool
// result. Use a type switch to inspect the underlying type.
type Item interface {
	// Type returns the discriminator for this item.
	Type() ItemType

	// sealed prevents external implementations.
	sealed()
}

// itemBase is embedded by every concrete Item type to satisfy the sealed marker.
type itemBase struct{}

func (itemBase) sealed() {}

// MessageItem is a plain message authored by a role.
type MessageItem struct {
	itemBase
	ID      string
	Role    Role
	Content string
	Status  string
}

func (i *MessageItem) Type() ItemType { return ItemTypeMessage }

// FunctionCallItem is a tool call requested by the backend. Arguments is the
// JSON-encoded argument object exactly as the backend produced it.
type FunctionCallItem struct {
	itemBase
	ID        string
	CallID    string
	Name      string
	Arguments string
}

func (i *FunctionCallItem) Type() ItemType { return ItemTypeFunctionCall }

// FunctionCallOutputItem answers a [FunctionCallItem]. Output is the
// JSON-encoded [ToolResult] for the call with the same CallID.
type FunctionCallOutputItem struct {
	itemBase
	CallID string
	Output string
}

func (i *FunctionCallOutputItem) Type() ItemType { return ItemTypeFunctionCallOutput }

// NewSystemMessage creates a system-role [MessageItem].
func NewSystemMessage(text string) *MessageItem {
	return &MessageItem{Role: RoleSystem, Content: text}
}

// NewUserMessage creates a user-role [MessageItem].
func NewUserMessage(text string) *MessageItem {
	return &MessageItem{Role: RoleUser, Content: text}
}

// NewAssistantMessage creates an assistant-role [MessageItem].
func NewAssistantMessage(text string) *MessageItem {
	return &MessageItem{Role: RoleAssistant, Content: text}
}
