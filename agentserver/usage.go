// Copyright (c) Microsoft. All rights reserved.

package agentserver

// Usage holds token consumption statistics, accumulated across the backend
// calls of one invocation and reported once at invocation end.
type Usage struct {
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
	TotalTokens  int `json:"total_tokens,omitempty"`
}

// Add accumulates another backend call's counters into u.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}
