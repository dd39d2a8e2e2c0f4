// Package adapter normalizes the agent under test's wire protocol into a
// single send(message, context) -> AgentResponse operation, regardless of
// whether the AUT speaks plain JSON, server-sent events, or the AI-SDK
// data-stream format.
package adapter

import "context"

// ToolCall is one function/tool invocation the AUT reported making.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// TokenUsage mirrors gateway.TokenUsage but is reported by the AUT itself,
// when it chooses to.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Turn is one exchange already recorded in a conversation, replayed to the
// AUT on the next send when SendContext.Turns is non-empty (no server-side
// session is assumed).
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SendContext carries everything about a send beyond the message text.
type SendContext struct {
	ConversationID string
	Turns          []Turn
}

// AgentResponse is an immutable record of one send. It is never mutated
// after construction.
type AgentResponse struct {
	Text       string         `json:"text"`
	ToolCalls  []ToolCall     `json:"toolCalls"`
	LatencyMs  int64          `json:"latencyMs"`
	TokenUsage *TokenUsage    `json:"tokenUsage,omitempty"`
	Raw        any            `json:"raw,omitempty"`
}

// Adapter is the normalized surface the scenario runner drives. reset
// clears any per-adapter-instance state (e.g. a previously negotiated
// subprocess session) between scenario retries; HTTPAdapter is stateless
// per send and implements it as a no-op.
type Adapter interface {
	Send(ctx context.Context, message string, sendCtx SendContext) (AgentResponse, error)
	Reset(ctx context.Context) error
	Close() error
}
