// Package scenario defines the unit of execution the runner drives: a
// named, taggable function over a Context that exposes agent.send, the
// bound assertion surface, the optional AgentProfile, and a free-form
// scores map. A Scenario is pure metadata until Run executes it.
package scenario

import (
	"context"
	"time"
)

// Persona describes who the scenario pretends to be when talking to the
// agent under test.
type Persona struct {
	Role      string `json:"role" yaml:"role"`
	Tone      string `json:"tone,omitempty" yaml:"tone,omitempty"`
	Backstory string `json:"backstory,omitempty" yaml:"backstory,omitempty"`
}

// Fn is the opaque scenario procedure: it either completes or returns an
// error (a target-language "throw" surfaces to the runner as an error).
type Fn func(ctx context.Context, rc *RunContext) error

// Scenario is the unit of execution: unique name within a run, optional
// tags, and the procedure itself. It owns no resources.
type Scenario struct {
	Name string   `json:"name" yaml:"name"`
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Fn   Fn       `json:"-" yaml:"-"`
}

// HasTag reports whether s carries tag.
func (s Scenario) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ToolCall mirrors adapter.ToolCall without importing the adapter package,
// keeping scenario a leaf dependency.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// AgentResponse is the immutable per-send record exposed to scenario code
// via RunContext.Agent.Send. It mirrors adapter.AgentResponse's shape.
type AgentResponse struct {
	Text       string      `json:"text"`
	ToolCalls  []ToolCall  `json:"toolCalls"`
	LatencyMs  int64       `json:"latencyMs"`
	TokenUsage *TokenUsage `json:"tokenUsage,omitempty"`
	Raw        any         `json:"raw,omitempty"`
}

// TokenUsage mirrors gateway.TokenUsage / adapter.TokenUsage.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// AssertionResult is one recorded assertion outcome. Append-only within
// one scenario execution.
type AssertionResult struct {
	Type      string `json:"type"`
	Passed    bool   `json:"passed"`
	Expected  any    `json:"expected,omitempty"`
	Actual    any    `json:"actual,omitempty"`
	Reasoning string `json:"reasoning,omitempty"`
	LatencyMs *int64 `json:"latencyMs,omitempty"`
	Error     string `json:"error,omitempty"`
}

// TurnRole distinguishes a persona-authored turn from an agent reply.
type TurnRole string

const (
	TurnRolePersona TurnRole = "persona"
	TurnRoleAgent   TurnRole = "agent"
)

// TurnRecord is one entry of a RunResult's ordered conversation log.
type TurnRecord struct {
	Role      TurnRole  `json:"role"`
	Content   string    `json:"content"`
	LatencyMs int64     `json:"latencyMs,omitempty"`
	At        time.Time `json:"at"`
}

// RunResult is the per-scenario outcome the runner produces.
type RunResult struct {
	Scenario   string            `json:"scenario"`
	Passed     bool              `json:"passed"`
	Score      float64           `json:"score"`
	Assertions []AssertionResult `json:"assertions"`
	Turns      []TurnRecord      `json:"turns"`
	Duration   time.Duration     `json:"duration"`
	Error      string            `json:"error,omitempty"`
	Attempts   int               `json:"attempts"`
}
