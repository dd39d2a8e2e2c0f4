package scenario

import (
	"context"

	"github.com/fabrik-dev/fabrik/pkg/profile"
)

// AgentHandle is the scenario's only way to talk to the agent under test.
// Send appends a persona turn, invokes the adapter with the accumulated
// conversation, appends the agent's reply, and returns it.
type AgentHandle interface {
	Send(ctx context.Context, message string) (AgentResponse, error)
}

// Asserter is the bound assertion surface a running scenario calls through
// rc.Assert. Local methods record a result synchronously and return it;
// LLM-backed methods are fire-and-tracked — they return nothing because
// the runner's collector owns their goroutine and guarantees it is drained
// before the scenario's results are collected (see pkg/assert and §5).
type Asserter interface {
	Contains(actual, substr string)
	NotContains(actual, substr string)
	Matches(actual, pattern string)
	JSONSchema(value any, schema map[string]any)
	Latency(actualMs int64, maxMs int64)
	TokenUsage(usage *TokenUsage, maxTotal int)
	ToolCalled(calls []ToolCall, name string)
	ToolNotCalled(calls []ToolCall, name string)

	Sentiment(ctx context.Context, text string, wantPositive bool)
	LLMJudge(ctx context.Context, criteria, transcript string, threshold float64)
	Guardrail(ctx context.Context, text, rule string)
	Factuality(ctx context.Context, claim, reference string)
	Custom(ctx context.Context, prompt string)
}

// RunContext is what a scenario Fn receives: the agent handle, the bound
// assertion surface, the optional profile the scenario was generated
// against, and a free-form scores map scenario code may populate for
// reporting (never consumed by the pass/fail rule itself).
type RunContext struct {
	Agent   AgentHandle
	Assert  Asserter
	Profile *profile.AgentProfile
	Scores  map[string]float64
}

type currentAssertKey struct{}

// WithCurrent returns a context carrying asserter as the ambient "current
// assert" binding, for scenario code written against a free assert.X(...)
// style rather than rc.Assert.X(...). The binding is scenario-local (a
// context value, not a package-level mutable) so it stays race-free when
// the runner executes a batch of scenarios concurrently under
// parallelism>1 — see §5's "Shared resources" requirement that the
// process-wide binding become scenario-local under concurrent execution.
func WithCurrent(ctx context.Context, asserter Asserter) context.Context {
	return context.WithValue(ctx, currentAssertKey{}, asserter)
}

// Current returns the asserter bound to ctx by WithCurrent, or nil if none
// was bound.
func Current(ctx context.Context) Asserter {
	a, _ := ctx.Value(currentAssertKey{}).(Asserter)
	return a
}
