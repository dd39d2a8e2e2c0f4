// Package runner implements the scenario runner (§4.5): per-scenario
// isolation, timeout racing, retries, and bounded-parallelism batch
// execution over the assertion kernel and agent adapter.
package runner

import (
	"context"
	"time"

	"github.com/fabrik-dev/fabrik/pkg/adapter"
	"github.com/fabrik-dev/fabrik/pkg/scenario"
)

// agentHandle implements scenario.AgentHandle over one adapter.Adapter
// instance and one conversation's turn history. Send appends the persona
// turn, invokes the adapter with the accumulated context, appends the
// agent's reply (including latency), and records both into the shared
// turn log the runner collects into RunResult.Turns.
type agentHandle struct {
	adapter        adapter.Adapter
	conversationID string
	ctxTurns       []adapter.Turn
	log            *[]scenario.TurnRecord
}

func newAgentHandle(a adapter.Adapter, conversationID string, log *[]scenario.TurnRecord) *agentHandle {
	return &agentHandle{adapter: a, conversationID: conversationID, log: log}
}

func (h *agentHandle) Send(ctx context.Context, message string) (scenario.AgentResponse, error) {
	now := time.Now().UTC()
	*h.log = append(*h.log, scenario.TurnRecord{Role: scenario.TurnRolePersona, Content: message, At: now})
	h.ctxTurns = append(h.ctxTurns, adapter.Turn{Role: "user", Content: message})

	resp, err := h.adapter.Send(ctx, message, adapter.SendContext{
		ConversationID: h.conversationID,
		Turns:          h.ctxTurns,
	})
	if err != nil {
		return scenario.AgentResponse{}, err
	}

	h.ctxTurns = append(h.ctxTurns, adapter.Turn{Role: "assistant", Content: resp.Text})
	*h.log = append(*h.log, scenario.TurnRecord{
		Role: scenario.TurnRoleAgent, Content: resp.Text, LatencyMs: resp.LatencyMs, At: time.Now().UTC(),
	})

	return toScenarioResponse(resp), nil
}

func toScenarioResponse(resp adapter.AgentResponse) scenario.AgentResponse {
	calls := make([]scenario.ToolCall, len(resp.ToolCalls))
	for i, tc := range resp.ToolCalls {
		calls[i] = scenario.ToolCall{Name: tc.Name, Arguments: tc.Arguments}
	}
	var usage *scenario.TokenUsage
	if resp.TokenUsage != nil {
		usage = &scenario.TokenUsage{
			PromptTokens:     resp.TokenUsage.PromptTokens,
			CompletionTokens: resp.TokenUsage.CompletionTokens,
			TotalTokens:      resp.TokenUsage.TotalTokens,
		}
	}
	return scenario.AgentResponse{
		Text: resp.Text, ToolCalls: calls, LatencyMs: resp.LatencyMs, TokenUsage: usage, Raw: resp.Raw,
	}
}
