package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/fabrik-dev/fabrik/pkg/gateway"
	"github.com/fabrik-dev/fabrik/pkg/profile"
)

const writerSystemPrompt = `You are the test writer for a conversational agent evaluation harness, ` +
	`generating Go source for one test scenario at a time.

Output a single Go file. It MUST:
- declare "package scenarios"
- import "github.com/fabrik-dev/fabrik/pkg/scenario"
- define an init() func that calls scenario.Register with a scenario.Scenario literal
- set Name to the scenario's name and Tags to its category
- implement Fn as func(ctx context.Context, rc *scenario.RunContext) error
- call rc.Agent.Send(ctx, message) for every turn, checking the returned error
- call rc.Assert.Contains / NotContains / Matches / JSONSchema / Latency / TokenUsage for
  deterministic checks on the response text, and rc.Assert.LLMJudge(ctx, criteria, transcript,
  threshold) for anything requiring judgment
- never call rc.Assert.ToolCalled, ToolNotCalled, Guardrail, Sentiment, Factuality, or Custom
- never launch an assertion call inside a bare "go" statement

Respond with the Go source only. No markdown fence, no commentary.`

// Write produces one Go scenario file for spec by issuing a single
// gateway call and running the four mandatory post-processing steps
// (§4.4) over the reply.
func Write(ctx context.Context, gw *gateway.Gateway, prof *profile.AgentProfile, spec ScenarioSpec) (string, error) {
	resp, err := gw.Generate(ctx, gateway.Request{
		Messages: []gateway.Message{
			{Role: gateway.RoleSystem, Content: writerSystemPrompt},
			{Role: gateway.RoleUser, Content: buildWriterPrompt(prof, spec)},
		},
		Temperature: 0.4,
	})
	if err != nil {
		return "", fmt.Errorf("generator: write scenario %s: %w", spec.Slug, err)
	}
	return PostProcess(resp.Text), nil
}

func buildWriterPrompt(prof *profile.AgentProfile, spec ScenarioSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Category: %s\n", spec.Category)
	fmt.Fprintf(&b, "Scenario name: %s\n", spec.Name)
	fmt.Fprintf(&b, "Slug: %s\n", spec.Slug)
	fmt.Fprintf(&b, "Description: %s\n", spec.Description)
	fmt.Fprintf(&b, "Intent: %s\n", spec.Intent)
	fmt.Fprintf(&b, "Persona role: %s\n", spec.Persona.Role)
	if spec.Persona.Tone != "" {
		fmt.Fprintf(&b, "Persona tone: %s\n", spec.Persona.Tone)
	}
	if spec.Persona.Backstory != "" {
		fmt.Fprintf(&b, "Persona backstory: %s\n", spec.Persona.Backstory)
	}
	if len(spec.Turns) > 0 {
		b.WriteString("Turns to send, in order:\n")
		for i, turn := range spec.Turns {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, turn)
		}
	}
	if len(spec.SuccessCriteria) > 0 {
		fmt.Fprintf(&b, "Success criteria: %s\n", strings.Join(spec.SuccessCriteria, "; "))
	}
	if len(spec.FailureIndicators) > 0 {
		fmt.Fprintf(&b, "Failure indicators: %s\n", strings.Join(spec.FailureIndicators, "; "))
	}
	if prof != nil && len(prof.Tools) > 0 && spec.Category == CategoryToolUse {
		names := make([]string, len(prof.Tools))
		for i, t := range prof.Tools {
			names[i] = t.Name
		}
		fmt.Fprintf(&b, "Only reference these tool names, never invent others: %s\n", strings.Join(names, ", "))
	}
	return b.String()
}
