package scenario

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"
)

// yamlDoc is the on-disk shape a .yaml/.yml scenario file compiles from: a
// declarative alternative to a scenario/persona code file for authors who
// never need the full procedural API. One file may declare one scenario.
type yamlDoc struct {
	Name    string          `yaml:"name"`
	Tags    []string        `yaml:"tags"`
	Persona yamlPersona     `yaml:"persona"`
	Turns   []yamlTurn      `yaml:"turns"`
	Asserts []yamlAssertion `yaml:"assertions"`
}

type yamlPersona struct {
	Role string `yaml:"role"`
	Tone string `yaml:"tone"`
}

type yamlTurn struct {
	Says string `yaml:"says"`
	// assertions declared inline under a turn run immediately after that
	// turn's send; assertions declared at the document's top level run
	// once after all turns complete.
	Asserts []yamlAssertion `yaml:"assertions"`
}

// yamlAssertion is a tagged record: exactly one of its non-zero fields
// names the assertion kind, the rest are that kind's parameters. This
// mirrors how the local/LLM-backed assertion kernel (§4.6) is invoked
// procedurally, just spelled as data instead of calls.
type yamlAssertion struct {
	Type       string         `yaml:"type"`
	Value      string         `yaml:"value,omitempty"`
	Schema     map[string]any `yaml:"schema,omitempty"`
	MaxMs      int64          `yaml:"maxMs,omitempty"`
	MaxTokens  int            `yaml:"maxTokens,omitempty"`
	Tool       string         `yaml:"tool,omitempty"`
	Criteria   string         `yaml:"criteria,omitempty"`
	Threshold  float64        `yaml:"threshold,omitempty"`
	Reference  string         `yaml:"reference,omitempty"`
	WantPositive bool         `yaml:"wantPositive,omitempty"`
	Prompt     string         `yaml:"prompt,omitempty"`
}

// CompileYAML decodes a declarative scenario document into an in-memory
// Scenario whose Fn drives the turns and assertions it declares.
func CompileYAML(data []byte) (Scenario, error) {
	var doc yamlDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Scenario{}, fmt.Errorf("scenario: decode yaml: %w", err)
	}
	if doc.Name == "" {
		return Scenario{}, fmt.Errorf("scenario: yaml document missing required field %q", "name")
	}

	return Scenario{
		Name: doc.Name,
		Tags: doc.Tags,
		Fn: func(ctx context.Context, rc *RunContext) error {
			lastResponse := AgentResponse{}
			for _, turn := range doc.Turns {
				resp, err := rc.Agent.Send(ctx, turn.Says)
				if err != nil {
					return fmt.Errorf("scenario: send %q: %w", truncateForError(turn.Says), err)
				}
				lastResponse = resp
				for _, a := range turn.Asserts {
					runYAMLAssertion(ctx, rc, a, lastResponse)
				}
			}
			for _, a := range doc.Asserts {
				runYAMLAssertion(ctx, rc, a, lastResponse)
			}
			return nil
		},
	}, nil
}

func truncateForError(s string) string {
	const max = 80
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// runYAMLAssertion dispatches one declarative assertion record to the
// bound Asserter, matching the method names the procedural API exposes.
func runYAMLAssertion(ctx context.Context, rc *RunContext, a yamlAssertion, last AgentResponse) {
	switch a.Type {
	case "contains":
		rc.Assert.Contains(last.Text, a.Value)
	case "notContains":
		rc.Assert.NotContains(last.Text, a.Value)
	case "matches":
		rc.Assert.Matches(last.Text, a.Value)
	case "jsonSchema":
		rc.Assert.JSONSchema(last.Text, a.Schema)
	case "latency":
		rc.Assert.Latency(last.LatencyMs, a.MaxMs)
	case "tokenUsage":
		var usage *TokenUsage
		if last.TokenUsage != nil {
			usage = last.TokenUsage
		}
		rc.Assert.TokenUsage(usage, a.MaxTokens)
	case "toolCalled":
		rc.Assert.ToolCalled(last.ToolCalls, a.Tool)
	case "toolNotCalled":
		rc.Assert.ToolNotCalled(last.ToolCalls, a.Tool)
	case "sentiment":
		rc.Assert.Sentiment(ctx, last.Text, a.WantPositive)
	case "llmJudge":
		rc.Assert.LLMJudge(ctx, a.Criteria, last.Text, a.Threshold)
	case "guardrail":
		rc.Assert.Guardrail(ctx, last.Text, a.Value)
	case "factuality":
		rc.Assert.Factuality(ctx, last.Text, a.Reference)
	case "custom":
		rc.Assert.Custom(ctx, a.Prompt)
	}
}
