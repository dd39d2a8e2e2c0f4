// Package generator implements the Planner and Writer (§4.4): the Planner
// turns an AgentProfile into an ordered TestPlan of scenario specs, and the
// Writer turns each spec into generated Go scenario source.
package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/fabrik-dev/fabrik/pkg/gateway"
	"github.com/fabrik-dev/fabrik/pkg/profile"
	"github.com/fabrik-dev/fabrik/pkg/scenario"
)

// Category names one slice of the test plan.
type Category string

const (
	CategoryHappyPath  Category = "happy-path"
	CategoryEdgeCase   Category = "edge-case"
	CategoryAdversarial Category = "adversarial"
	CategoryGuardrail  Category = "guardrail"
	CategoryMultiTurn  Category = "multi-turn"
	CategoryTone       Category = "tone"
	CategoryToolUse    Category = "tool-use"
)

// unconditionalCategories are generated regardless of profile contents.
var unconditionalCategories = []Category{
	CategoryHappyPath, CategoryEdgeCase, CategoryAdversarial,
	CategoryGuardrail, CategoryMultiTurn, CategoryTone,
}

// defaultCount is opts.count's default when unset (§4.4 "Planner enforces").
const defaultCount = 10

// ScenarioSpec is one planned scenario, the Planner's unit of output and
// the Writer's unit of input.
type ScenarioSpec struct {
	Category          Category         `json:"category"`
	Name              string           `json:"name"`
	Slug              string           `json:"slug"`
	Description       string           `json:"description"`
	Persona           scenario.Persona `json:"persona"`
	Turns             []string         `json:"turns"`
	Intent            string           `json:"intent"`
	SuccessCriteria   []string         `json:"successCriteria"`
	FailureIndicators []string         `json:"failureIndicators"`
}

// TestPlan is the Planner's output: an ordered sequence of scenario specs
// across categories.
type TestPlan struct {
	Scenarios []ScenarioSpec `json:"scenarios"`
}

// PlanOptions bounds what the Planner produces.
type PlanOptions struct {
	// Count caps the total number of scenarios across all categories.
	// Zero means defaultCount.
	Count int
	// Categories, when non-empty, restricts generation to this subset
	// (applied before the Count truncation, per §4.4).
	Categories []Category
}

var scenarioSpecSchema = map[string]any{
	"type": "array",
	"items": map[string]any{
		"type": "object",
		"required": []any{"name", "slug", "description", "persona", "turns", "intent", "successCriteria", "failureIndicators"},
		"properties": map[string]any{
			"name":        map[string]any{"type": "string"},
			"slug":        map[string]any{"type": "string"},
			"description": map[string]any{"type": "string"},
			"persona": map[string]any{
				"type":     "object",
				"required": []any{"role"},
				"properties": map[string]any{
					"role":      map[string]any{"type": "string"},
					"tone":      map[string]any{"type": "string"},
					"backstory": map[string]any{"type": "string"},
				},
			},
			"turns":             map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"intent":            map[string]any{"type": "string"},
			"successCriteria":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"failureIndicators": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
	},
}

// Plan builds an ordered TestPlan from prof, issuing one gateway call per
// generated category. Categories filter is applied before the total-count
// truncation; truncation preserves within-category order (§4.4).
func Plan(ctx context.Context, gw *gateway.Gateway, prof *profile.AgentProfile, opts PlanOptions) (TestPlan, error) {
	count := opts.Count
	if count <= 0 {
		count = defaultCount
	}

	categories := selectCategories(prof, opts.Categories)
	if len(categories) == 0 {
		return TestPlan{}, nil
	}

	perCategory := spreadCount(count, len(categories))

	var all []ScenarioSpec
	for i, cat := range categories {
		specs, err := planCategory(ctx, gw, prof, cat, perCategory[i])
		if err != nil {
			return TestPlan{}, fmt.Errorf("generator: plan category %s: %w", cat, err)
		}
		all = append(all, specs...)
	}

	return TestPlan{Scenarios: truncate(all, count)}, nil
}

// selectCategories returns the unconditional categories plus tool-use when
// the profile lists at least one tool, filtered down to want when want is
// non-empty.
func selectCategories(prof *profile.AgentProfile, want []Category) []Category {
	all := make([]Category, len(unconditionalCategories))
	copy(all, unconditionalCategories)
	if prof != nil && len(prof.Tools) > 0 {
		all = append(all, CategoryToolUse)
	}
	if len(want) == 0 {
		return all
	}
	wantSet := make(map[Category]struct{}, len(want))
	for _, c := range want {
		wantSet[c] = struct{}{}
	}
	var filtered []Category
	for _, c := range all {
		if _, ok := wantSet[c]; ok {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// spreadCount divides total as evenly as possible across n categories, the
// first total%n categories getting one extra, so category order is still
// deterministic.
func spreadCount(total, n int) []int {
	out := make([]int, n)
	base := total / n
	remainder := total % n
	for i := range out {
		out[i] = base
		if i < remainder {
			out[i]++
		}
	}
	return out
}

// truncate caps scenarios at count, preserving order (and therefore
// within-category order, since scenarios are already grouped by category).
func truncate(scenarios []ScenarioSpec, count int) []ScenarioSpec {
	if len(scenarios) <= count {
		return scenarios
	}
	return scenarios[:count]
}

func planCategory(ctx context.Context, gw *gateway.Gateway, prof *profile.AgentProfile, cat Category, quota int) ([]ScenarioSpec, error) {
	if quota <= 0 {
		return nil, nil
	}

	resp, err := gw.Generate(ctx, gateway.Request{
		Messages: []gateway.Message{
			{Role: gateway.RoleSystem, Content: plannerSystemPrompt},
			{Role: gateway.RoleUser, Content: buildCategoryPrompt(prof, cat, quota)},
		},
		OutputSchema: scenarioSpecSchema,
		Temperature:  0.7,
	})
	if err != nil {
		return nil, err
	}
	if resp.Parsed == nil {
		return nil, fmt.Errorf("generator: planner reply for category %s did not parse against schema", cat)
	}

	rawList, ok := resp.Parsed.([]any)
	if !ok {
		return nil, fmt.Errorf("generator: planner reply for category %s was not a JSON array", cat)
	}

	specs := make([]ScenarioSpec, 0, len(rawList))
	for _, raw := range rawList {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		specs = append(specs, decodeScenarioSpec(cat, obj))
	}
	return specs[:min(len(specs), quota)], nil
}

const plannerSystemPrompt = `You are the test planner for a conversational agent evaluation harness. ` +
	`Given a profile of an agent under test and a target category, produce a JSON array of test scenarios ` +
	`for that category only. Each scenario has: name, slug (kebab-case), description, persona ` +
	`{role, tone, backstory}, turns (ordered list of user messages to send), intent, successCriteria ` +
	`(list of strings), failureIndicators (list of strings). Respond with JSON only, no prose, no markdown fence.`

func buildCategoryPrompt(prof *profile.AgentProfile, cat Category, quota int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Category: %s\n", cat)
	fmt.Fprintf(&b, "Number of scenarios to produce: %d\n\n", quota)
	if prof == nil {
		b.WriteString("No agent profile is available; write generic scenarios for a general-purpose conversational agent.\n")
		return b.String()
	}
	if prof.Name != "" {
		fmt.Fprintf(&b, "Agent name: %s\n", prof.Name)
	}
	if prof.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", prof.Description)
	}
	if prof.Domain != "" {
		fmt.Fprintf(&b, "Domain: %s\n", prof.Domain)
	}
	if prof.ExpectedTone != "" {
		fmt.Fprintf(&b, "Expected tone: %s\n", prof.ExpectedTone)
	}
	if len(prof.KnownConstraints) > 0 {
		fmt.Fprintf(&b, "Known constraints: %s\n", strings.Join(prof.KnownConstraints, "; "))
	}
	if cat == CategoryToolUse && len(prof.Tools) > 0 {
		names := make([]string, len(prof.Tools))
		for i, t := range prof.Tools {
			names[i] = t.Name
		}
		fmt.Fprintf(&b, "Only reference these tool names, never invent others: %s\n", strings.Join(names, ", "))
	}
	if prof.SystemPrompt != "" {
		fmt.Fprintf(&b, "System prompt excerpt: %s\n", truncateString(prof.SystemPrompt, 2000))
	}
	return b.String()
}

func truncateString(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func decodeScenarioSpec(cat Category, obj map[string]any) ScenarioSpec {
	spec := ScenarioSpec{
		Category:    cat,
		Name:        stringField(obj, "name"),
		Slug:        stringField(obj, "slug"),
		Description: stringField(obj, "description"),
		Intent:      stringField(obj, "intent"),
	}
	if p, ok := obj["persona"].(map[string]any); ok {
		spec.Persona = scenario.Persona{
			Role:      stringField(p, "role"),
			Tone:      stringField(p, "tone"),
			Backstory: stringField(p, "backstory"),
		}
	}
	spec.Turns = stringSliceField(obj, "turns")
	spec.SuccessCriteria = stringSliceField(obj, "successCriteria")
	spec.FailureIndicators = stringSliceField(obj, "failureIndicators")
	return spec
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

func stringSliceField(obj map[string]any, key string) []string {
	raw, _ := obj[key].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
