package generator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabrik-dev/fabrik/pkg/gateway"
	"github.com/fabrik-dev/fabrik/pkg/profile"
)

type writeStubProvider struct {
	text string
}

func (p *writeStubProvider) Name() string { return "stub" }

func (p *writeStubProvider) Generate(ctx context.Context, req gateway.Request) (gateway.Response, error) {
	return gateway.Response{Text: p.text}, nil
}

func TestWrite_AppliesPostProcessing(t *testing.T) {
	raw := "```go\npackage scenarios\n\nfunc init() {\n\trc.Assert.Guardrail(ctx, \"x\", \"y\")\n}\n```"
	gw := gateway.New(&writeStubProvider{text: raw})

	got, err := Write(context.Background(), gw, &profile.AgentProfile{}, ScenarioSpec{
		Category: CategoryHappyPath, Name: "greets", Slug: "greets",
	})
	require.NoError(t, err)
	assert.NotContains(t, got, "```")
	assert.NotContains(t, got, "Guardrail")
	assert.Contains(t, got, canonicalImportPath)
}

func TestBuildWriterPrompt_IncludesToolNamesOnlyForToolUseCategory(t *testing.T) {
	prof := &profile.AgentProfile{Tools: []profile.DiscoveredTool{{Name: "lookup_order"}}}

	toolUsePrompt := buildWriterPrompt(prof, ScenarioSpec{Category: CategoryToolUse})
	assert.Contains(t, toolUsePrompt, "lookup_order")

	happyPathPrompt := buildWriterPrompt(prof, ScenarioSpec{Category: CategoryHappyPath})
	assert.NotContains(t, happyPathPrompt, "lookup_order")
}
