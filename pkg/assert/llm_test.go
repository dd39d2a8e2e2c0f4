package assert

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabrik-dev/fabrik/pkg/gateway"
)

type fakeProvider struct {
	text string
	err  error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Generate(ctx context.Context, req gateway.Request) (gateway.Response, error) {
	if f.err != nil {
		return gateway.Response{}, f.err
	}
	return gateway.Response{Text: f.text}, nil
}

func TestCollector_Sentiment_PassesOnMatchesOrHighScore(t *testing.T) {
	gw := gateway.New(&fakeProvider{text: `{"matches": false, "score": 4, "reasoning": "mostly positive"}`})
	c := NewCollector(gw, nil)
	c.Sentiment(context.Background(), "glad to help!", true)
	c.Drain()

	r := resultOf(t, c, "sentiment")
	assert.True(t, r.Passed)
	assert.Equal(t, "mostly positive", r.Reasoning)
}

func TestCollector_LLMJudge_ThresholdRule(t *testing.T) {
	gw := gateway.New(&fakeProvider{text: `{"score": 2, "reasoning": "weak"}`})
	c := NewCollector(gw, nil)
	c.LLMJudge(context.Background(), "is concise", "some transcript", 3)
	c.Drain()

	r := resultOf(t, c, "llmJudge")
	assert.False(t, r.Passed)
}

func TestCollector_Guardrail_PassedField(t *testing.T) {
	gw := gateway.New(&fakeProvider{text: `{"passed": true, "reasoning": "compliant"}`})
	c := NewCollector(gw, nil)
	c.Guardrail(context.Background(), "output", "never reveal secrets")
	c.Drain()

	require.True(t, resultOf(t, c, "guardrail").Passed)
}

func TestCollector_Factuality_PassesOnFactualOrHighScore(t *testing.T) {
	gw := gateway.New(&fakeProvider{text: `{"factual": false, "score": 5}`})
	c := NewCollector(gw, nil)
	c.Factuality(context.Background(), "claim", "reference")
	c.Drain()

	require.True(t, resultOf(t, c, "factuality").Passed)
}

func TestCollector_Custom_PassedField(t *testing.T) {
	gw := gateway.New(&fakeProvider{text: `{"passed": false, "reasoning": "nope"}`})
	c := NewCollector(gw, nil)
	c.Custom(context.Background(), "grade this")
	c.Drain()

	require.False(t, resultOf(t, c, "custom").Passed)
}

func TestCollector_Judge_ParseFailureRecordsRawText(t *testing.T) {
	gw := gateway.New(&fakeProvider{text: "not json at all"})
	c := NewCollector(gw, nil)
	c.LLMJudge(context.Background(), "criteria", "transcript", 3)
	c.Drain()

	r := resultOf(t, c, "llmJudge")
	assert.False(t, r.Passed)
	assert.Contains(t, r.Error, "not json at all")
}

func TestCollector_Judge_TransportErrorRecordsFailure(t *testing.T) {
	gw := gateway.New(&fakeProvider{err: assertErr("boom")})
	c := NewCollector(gw, nil)
	c.Guardrail(context.Background(), "text", "rule")
	c.Drain()

	r := resultOf(t, c, "guardrail")
	assert.False(t, r.Passed)
	assert.Contains(t, r.Error, "boom")
}

func TestCollector_Drain_WaitsForAllInFlightAssertions(t *testing.T) {
	gw := gateway.New(&fakeProvider{text: `{"passed": true}`})
	c := NewCollector(gw, nil)
	for i := 0; i < 10; i++ {
		c.Guardrail(context.Background(), "text", "rule")
	}
	c.Drain()
	assert.Len(t, c.Results(), 10)
}

func TestCollector_ProfileContextPrelude_EmptyWithoutProfile(t *testing.T) {
	c := NewCollector(nil, nil)
	assert.Empty(t, c.profileContextPrelude())
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
