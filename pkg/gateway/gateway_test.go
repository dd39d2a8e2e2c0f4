package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name     string
	response Response
	err      error
	lastReq  Request
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(ctx context.Context, req Request) (Response, error) {
	f.lastReq = req
	return f.response, f.err
}

var testSchema = map[string]any{
	"type":     "object",
	"required": []any{"verdict"},
	"properties": map[string]any{
		"verdict": map[string]any{"type": "string"},
	},
}

func TestGateway_Generate_NoSchemaPassesThrough(t *testing.T) {
	fp := &fakeProvider{response: Response{Text: "hello"}}
	g := New(fp)

	resp, err := g.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text)
	assert.Nil(t, resp.Parsed)
}

func TestGateway_Generate_FencedFallbackParsesAndValidates(t *testing.T) {
	fp := &fakeProvider{response: Response{Text: "```json\n{\"verdict\": \"pass\"}\n```"}}
	g := New(fp)

	resp, err := g.Generate(context.Background(), Request{OutputSchema: testSchema})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"verdict": "pass"}, resp.Parsed)
}

func TestGateway_Generate_InvalidJSONLeavesParsedNil(t *testing.T) {
	fp := &fakeProvider{response: Response{Text: "not json at all"}}
	g := New(fp)

	resp, err := g.Generate(context.Background(), Request{OutputSchema: testSchema})
	require.NoError(t, err)
	assert.Nil(t, resp.Parsed)
}

func TestGateway_Generate_SchemaMismatchLeavesParsedNil(t *testing.T) {
	fp := &fakeProvider{response: Response{Text: `{"wrong_field": 1}`}}
	g := New(fp)

	resp, err := g.Generate(context.Background(), Request{OutputSchema: testSchema})
	require.NoError(t, err)
	assert.Nil(t, resp.Parsed)
}

func TestGateway_Generate_NativeParsedRevalidated(t *testing.T) {
	fp := &fakeProvider{response: Response{
		Text:   `{"verdict": "pass"}`,
		Parsed: map[string]any{"bogus": true},
	}}
	g := New(fp)

	resp, err := g.Generate(context.Background(), Request{OutputSchema: testSchema})
	require.NoError(t, err)
	assert.Nil(t, resp.Parsed, "native Parsed failing schema validation must be discarded, not trusted blindly")
}

func TestGateway_Generate_TransportErrorPropagates(t *testing.T) {
	fp := &fakeProvider{err: assertErr("boom")}
	g := New(fp)

	_, err := g.Generate(context.Background(), Request{})
	assert.EqualError(t, err, "boom")
}

func TestGateway_Name(t *testing.T) {
	g := New(&fakeProvider{name: "fake"})
	assert.Equal(t, "fake", g.Name())
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
