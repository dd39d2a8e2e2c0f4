package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicProvider_Generate_LiftsSystemMessage(t *testing.T) {
	var gotBody map[string]any
	var gotAPIKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("x-api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{{"type": "text", "text": "hi there"}},
			"usage":   map[string]any{"input_tokens": 12, "output_tokens": 4},
		})
	}))
	defer server.Close()

	p := NewAnthropicProvider("ant-test", "claude-3-5-sonnet")
	p.baseURL = server.URL

	resp, err := p.Generate(context.Background(), Request{
		Messages: []Message{
			{Role: RoleSystem, Content: "be terse"},
			{Role: RoleUser, Content: "hello"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "hi there", resp.Text)
	assert.Equal(t, 16, resp.TokenUsage.TotalTokens)
	assert.Equal(t, "ant-test", gotAPIKey)
	assert.Equal(t, "be terse", gotBody["system"])

	messages, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1, "system message must not appear in the messages array")
}

func TestAnthropicProvider_Generate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "overloaded"},
		})
	}))
	defer server.Close()

	p := NewAnthropicProvider("ant-test", "claude-3-5-sonnet")
	p.baseURL = server.URL

	_, err := p.Generate(context.Background(), Request{})
	assert.ErrorContains(t, err, "overloaded")
}
