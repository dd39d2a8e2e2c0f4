package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/fabrik-dev/fabrik/pkg/httpclient"
)

// AnthropicProvider talks to the Anthropic messages API. Anthropic splits
// the system prompt out of the message list, so the first RoleSystem
// message in a Request (if any) is lifted into the top-level "system"
// field; any further system messages are folded into it.
type AnthropicProvider struct {
	apiKey     string
	model      string
	baseURL    string
	maxTokens  int
	httpClient *httpclient.Client
}

const (
	anthropicDefaultBaseURL  = "https://api.anthropic.com"
	anthropicAPIVersion      = "2023-06-01"
	anthropicDefaultMaxTokens = 4096
)

// NewAnthropicProvider constructs a Provider backed by Claude's messages API.
func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	return &AnthropicProvider{
		apiKey:    apiKey,
		model:     model,
		baseURL:   anthropicDefaultBaseURL,
		maxTokens: anthropicDefaultMaxTokens,
		httpClient: httpclient.New(
			httpclient.WithHeaderParser(httpclient.ParseAnthropicRateLimitHeaders),
			httpclient.WithProviderName("anthropic"),
		),
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicResponse struct {
	Content []anthropicContentBlock `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate implements Provider. Anthropic has no native JSON-mode toggle, so
// structured output always goes through the gateway's fenced-JSON fallback:
// the system prompt, when OutputSchema is set, should already instruct the
// model to answer inside a ```json fence (the caller's responsibility, not
// this provider's).
func (p *AnthropicProvider) Generate(ctx context.Context, req Request) (Response, error) {
	var system strings.Builder
	messages := make([]anthropicMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			if system.Len() > 0 {
				system.WriteString("\n\n")
			}
			system.WriteString(m.Content)
			continue
		}
		messages = append(messages, anthropicMessage{Role: string(m.Role), Content: m.Content})
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.maxTokens
	}

	body := anthropicRequest{
		Model:       p.model,
		Messages:    messages,
		System:      system.String(),
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("gateway: marshal anthropic request: %w", err)
	}

	httpReq, err := httpclient.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", payload, map[string]string{
		"Content-Type":      "application/json",
		"x-api-key":         p.apiKey,
		"anthropic-version": anthropicAPIVersion,
	})
	if err != nil {
		return Response{}, fmt.Errorf("gateway: build anthropic request: %w", err)
	}

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, err
	}
	defer httpResp.Body.Close()

	var parsed anthropicResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&parsed); err != nil {
		return Response{}, fmt.Errorf("gateway: decode anthropic response: %w", err)
	}
	if parsed.Error != nil {
		return Response{}, fmt.Errorf("gateway: anthropic error: %s", parsed.Error.Message)
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return Response{
		Text: text.String(),
		TokenUsage: TokenUsage{
			PromptTokens:     parsed.Usage.InputTokens,
			CompletionTokens: parsed.Usage.OutputTokens,
			TotalTokens:      parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		},
	}, nil
}
