package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fabrik-dev/fabrik/pkg/httpclient"
)

// OpenAIProvider talks to an OpenAI-compatible chat completions endpoint
// (OpenAI itself, or any Azure/local/OpenRouter deployment that mirrors the
// same request/response shape).
type OpenAIProvider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *httpclient.Client
}

const openAIDefaultBaseURL = "https://api.openai.com/v1"

// NewOpenAIProvider constructs a Provider backed by the chat completions API.
// baseURL, if empty, defaults to OpenAI's own host.
func NewOpenAIProvider(apiKey, model, baseURL string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = openAIDefaultBaseURL
	}
	return &OpenAIProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		httpClient: httpclient.New(
			httpclient.WithHeaderParser(httpclient.ParseOpenAIRateLimitHeaders),
			httpclient.WithProviderName("openai"),
		),
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model          string               `json:"model"`
	Messages       []openAIChatMessage  `json:"messages"`
	Temperature    float64              `json:"temperature,omitempty"`
	MaxTokens      int                  `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIChatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate implements Provider. When req.OutputSchema is set, it asks the
// API for response_format: json_object (the widest-compatible structured
// mode across OpenAI-compatible backends) — the gateway's own fenced-JSON
// fallback and schema validation still run on the result, since
// json_object guarantees valid JSON but not the requested shape.
func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (Response, error) {
	messages := make([]openAIChatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openAIChatMessage{Role: string(m.Role), Content: m.Content})
	}

	body := openAIChatRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.OutputSchema != nil {
		body.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("gateway: marshal openai request: %w", err)
	}

	httpReq, err := httpclient.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", payload, map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + p.apiKey,
	})
	if err != nil {
		return Response{}, fmt.Errorf("gateway: build openai request: %w", err)
	}

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, err
	}
	defer httpResp.Body.Close()

	var parsed openAIChatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&parsed); err != nil {
		return Response{}, fmt.Errorf("gateway: decode openai response: %w", err)
	}
	if parsed.Error != nil {
		return Response{}, fmt.Errorf("gateway: openai error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return Response{}, fmt.Errorf("gateway: openai response had no choices")
	}

	return Response{
		Text: parsed.Choices[0].Message.Content,
		TokenUsage: TokenUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}, nil
}
