package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fabrik-dev/fabrik/pkg/httpclient"
)

// ChatGPTSessionProvider drives a model through the same session endpoint
// the ChatGPT web/desktop client uses, authenticating with the bearer token
// the `codex` CLI caches at ~/.codex/auth.json rather than an API key. It is
// the one Provider with no API-key configuration: its credential lives
// entirely in that session file, and an expired or missing session is
// reported as a ReauthError rather than a retryable transport failure.
type ChatGPTSessionProvider struct {
	model      string
	baseURL    string
	authPath   string
	httpClient *httpclient.Client
}

const chatGPTSessionDefaultBaseURL = "https://chatgpt.com/backend-api"

// NewChatGPTSessionProvider constructs the session-backed Provider. authPath,
// if empty, defaults to ~/.codex/auth.json.
func NewChatGPTSessionProvider(model, authPath string) *ChatGPTSessionProvider {
	if authPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			authPath = filepath.Join(home, ".codex", "auth.json")
		}
	}
	return &ChatGPTSessionProvider{
		model:    model,
		baseURL:  chatGPTSessionDefaultBaseURL,
		authPath: authPath,
		httpClient: httpclient.New(
			httpclient.WithHeaderParser(httpclient.ParseNoRateLimitHeaders),
			httpclient.WithProviderName("chatgpt-session"),
		),
	}
}

func (p *ChatGPTSessionProvider) Name() string { return "chatgpt-session" }

type codexAuthFile struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   *int64 `json:"expires_at"`
}

func (p *ChatGPTSessionProvider) loadSession() (codexAuthFile, error) {
	data, err := os.ReadFile(p.authPath)
	if err != nil {
		return codexAuthFile{}, &ReauthError{Reason: fmt.Sprintf("cannot read %s: %v", p.authPath, err)}
	}

	var auth codexAuthFile
	if err := json.Unmarshal(data, &auth); err != nil {
		return codexAuthFile{}, &ReauthError{Reason: fmt.Sprintf("cannot parse %s: %v", p.authPath, err)}
	}
	if auth.AccessToken == "" {
		return codexAuthFile{}, &ReauthError{Reason: "session file has no access_token"}
	}
	if auth.ExpiresAt != nil && time.Now().Unix() >= *auth.ExpiresAt {
		return codexAuthFile{}, &ReauthError{Reason: "session token expired"}
	}

	return auth, nil
}

type sessionRequestMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type sessionRequest struct {
	Model    string                  `json:"model"`
	Messages []sessionRequestMessage `json:"messages"`
	Stream   bool                    `json:"stream"`
}

// Generate implements Provider over a server-sent-events stream shaped like
// OpenAI's Responses API: response.output_text.delta events carry
// incremental text, response.content_part.delta carries structured content
// deltas, and response.completed ends the stream and carries usage.
func (p *ChatGPTSessionProvider) Generate(ctx context.Context, req Request) (Response, error) {
	auth, err := p.loadSession()
	if err != nil {
		return Response{}, err
	}

	messages := make([]sessionRequestMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, sessionRequestMessage{Role: string(m.Role), Content: m.Content})
	}

	payload, err := json.Marshal(sessionRequest{Model: p.model, Messages: messages, Stream: true})
	if err != nil {
		return Response{}, fmt.Errorf("gateway: marshal chatgpt session request: %w", err)
	}

	httpReq, err := httpclient.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/conversation", payload, map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + auth.AccessToken,
		"Accept":        "text/event-stream",
	})
	if err != nil {
		return Response{}, fmt.Errorf("gateway: build chatgpt session request: %w", err)
	}

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		var transportErr *httpclient.TransportError
		if errors.As(err, &transportErr) && transportErr.StatusCode == http.StatusUnauthorized {
			return Response{}, &ReauthError{Reason: "server rejected session token (401)"}
		}
		return Response{}, err
	}
	defer httpResp.Body.Close()

	return decodeSessionStream(httpResp.Body)
}

func decodeSessionStream(body io.Reader) (Response, error) {
	var text strings.Builder
	usage := TokenUsage{}

	reader := bufio.NewReader(body)
	var currentEvent string
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			trimmed := bytes.TrimSpace(line)
			switch {
			case bytes.HasPrefix(trimmed, []byte("event: ")):
				currentEvent = string(bytes.TrimSpace(trimmed[len("event: "):]))
			case bytes.HasPrefix(trimmed, []byte("data: ")):
				var event map[string]any
				if jsonErr := json.Unmarshal(trimmed[len("data: "):], &event); jsonErr == nil {
					applySessionEvent(currentEvent, event, &text, &usage)
				}
				currentEvent = ""
			}
		}
		if err != nil {
			break
		}
	}

	return Response{Text: text.String(), TokenUsage: usage}, nil
}

func applySessionEvent(eventType string, event map[string]any, text *strings.Builder, usage *TokenUsage) {
	if eventType == "" {
		if t, ok := event["type"].(string); ok {
			eventType = t
		}
	}

	switch eventType {
	case "response.output_text.delta", "response.content_part.delta":
		if delta, ok := event["delta"].(string); ok {
			text.WriteString(delta)
		}
	case "response.completed":
		resp, ok := event["response"].(map[string]any)
		if !ok {
			return
		}
		u, ok := resp["usage"].(map[string]any)
		if !ok {
			return
		}
		usage.PromptTokens = intFromAny(u["input_tokens"])
		usage.CompletionTokens = intFromAny(u["output_tokens"])
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
}

func intFromAny(v any) int {
	f, _ := v.(float64)
	return int(f)
}
