package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fabrik-dev/fabrik/pkg/httpclient"
)

// OpenAIAssistantAdapter drives an OpenAI Assistants-API agent: it keeps
// one thread per adapter instance (created lazily on the first send and
// dropped by Reset; SendContext.ConversationID is not used), posts the
// user message, runs the assistant, and polls the run to completion before
// reading back the assistant's message.
type OpenAIAssistantAdapter struct {
	cfg        Config
	httpClient *httpclient.Client
	threadID   string
}

const openAIAssistantsBaseURL = "https://api.openai.com/v1"

// NewOpenAIAssistantAdapter constructs the adapter. cfg.Kind must be
// KindOpenAIAssistant.
func NewOpenAIAssistantAdapter(cfg Config) (*OpenAIAssistantAdapter, error) {
	if cfg.Kind != KindOpenAIAssistant {
		return nil, fmt.Errorf("adapter: NewOpenAIAssistantAdapter requires KindOpenAIAssistant, got %q", cfg.Kind)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &OpenAIAssistantAdapter{
		cfg: cfg,
		httpClient: httpclient.New(
			httpclient.WithHeaderParser(httpclient.ParseOpenAIRateLimitHeaders),
			httpclient.WithProviderName("openai-assistant"),
		),
	}, nil
}

func (a *OpenAIAssistantAdapter) headers() map[string]string {
	return map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + a.cfg.APIKey,
		"OpenAI-Beta":   "assistants=v2",
	}
}

func (a *OpenAIAssistantAdapter) ensureThread(ctx context.Context) (string, error) {
	if a.threadID != "" {
		return a.threadID, nil
	}

	req, err := httpclient.NewRequestWithContext(ctx, http.MethodPost, openAIAssistantsBaseURL+"/threads", []byte(`{}`), a.headers())
	if err != nil {
		return "", fmt.Errorf("adapter: build create-thread request: %w", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var thread struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&thread); err != nil {
		return "", fmt.Errorf("adapter: decode create-thread response: %w", err)
	}

	a.threadID = thread.ID
	return thread.ID, nil
}

// Send implements Adapter against the OpenAI Assistants API. The run is
// created with default polling disabled by this client; this adapter
// performs its own bounded poll loop until the run leaves an active state.
func (a *OpenAIAssistantAdapter) Send(ctx context.Context, message string, sendCtx SendContext) (AgentResponse, error) {
	start := time.Now()

	threadID, err := a.ensureThread(ctx)
	if err != nil {
		return AgentResponse{}, err
	}

	if err := a.postMessage(ctx, threadID, message); err != nil {
		return AgentResponse{}, err
	}

	runID, err := a.createRun(ctx, threadID)
	if err != nil {
		return AgentResponse{}, err
	}

	if err := a.pollRun(ctx, threadID, runID); err != nil {
		return AgentResponse{}, err
	}

	text, err := a.latestAssistantMessage(ctx, threadID)
	if err != nil {
		return AgentResponse{}, err
	}

	return AgentResponse{Text: text, LatencyMs: time.Since(start).Milliseconds()}, nil
}

func (a *OpenAIAssistantAdapter) postMessage(ctx context.Context, threadID, message string) error {
	body, _ := json.Marshal(map[string]string{"role": "user", "content": message})
	req, err := httpclient.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/threads/%s/messages", openAIAssistantsBaseURL, threadID), body, a.headers())
	if err != nil {
		return fmt.Errorf("adapter: build post-message request: %w", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

func (a *OpenAIAssistantAdapter) createRun(ctx context.Context, threadID string) (string, error) {
	body, _ := json.Marshal(map[string]string{"assistant_id": a.cfg.AssistantID})
	req, err := httpclient.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/threads/%s/runs", openAIAssistantsBaseURL, threadID), body, a.headers())
	if err != nil {
		return "", fmt.Errorf("adapter: build create-run request: %w", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var run struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		return "", fmt.Errorf("adapter: decode create-run response: %w", err)
	}
	return run.ID, nil
}

const (
	runPollInterval = 500 * time.Millisecond
	runPollMax      = 120 // 60s at 500ms
)

func (a *OpenAIAssistantAdapter) pollRun(ctx context.Context, threadID, runID string) error {
	for i := 0; i < runPollMax; i++ {
		req, err := httpclient.NewRequestWithContext(ctx, http.MethodGet,
			fmt.Sprintf("%s/threads/%s/runs/%s", openAIAssistantsBaseURL, threadID, runID), nil, a.headers())
		if err != nil {
			return fmt.Errorf("adapter: build poll-run request: %w", err)
		}
		resp, err := a.httpClient.Do(req)
		if err != nil {
			return err
		}

		var run struct {
			Status string `json:"status"`
		}
		decodeErr := json.NewDecoder(resp.Body).Decode(&run)
		resp.Body.Close()
		if decodeErr != nil {
			return fmt.Errorf("adapter: decode poll-run response: %w", decodeErr)
		}

		switch run.Status {
		case "completed":
			return nil
		case "failed", "cancelled", "expired":
			return fmt.Errorf("adapter: assistant run ended with status %q", run.Status)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(runPollInterval):
		}
	}
	return fmt.Errorf("adapter: assistant run did not complete within poll budget")
}

func (a *OpenAIAssistantAdapter) latestAssistantMessage(ctx context.Context, threadID string) (string, error) {
	req, err := httpclient.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/threads/%s/messages?limit=1&order=desc", openAIAssistantsBaseURL, threadID), nil, a.headers())
	if err != nil {
		return "", fmt.Errorf("adapter: build list-messages request: %w", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var listing struct {
		Data []struct {
			Role    string `json:"role"`
			Content []struct {
				Text struct {
					Value string `json:"value"`
				} `json:"text"`
			} `json:"content"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return "", fmt.Errorf("adapter: decode list-messages response: %w", err)
	}
	if len(listing.Data) == 0 || len(listing.Data[0].Content) == 0 {
		return "", fmt.Errorf("adapter: assistant thread has no message to read back")
	}
	return listing.Data[0].Content[0].Text.Value, nil
}

// Reset drops the cached thread, so the next send starts a fresh
// conversation.
func (a *OpenAIAssistantAdapter) Reset(ctx context.Context) error {
	a.threadID = ""
	return nil
}

// Close releases no resources; OpenAI threads expire server-side.
func (a *OpenAIAssistantAdapter) Close() error { return nil }
