package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fabrik-dev/fabrik/pkg/httpclient"
)

// HTTPAdapter is the mandatory core adapter: it POSTs the message (and,
// when requested, the replayed turn history) to cfg.URL and normalizes
// whatever shape comes back — plain JSON, SSE, or an AI-SDK data stream.
type HTTPAdapter struct {
	cfg        Config
	httpClient *httpclient.Client
}

// NewHTTPAdapter constructs an HTTPAdapter. cfg.Kind must be KindHTTP.
func NewHTTPAdapter(cfg Config) (*HTTPAdapter, error) {
	if cfg.Kind != KindHTTP {
		return nil, fmt.Errorf("adapter: NewHTTPAdapter requires KindHTTP, got %q", cfg.Kind)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.RequestFormat == "" {
		cfg.RequestFormat = RequestFormatMessages
	}

	return &HTTPAdapter{
		cfg: cfg,
		httpClient: httpclient.New(
			httpclient.WithHeaderParser(httpclient.ParseNoRateLimitHeaders),
			httpclient.WithProviderName("aut-http"),
		),
	}, nil
}

type messagesRequestBody struct {
	Messages []Turn `json:"messages"`
}

type legacyRequestBody struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

func (a *HTTPAdapter) buildBody(message string, sendCtx SendContext) ([]byte, error) {
	switch a.cfg.RequestFormat {
	case RequestFormatLegacy:
		convID := sendCtx.ConversationID
		if convID == "" {
			convID = uuid.NewString()
		}
		return json.Marshal(legacyRequestBody{Message: message, ConversationID: convID})
	default:
		turns := append([]Turn{}, sendCtx.Turns...)
		turns = append(turns, Turn{Role: "user", Content: message})
		return json.Marshal(messagesRequestBody{Messages: turns})
	}
}

// Send implements Adapter. latencyMs is measured wall-clock between
// dispatch and the completed read of the response body, per §4.2.
func (a *HTTPAdapter) Send(ctx context.Context, message string, sendCtx SendContext) (AgentResponse, error) {
	payload, err := a.buildBody(message, sendCtx)
	if err != nil {
		return AgentResponse{}, fmt.Errorf("adapter: encode request body: %w", err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	for k, v := range a.cfg.Headers {
		headers[k] = v
	}
	if a.cfg.Streaming {
		headers["Accept"] = "text/event-stream"
	}

	req, err := httpclient.NewRequestWithContext(ctx, http.MethodPost, a.cfg.URL, payload, headers)
	if err != nil {
		return AgentResponse{}, fmt.Errorf("adapter: build request: %w", err)
	}

	start := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return AgentResponse{}, err
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")

	var result AgentResponse
	switch {
	case strings.Contains(contentType, "text/event-stream"):
		result, err = decodeSSEBody(resp.Body)
	case isDataStreamContentType(contentType):
		result, err = decodeDataStreamBody(resp.Body)
	default:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return AgentResponse{}, fmt.Errorf("adapter: read response body: %w", readErr)
		}
		result, err = decodeJSONBody(body)
	}

	result.LatencyMs = time.Since(start).Milliseconds()
	return result, err
}

func isDataStreamContentType(contentType string) bool {
	return strings.Contains(contentType, "x-vercel-ai-data-stream") ||
		strings.Contains(contentType, "text/plain") && strings.Contains(contentType, "ai-sdk")
}

// Reset is a no-op: HTTPAdapter is inherently per-send stateless, as the
// spec permits for HTTP transports.
func (a *HTTPAdapter) Reset(ctx context.Context) error { return nil }

// Close releases no resources for HTTPAdapter.
func (a *HTTPAdapter) Close() error { return nil }
