// Package gateway is the LLM gateway: a single Generate operation used by
// every other subsystem (discovery ranking/extraction/synthesis, the
// generator's planner/writer, and the assertion kernel's LLM-backed
// checks) to talk to a structured-generation-capable model.
package gateway

import "context"

// Role identifies the speaker of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation sent to Generate.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TokenUsage reports how many tokens a Generate call consumed.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Request is the input to Generate.
type Request struct {
	Messages []Message `json:"messages"`
	// OutputSchema, when set, triggers structured decoding: native
	// provider support first, fenced-JSON-strip-and-parse as fallback.
	// It is a JSON Schema describing the desired shape of Parsed.
	OutputSchema map[string]any `json:"outputSchema,omitempty"`
	Temperature  float64        `json:"temperature,omitempty"`
	MaxTokens    int            `json:"maxTokens,omitempty"`
}

// Response is the result of a Generate call.
type Response struct {
	// Text is always populated: the raw model output.
	Text string `json:"text"`
	// Parsed is set only when OutputSchema was provided AND decoding +
	// validation both succeeded. A caller must treat a nil Parsed as "try
	// again or fall back" — it is never an error by itself (§4.1).
	Parsed     any        `json:"parsed,omitempty"`
	TokenUsage TokenUsage `json:"tokenUsage"`
}

// Provider is one LLM backend the gateway can call. Implementations live
// in this package (OpenAI-compatible chat-completions, Anthropic messages,
// ChatGPT session) — see §6 of the evaluation pipeline specification.
type Provider interface {
	Generate(ctx context.Context, req Request) (Response, error)
	Name() string
}

// Gateway wraps a Provider with the structured-decoding contract from §4.1:
// native structured output when the provider supports it, otherwise a
// fenced-JSON-strip-and-validate fallback. It is the type every other
// subsystem depends on, not a concrete Provider.
type Gateway struct {
	provider Provider
}

// New wraps provider in a Gateway.
func New(provider Provider) *Gateway {
	return &Gateway{provider: provider}
}

// Name returns the underlying provider's name, for logging/tracing.
func (g *Gateway) Name() string { return g.provider.Name() }

// Generate implements the single gateway operation described in §4.1.
// Transport failures return a typed error (httpclient.TransportError or
// gateway.ReauthError, propagated from the provider). A parse/validation
// failure when OutputSchema was requested does NOT return an error — it
// simply leaves Response.Parsed nil so the caller can retry or fall back.
func (g *Gateway) Generate(ctx context.Context, req Request) (Response, error) {
	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return Response{}, err
	}

	if req.OutputSchema == nil {
		return resp, nil
	}

	if resp.Parsed != nil {
		// Provider already did native structured decoding; still run it
		// through schema validation for consistency with the fallback path.
		if err := ValidateAgainstSchema(resp.Parsed, req.OutputSchema); err != nil {
			resp.Parsed = nil
		}
		return resp, nil
	}

	parsed, ok := ParseFencedJSON(resp.Text)
	if !ok {
		return resp, nil
	}
	if err := ValidateAgainstSchema(parsed, req.OutputSchema); err != nil {
		return resp, nil
	}
	resp.Parsed = parsed
	return resp, nil
}
