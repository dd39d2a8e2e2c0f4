package httpclient

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ParseAnthropicRateLimitHeaders extracts rate-limit info from Anthropic's
// messages API response headers.
func ParseAnthropicRateLimitHeaders(headers http.Header) RateLimitInfo {
	info := RateLimitInfo{}

	if v := headers.Get("retry-after"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil {
			info.RetryAfter = time.Duration(seconds) * time.Second
		}
	}

	for _, h := range []string{
		"anthropic-ratelimit-input-tokens-reset",
		"anthropic-ratelimit-output-tokens-reset",
		"anthropic-ratelimit-requests-reset",
	} {
		if v := headers.Get(h); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				info.ResetTime = t.Unix()
				break
			}
		}
	}

	if v := headers.Get("anthropic-ratelimit-requests-remaining"); v != "" {
		_, _ = fmt.Sscanf(v, "%d", &info.RequestsRemaining)
	}
	if v := headers.Get("anthropic-ratelimit-input-tokens-remaining"); v != "" {
		_, _ = fmt.Sscanf(v, "%d", &info.InputTokensRemaining)
	}
	if v := headers.Get("anthropic-ratelimit-output-tokens-remaining"); v != "" {
		_, _ = fmt.Sscanf(v, "%d", &info.OutputTokensRemaining)
	}

	return info
}

// ParseOpenAIRateLimitHeaders extracts rate-limit info from OpenAI's
// chat-completions response headers.
func ParseOpenAIRateLimitHeaders(headers http.Header) RateLimitInfo {
	info := RateLimitInfo{}

	if v := headers.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil {
			info.RetryAfter = time.Duration(seconds) * time.Second
		}
	}

	for _, h := range []string{"x-ratelimit-reset-tokens", "x-ratelimit-reset-requests"} {
		if v := headers.Get(h); v != "" {
			if reset, err := strconv.ParseInt(v, 10, 64); err == nil {
				info.ResetTime = reset
				break
			}
		}
	}

	if v := headers.Get("x-ratelimit-remaining-requests"); v != "" {
		_, _ = fmt.Sscanf(v, "%d", &info.RequestsRemaining)
	}
	if v := headers.Get("x-ratelimit-remaining-tokens"); v != "" {
		_, _ = fmt.Sscanf(v, "%d", &info.TokensRemaining)
	}

	return info
}

// ParseNoRateLimitHeaders is used for transports (AUT HTTP endpoints, the
// ChatGPT session transport) with no documented rate-limit header contract.
func ParseNoRateLimitHeaders(headers http.Header) RateLimitInfo {
	info := RateLimitInfo{}
	if v := headers.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil {
			info.RetryAfter = time.Duration(seconds) * time.Second
		}
	}
	return info
}
