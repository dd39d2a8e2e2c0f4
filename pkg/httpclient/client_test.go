package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	c := New()
	if c.maxRetries != 5 {
		t.Errorf("maxRetries = %d, want 5", c.maxRetries)
	}
	if c.baseDelay != 2*time.Second {
		t.Errorf("baseDelay = %v, want 2s", c.baseDelay)
	}
	if c.inner.Timeout != 120*time.Second {
		t.Errorf("timeout = %v, want 120s", c.inner.Timeout)
	}
	if c.strategyFunc == nil {
		t.Error("strategyFunc should default to DefaultStrategy")
	}
}

func TestNew_Options(t *testing.T) {
	tests := []struct {
		name     string
		options  []Option
		validate func(t *testing.T, c *Client)
	}{
		{
			name:    "max retries",
			options: []Option{WithMaxRetries(3)},
			validate: func(t *testing.T, c *Client) {
				if c.maxRetries != 3 {
					t.Errorf("maxRetries = %d, want 3", c.maxRetries)
				}
			},
		},
		{
			name:    "base delay",
			options: []Option{WithBaseDelay(5 * time.Second)},
			validate: func(t *testing.T, c *Client) {
				if c.baseDelay != 5*time.Second {
					t.Errorf("baseDelay = %v, want 5s", c.baseDelay)
				}
			},
		},
		{
			name:    "provider name",
			options: []Option{WithProviderName("openai")},
			validate: func(t *testing.T, c *Client) {
				if c.provider != "openai" {
					t.Errorf("provider = %q, want openai", c.provider)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.options...)
			tt.validate(t, c)
		})
	}
}

func TestDo_SuccessNoRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(WithMaxRetries(3))
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	resp.Body.Close()
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_RetriesThenFails(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(WithMaxRetries(2), WithBaseDelay(time.Millisecond), WithProviderName("aut"))
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	_, err := c.Do(req)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	var transportErr *TransportError
	if !asTransportError(err, &transportErr) {
		t.Fatalf("expected *TransportError, got %T: %v", err, err)
	}
	if transportErr.Provider != "aut" {
		t.Errorf("Provider = %q, want aut", transportErr.Provider)
	}
	if calls != 3 { // initial + 2 retries
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_NonRetryableStatusReturnsImmediately(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(WithMaxRetries(5))
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	_, err := c.Do(req)
	if err == nil {
		t.Fatal("expected error for 400")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 400)", calls)
	}
}

func asTransportError(err error, target **TransportError) bool {
	te, ok := err.(*TransportError)
	if !ok {
		return false
	}
	*target = te
	return true
}

func TestParseOpenAIRateLimitHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "7")
	h.Set("x-ratelimit-remaining-requests", "42")

	info := ParseOpenAIRateLimitHeaders(h)
	if info.RetryAfter != 7*time.Second {
		t.Errorf("RetryAfter = %v, want 7s", info.RetryAfter)
	}
	if info.RequestsRemaining != 42 {
		t.Errorf("RequestsRemaining = %d, want 42", info.RequestsRemaining)
	}
}
