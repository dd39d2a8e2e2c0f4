package gateway

import (
	"encoding/json"
	"strings"
)

// ParseFencedJSON implements §4.1(b): strip an optional leading/trailing
// triple-backtick fence (with an optional "json" language tag) from text
// and parse the remainder as JSON. Returns ok=false on any failure — this
// function never returns an error, matching the gateway's "never raise on
// parse failure" contract.
func ParseFencedJSON(text string) (any, bool) {
	trimmed := stripFence(text)

	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return nil, false
	}
	return v, true
}

func stripFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		// First line after the opening fence may be a language tag
		// ("json", "JSON", or empty) — it is dropped only in those cases;
		// any other first line is kept and left to the JSON parse below.
		firstLine := strings.TrimSpace(s[:idx])
		if firstLine == "" || strings.EqualFold(firstLine, "json") {
			s = s[idx+1:]
		}
	}

	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}

	return strings.TrimSpace(s)
}
