package assert

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/fabrik-dev/fabrik/pkg/gateway"
	"github.com/fabrik-dev/fabrik/pkg/scenario"
)

// Contains records whether actual contains substr.
func (c *Collector) Contains(actual, substr string) {
	c.record(recoverLocal("contains", func() scenario.AssertionResult {
		ok := strings.Contains(actual, substr)
		return scenario.AssertionResult{
			Type: "contains", Passed: ok, Expected: substr, Actual: actual,
		}
	}))
}

// NotContains records whether actual does not contain substr.
func (c *Collector) NotContains(actual, substr string) {
	c.record(recoverLocal("notContains", func() scenario.AssertionResult {
		ok := !strings.Contains(actual, substr)
		return scenario.AssertionResult{
			Type: "notContains", Passed: ok, Expected: substr, Actual: actual,
		}
	}))
}

// Matches records whether actual matches the regular expression pattern.
// A malformed pattern is recorded as a failed assertion, not a panic.
func (c *Collector) Matches(actual, pattern string) {
	c.record(recoverLocal("matches", func() scenario.AssertionResult {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return scenario.AssertionResult{
				Type: "matches", Passed: false, Expected: pattern, Actual: actual,
				Error: fmt.Sprintf("invalid pattern: %v", err),
			}
		}
		ok := re.MatchString(actual)
		return scenario.AssertionResult{
			Type: "matches", Passed: ok, Expected: pattern, Actual: actual,
		}
	}))
}

// JSONSchema records whether value — a decoded JSON value, or a raw JSON
// string the assertion decodes itself — validates against schema.
func (c *Collector) JSONSchema(value any, schema map[string]any) {
	c.record(recoverLocal("jsonSchema", func() scenario.AssertionResult {
		decoded := value
		if s, ok := value.(string); ok {
			var v any
			if err := json.Unmarshal([]byte(s), &v); err != nil {
				return scenario.AssertionResult{
					Type: "jsonSchema", Passed: false, Actual: value,
					Error: fmt.Sprintf("value is not valid JSON: %v", err),
				}
			}
			decoded = v
		}
		if err := gateway.ValidateAgainstSchema(decoded, schema); err != nil {
			return scenario.AssertionResult{
				Type: "jsonSchema", Passed: false, Expected: schema, Actual: value,
				Error: err.Error(),
			}
		}
		return scenario.AssertionResult{Type: "jsonSchema", Passed: true, Expected: schema, Actual: value}
	}))
}

// Latency records whether actualMs is within maxMs.
func (c *Collector) Latency(actualMs int64, maxMs int64) {
	c.record(recoverLocal("latency", func() scenario.AssertionResult {
		ok := actualMs <= maxMs
		return scenario.AssertionResult{
			Type: "latency", Passed: ok, Expected: maxMs, Actual: actualMs,
		}
	}))
}

// TokenUsage records whether usage.TotalTokens is within maxTotal. A nil
// usage (the AUT never reported token counts) fails the assertion rather
// than silently passing, since the author explicitly asked for a bound.
func (c *Collector) TokenUsage(usage *scenario.TokenUsage, maxTotal int) {
	c.record(recoverLocal("tokenUsage", func() scenario.AssertionResult {
		if usage == nil {
			return scenario.AssertionResult{
				Type: "tokenUsage", Passed: false, Expected: maxTotal,
				Error: "agent response did not report token usage",
			}
		}
		ok := usage.TotalTokens <= maxTotal
		return scenario.AssertionResult{
			Type: "tokenUsage", Passed: ok, Expected: maxTotal, Actual: usage.TotalTokens,
		}
	}))
}

// ToolCalled records whether calls includes a tool named name.
func (c *Collector) ToolCalled(calls []scenario.ToolCall, name string) {
	c.record(recoverLocal("toolCalled", func() scenario.AssertionResult {
		ok := findToolCall(calls, name)
		return scenario.AssertionResult{Type: "toolCalled", Passed: ok, Expected: name, Actual: toolNamesOrSentinel(calls)}
	}))
}

// ToolNotCalled records whether calls excludes a tool named name.
func (c *Collector) ToolNotCalled(calls []scenario.ToolCall, name string) {
	c.record(recoverLocal("toolNotCalled", func() scenario.AssertionResult {
		ok := !findToolCall(calls, name)
		return scenario.AssertionResult{Type: "toolNotCalled", Passed: ok, Expected: name, Actual: toolNamesOrSentinel(calls)}
	}))
}

func findToolCall(calls []scenario.ToolCall, name string) bool {
	for _, c := range calls {
		if c.Name == name {
			return true
		}
	}
	return false
}

// noToolsCalledSentinel is the literal the spec's transcript rendering
// expects when an assertion's Actual reports an empty tool-call list.
const noToolsCalledSentinel = "(no tools called)"

// toolNamesOrSentinel returns the sentinel string for an empty call list,
// since an empty []string renders as "[]" rather than a readable message.
func toolNamesOrSentinel(calls []scenario.ToolCall) any {
	if len(calls) == 0 {
		return noToolsCalledSentinel
	}
	names := make([]string, len(calls))
	for i, c := range calls {
		names[i] = c.Name
	}
	return names
}
