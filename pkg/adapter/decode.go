package adapter

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// textKeyPriority is the first-hit order used to pull display text out of a
// JSON response body whose shape isn't known in advance.
var textKeyPriority = []string{"message", "text", "content", "response"}

// decodeJSONBody implements §4.2(1): extract text by first-hit among the
// priority keys, then the OpenAI-chat-completions shape
// choices[0].message.content, otherwise stringify the whole body.
func decodeJSONBody(body []byte) (AgentResponse, error) {
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		// Not an object at all (e.g. a bare JSON string or array) — the
		// raw body, stringified, is the best we can do.
		return AgentResponse{Text: string(bytes.TrimSpace(body)), Raw: string(body)}, nil
	}

	for _, key := range textKeyPriority {
		if v, ok := parsed[key]; ok {
			if s, ok := v.(string); ok {
				return AgentResponse{Text: s, ToolCalls: extractToolCalls(parsed), Raw: parsed}, nil
			}
		}
	}

	if text, ok := extractChoicesContent(parsed); ok {
		return AgentResponse{Text: text, ToolCalls: extractToolCalls(parsed), Raw: parsed}, nil
	}

	return AgentResponse{Text: string(body), ToolCalls: extractToolCalls(parsed), Raw: parsed}, nil
}

func extractChoicesContent(parsed map[string]any) (string, bool) {
	choices, ok := parsed["choices"].([]any)
	if !ok || len(choices) == 0 {
		return "", false
	}
	choice, ok := choices[0].(map[string]any)
	if !ok {
		return "", false
	}
	message, ok := choice["message"].(map[string]any)
	if !ok {
		return "", false
	}
	content, ok := message["content"].(string)
	return content, ok
}

// extractToolCalls pulls a top-level tool_calls array, tolerating the
// OpenAI function-call shape ({function:{name, arguments: <json string>}})
// and a flat {name, arguments} shape.
func extractToolCalls(parsed map[string]any) []ToolCall {
	raw, ok := parsed["tool_calls"].([]any)
	if !ok {
		return nil
	}

	calls := make([]ToolCall, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}

		if fn, ok := obj["function"].(map[string]any); ok {
			name, _ := fn["name"].(string)
			calls = append(calls, ToolCall{Name: name, Arguments: argsFromAny(fn["arguments"])})
			continue
		}

		name, _ := obj["name"].(string)
		calls = append(calls, ToolCall{Name: name, Arguments: argsFromAny(obj["arguments"])})
	}
	return calls
}

func argsFromAny(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case string:
		var out map[string]any
		if err := json.Unmarshal([]byte(t), &out); err == nil {
			return out
		}
	}
	return nil
}

// errShapedPayload returns true when a decoded SSE/data-stream JSON payload
// looks like an error envelope per §4.2(2): type:"error", or a top-level
// error/errorText field.
func errShapedPayload(payload map[string]any) (string, bool) {
	if t, ok := payload["type"].(string); ok && t == "error" {
		if msg, ok := payload["error"].(string); ok {
			return msg, true
		}
		if msg, ok := payload["message"].(string); ok {
			return msg, true
		}
		return "error event", true
	}
	if msg, ok := payload["errorText"].(string); ok {
		return msg, true
	}
	if errVal, ok := payload["error"]; ok {
		if msg, ok := errVal.(string); ok {
			return msg, true
		}
		if obj, ok := errVal.(map[string]any); ok {
			if msg, ok := obj["message"].(string); ok {
				return msg, true
			}
		}
		return "error event", true
	}
	return "", false
}

// decodeSSEBody implements §4.2(2): accumulate data: payloads, decoding
// OpenAI deltas, Anthropic content parts, and AI-SDK text-delta shapes.
// A payload shaped like an error fails the send immediately.
func decodeSSEBody(r io.Reader) (AgentResponse, error) {
	var text strings.Builder
	var toolCalls []ToolCall

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}

		var payload map[string]any
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			continue
		}

		if msg, isErr := errShapedPayload(payload); isErr {
			return AgentResponse{}, fmt.Errorf("adapter: AUT reported error: %s", msg)
		}

		if delta, ok := extractSSEDelta(payload); ok {
			text.WriteString(delta)
		}
		toolCalls = append(toolCalls, extractToolCalls(payload)...)
	}
	if err := scanner.Err(); err != nil {
		return AgentResponse{}, fmt.Errorf("adapter: reading SSE stream: %w", err)
	}

	return AgentResponse{Text: text.String(), ToolCalls: toolCalls}, nil
}

// extractSSEDelta recognizes the three streaming shapes named in §4.2(2).
func extractSSEDelta(payload map[string]any) (string, bool) {
	// OpenAI chat completions delta: choices[0].delta.content
	if choices, ok := payload["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if delta, ok := choice["delta"].(map[string]any); ok {
				if content, ok := delta["content"].(string); ok {
					return content, true
				}
			}
		}
	}

	// Anthropic content-block delta: delta.text
	if delta, ok := payload["delta"].(map[string]any); ok {
		if text, ok := delta["text"].(string); ok {
			return text, true
		}
	}

	// AI-SDK text-delta event: {type:"text-delta", textDelta:"..."} or
	// {type:"text-delta", delta:"..."}
	if t, ok := payload["type"].(string); ok && t == "text-delta" {
		if td, ok := payload["textDelta"].(string); ok {
			return td, true
		}
		if td, ok := payload["delta"].(string); ok {
			return td, true
		}
	}

	return "", false
}

// decodeDataStreamBody implements §4.2(3): lines of the form
// "<digit>:<payload>"; prefix 0 is a JSON-encoded text chunk, every other
// prefix is ignored.
func decodeDataStreamBody(r io.Reader) (AgentResponse, error) {
	var text strings.Builder

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		idx := strings.IndexByte(line, ':')
		if idx <= 0 {
			continue
		}

		prefix := line[:idx]
		if _, err := strconv.Atoi(prefix); err != nil {
			continue
		}
		if prefix != "0" {
			continue
		}

		var chunk string
		if err := json.Unmarshal([]byte(line[idx+1:]), &chunk); err != nil {
			continue
		}
		text.WriteString(chunk)
	}
	if err := scanner.Err(); err != nil {
		return AgentResponse{}, fmt.Errorf("adapter: reading data stream: %w", err)
	}

	return AgentResponse{Text: text.String()}, nil
}
