package adapter

import "fmt"

// Kind identifies which tagged variant an AdapterConfig holds.
type Kind string

const (
	KindHTTP            Kind = "http"
	KindSubprocess       Kind = "subprocess"
	KindOpenAIAssistant Kind = "openai-assistant"
	KindCustom          Kind = "custom"
)

// RequestFormat selects how HTTPAdapter frames an outgoing request.
type RequestFormat string

const (
	// RequestFormatMessages sends {"messages": [{role, content}, ...]} —
	// the default.
	RequestFormatMessages RequestFormat = "messages"
	// RequestFormatLegacy sends {"message": "...", "conversation_id": "..."}.
	RequestFormatLegacy RequestFormat = "legacy"
)

// Config is the tagged-variant adapter configuration described in the
// external interfaces section: only Kind plus the fields relevant to it
// are populated; Validate checks the combination is well-formed.
type Config struct {
	Kind Kind `json:"kind" yaml:"kind"`

	// http
	URL           string            `json:"url,omitempty" yaml:"url,omitempty"`
	Headers       map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	RequestFormat RequestFormat     `json:"requestFormat,omitempty" yaml:"requestFormat,omitempty"`
	Streaming     bool              `json:"streaming,omitempty" yaml:"streaming,omitempty"`

	// subprocess
	Command string   `json:"command,omitempty" yaml:"command,omitempty"`
	Args    []string `json:"args,omitempty" yaml:"args,omitempty"`
	Cwd     string   `json:"cwd,omitempty" yaml:"cwd,omitempty"`

	// openai-assistant
	AssistantID string `json:"assistantId,omitempty" yaml:"assistantId,omitempty"`
	APIKey      string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`

	// custom
	Module string `json:"module,omitempty" yaml:"module,omitempty"`
}

// Validate checks that the fields required by Kind are present. Only
// KindHTTP is mandatory for the core evaluation pipeline; the others are
// validated the same way so misconfiguration fails fast rather than at
// first send.
func (c Config) Validate() error {
	switch c.Kind {
	case KindHTTP:
		if c.URL == "" {
			return fmt.Errorf("adapter: http config requires url")
		}
	case KindSubprocess:
		if c.Command == "" {
			return fmt.Errorf("adapter: subprocess config requires command")
		}
	case KindOpenAIAssistant:
		if c.AssistantID == "" {
			return fmt.Errorf("adapter: openai-assistant config requires assistantId")
		}
	case KindCustom:
		if c.Module == "" {
			return fmt.Errorf("adapter: custom config requires module")
		}
	default:
		return fmt.Errorf("adapter: unknown kind %q", c.Kind)
	}
	return nil
}
