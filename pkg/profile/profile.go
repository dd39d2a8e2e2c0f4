// Package profile defines AgentProfile, the canonical structured
// understanding of an agent under test (AUT) produced by discovery and
// consumed by generation and execution.
package profile

import (
	"fmt"
	"time"
)

// SourceKind tags where a profile's understanding of the AUT came from.
type SourceKind string

const (
	SourceRepoURL       SourceKind = "repo-url"
	SourceLocalDir      SourceKind = "local-dir"
	SourceHTTPEndpoint  SourceKind = "http-endpoint"
	SourceAssistantID   SourceKind = "assistant-id"
)

// Source identifies the discovery input. It is immutable after the profile
// is created — nothing in discovery, generation, or execution may rewrite
// it once New has run.
type Source struct {
	Kind SourceKind `json:"kind"`
	// Value is the repo URL, local directory path, HTTP endpoint URL, or
	// assistant ID, depending on Kind.
	Value string `json:"value"`
}

// DiscoveredTool is one capability the AUT is believed to expose.
type DiscoveredTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	// Citation points back into Evidence (by index position is not
	// stable across merges, so citations are stored as free text:
	// typically a path or path:line produced by discovery).
	Citation string `json:"citation,omitempty"`
}

// ModelInfo captures what discovery believes the AUT runs on, when that is
// knowable (e.g. from a config file or system prompt, never guessed).
type ModelInfo struct {
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

// Endpoint describes how to reach the AUT over HTTP, when discovery found
// or was given one.
type Endpoint struct {
	URL            string            `json:"url"`
	Method         string            `json:"method"`
	Headers        map[string]string `json:"headers,omitempty"`
	BodyFormat     string            `json:"bodyFormat,omitempty"`
	ResponseFormat string            `json:"responseFormat,omitempty"`
}

// RelevantFile is one file discovery read and cited evidence from.
type RelevantFile struct {
	Path    string `json:"path"`
	Role    string `json:"role"`
	Excerpt string `json:"excerpt,omitempty"`
}

// Codebase records what discovery found about the AUT's implementation,
// when source was available.
type Codebase struct {
	Framework     string         `json:"framework,omitempty"`
	EntryPoint    string         `json:"entryPoint,omitempty"`
	RelevantFiles []RelevantFile `json:"relevantFiles,omitempty"`
	Dependencies  []string       `json:"dependencies,omitempty"`
}

// Evidence is one append-only record justifying a profile field. Every
// profile field other than bare identity (name/description/domain) must be
// traceable to at least one Evidence entry — see ValidateEvidence.
type Evidence struct {
	Type       string  `json:"type"`
	Source     string  `json:"source"`
	Finding    string  `json:"finding"`
	Confidence float64 `json:"confidence"`
}

// Citation renders Source for display. When Source already carries a line
// reference (path:line or path:startLine-endLine, produced by the codebase
// extraction stage) it is returned unchanged; otherwise it's a bare path or
// probe name.
func (e Evidence) Citation() string {
	return e.Source
}

// AgentProfile is the canonical output of discovery and the input to
// generation (and, optionally, execution).
type AgentProfile struct {
	DiscoveredAt time.Time `json:"discoveredAt"`
	Source       Source    `json:"source"`
	Confidence   float64   `json:"confidence"`

	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Domain      string `json:"domain,omitempty"`

	Tools         []DiscoveredTool `json:"tools,omitempty"`
	SystemPrompt  string           `json:"systemPrompt,omitempty"`
	ModelInfo     *ModelInfo       `json:"modelInfo,omitempty"`

	KnownConstraints   []string `json:"knownConstraints,omitempty"`
	ExpectedTone       string   `json:"expectedTone,omitempty"`
	SupportedLanguages []string `json:"supportedLanguages,omitempty"`
	MaxTurns           *int     `json:"maxTurns,omitempty"`

	Endpoint *Endpoint `json:"endpoint,omitempty"`
	Codebase *Codebase `json:"codebase,omitempty"`

	Evidence []Evidence `json:"evidence,omitempty"`
}

// New constructs a profile with its immutable Source set. DiscoveredAt
// defaults to now if zero.
func New(source Source, discoveredAt time.Time) *AgentProfile {
	if discoveredAt.IsZero() {
		discoveredAt = time.Now().UTC()
	}
	return &AgentProfile{
		DiscoveredAt: discoveredAt,
		Source:       source,
	}
}

// AddTool appends a tool, enforcing the uniqueness invariant (case
// sensitive, first-wins): if name is already present, the call is a no-op
// rather than an error, matching the synthesis stage's merge semantics.
func (p *AgentProfile) AddTool(tool DiscoveredTool) {
	for _, existing := range p.Tools {
		if existing.Name == tool.Name {
			return
		}
	}
	p.Tools = append(p.Tools, tool)
}

// AddEvidence appends an evidence record. Evidence is append-only by
// convention — callers must never mutate or remove prior entries.
func (p *AgentProfile) AddEvidence(e Evidence) {
	p.Evidence = append(p.Evidence, e)
}

// MaxEvidenceConfidence returns the highest confidence among all evidence
// records, or 0 if there is none.
func (p *AgentProfile) MaxEvidenceConfidence() float64 {
	var max float64
	for _, e := range p.Evidence {
		if e.Confidence > max {
			max = e.Confidence
		}
	}
	return max
}

// ClampConfidence bounds p.Confidence to the maximum evidence confidence,
// per the invariant "confidence <= max confidence of cited evidence". It is
// a no-op if there is no evidence at all (an evidence-free profile keeps
// the confidence its producer set).
func (p *AgentProfile) ClampConfidence() {
	if len(p.Evidence) == 0 {
		return
	}
	if max := p.MaxEvidenceConfidence(); p.Confidence > max {
		p.Confidence = max
	}
}

// Validate checks the invariants from §3/§8 of the evaluation pipeline
// specification: unique tool names, confidence bounds, and that confidence
// does not exceed the evidence ceiling.
func (p *AgentProfile) Validate() error {
	seen := make(map[string]struct{}, len(p.Tools))
	for _, tool := range p.Tools {
		if _, dup := seen[tool.Name]; dup {
			return fmt.Errorf("profile: duplicate tool name %q", tool.Name)
		}
		seen[tool.Name] = struct{}{}
	}

	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("profile: confidence %v out of [0,1]", p.Confidence)
	}

	if len(p.Evidence) > 0 {
		if max := p.MaxEvidenceConfidence(); p.Confidence > max+1e-9 {
			return fmt.Errorf("profile: confidence %v exceeds max evidence confidence %v", p.Confidence, max)
		}
	}

	if p.Source.Kind == "" {
		return fmt.Errorf("profile: source kind is required")
	}

	return nil
}

// Minimal builds the confidence-0.2 shell profile emitted when discovery
// produces no evidence at all (§4.3 state machine, §8 boundary behavior).
// description is the user-supplied hint, if any.
func Minimal(source Source, description string) *AgentProfile {
	p := New(source, time.Time{})
	p.Confidence = 0.2
	p.Description = description
	p.AddEvidence(Evidence{
		Type:       "fallback",
		Source:     "discovery-state-machine",
		Finding:    "no evidence produced; emitting minimal shell profile",
		Confidence: 0.2,
	})
	return p
}
