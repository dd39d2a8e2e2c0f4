package discovery

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/fabrik-dev/fabrik/pkg/profile"
)

// Synthesize implements §4.3(4): flatten findings, dedupe tools by name
// (first wins), union constraints, collect non-empty system prompts and
// model configs, and fold everything into a single AgentProfile whose
// confidence is bounded by the evidence it cites. The conflict rule
// (code > README > inference, explicit > implicit) is realized by the
// extraction order: README extractions are moved behind every code-file
// extraction before the first-wins fields are picked, and
// profile.AddTool/AddEvidence are both first-wins / append-only.
func Synthesize(source profile.Source, tree FileTree, extractions []Extraction, evidence []profile.Evidence) *profile.AgentProfile {
	p := profile.New(source, time.Now().UTC())

	var systemPrompt string
	var modelInfo *profile.ModelInfo
	constraintSeen := map[string]bool{}

	ordered := make([]Extraction, 0, len(extractions))
	var readmes []Extraction
	for _, ext := range extractions {
		if strings.HasPrefix(strings.ToLower(filepath.Base(ext.Path)), "readme") {
			readmes = append(readmes, ext)
			continue
		}
		ordered = append(ordered, ext)
	}
	ordered = append(ordered, readmes...)

	for _, ext := range ordered {
		if systemPrompt == "" && ext.SystemPrompt != "" {
			systemPrompt = ext.SystemPrompt
		}
		if modelInfo == nil && ext.ModelInfo != nil {
			modelInfo = ext.ModelInfo
		}
		if p.Domain == "" && ext.Domain != "" {
			p.Domain = ext.Domain
		}
		for _, tool := range ext.Tools {
			p.AddTool(tool)
		}
		for _, c := range ext.Constraints {
			if !constraintSeen[c] {
				constraintSeen[c] = true
				p.KnownConstraints = append(p.KnownConstraints, c)
			}
		}
	}

	p.SystemPrompt = systemPrompt
	p.ModelInfo = modelInfo

	for _, ev := range evidence {
		if ev.Source != "" {
			p.AddEvidence(ev)
		}
	}

	if tree.ReadmeRaw != "" {
		p.AddEvidence(profile.Evidence{
			Type: "readme", Source: "README", Finding: "project description available", Confidence: 0.5,
		})
	}

	p.Codebase = &profile.Codebase{}
	for path := range tree.Manifests {
		p.Codebase.Dependencies = append(p.Codebase.Dependencies, path)
	}
	for _, ext := range extractions {
		if ext.SystemPrompt != "" || len(ext.Tools) > 0 {
			p.Codebase.RelevantFiles = append(p.Codebase.RelevantFiles, profile.RelevantFile{
				Path: ext.Path, Role: "agent-definition",
			})
		}
	}

	p.Confidence = 0.7
	p.ClampConfidence()
	return p
}
