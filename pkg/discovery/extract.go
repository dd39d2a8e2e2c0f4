package discovery

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/fabrik-dev/fabrik/pkg/fabriklog"
	"github.com/fabrik-dev/fabrik/pkg/gateway"
	"github.com/fabrik-dev/fabrik/pkg/profile"
)

const (
	maxExtractedFiles      = 20
	extractionConcurrency  = 5
	extractionTruncateSize = 15000
)

// Extraction is one file's per-file extraction result.
type Extraction struct {
	Path         string
	SystemPrompt string
	Tools        []profile.DiscoveredTool
	Constraints  []string
	ModelInfo    *profile.ModelInfo
	Domain       string
	Findings     []string
}

var extractSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"systemPrompt": map[string]any{"type": "string"},
		"tools": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":        map[string]any{"type": "string"},
					"description": map[string]any{"type": "string"},
				},
			},
		},
		"constraints": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"domain":      map[string]any{"type": "string"},
		"findings":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"modelConfig": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"provider": map[string]any{"type": "string"},
				"model":    map[string]any{"type": "string"},
			},
		},
	},
}

const extractionSystemPrompt = "You extract facts about an AI agent's " +
	"implementation from a single source file: its system prompt (if " +
	"embedded literally), the tools/functions it exposes, behavioral " +
	"constraints, and the LLM it calls. Only report what this file " +
	"actually shows; never infer beyond it. Respond with JSON only."

// Extract takes the top N (<=20) high/medium-priority ranked files and
// extracts structured findings from each with bounded concurrency. A
// per-file failure becomes an empty Extraction carrying a low-confidence
// evidence entry rather than aborting the run.
func Extract(ctx context.Context, gw *gateway.Gateway, tree FileTree, ranked []RankedFile) ([]Extraction, []profile.Evidence) {
	selected := selectForExtraction(ranked)

	results := make([]Extraction, len(selected))
	evidence := make([]profile.Evidence, len(selected))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(extractionConcurrency)

	for i, rf := range selected {
		i, rf := i, rf
		g.Go(func() error {
			ext, ev := extractOne(gctx, gw, tree.Root, rf)
			results[i] = ext
			evidence[i] = ev
			return nil // per-file failures never abort the group
		})
	}
	_ = g.Wait()

	return results, evidence
}

func selectForExtraction(ranked []RankedFile) []RankedFile {
	selected := make([]RankedFile, 0, maxExtractedFiles)
	for _, rf := range ranked {
		if rf.Priority == PriorityLow {
			continue
		}
		selected = append(selected, rf)
		if len(selected) >= maxExtractedFiles {
			break
		}
	}
	return selected
}

func extractOne(ctx context.Context, gw *gateway.Gateway, root string, rf RankedFile) (Extraction, profile.Evidence) {
	content, err := os.ReadFile(filepath.Join(root, rf.Path))
	if err != nil {
		fabriklog.Default().Warn("discovery: could not read file for extraction", "path", rf.Path, "error", err)
		return Extraction{Path: rf.Path}, profile.Evidence{
			Type: "extraction-failure", Source: rf.Path,
			Finding: "file unreadable", Confidence: 0.1,
		}
	}

	resp, err := gw.Generate(ctx, gateway.Request{
		Messages: []gateway.Message{
			{Role: gateway.RoleSystem, Content: extractionSystemPrompt},
			{Role: gateway.RoleUser, Content: rf.Path + ":\n" + truncate(string(content), extractionTruncateSize)},
		},
		OutputSchema: extractSchema,
	})
	if err != nil {
		fabriklog.Default().Warn("discovery: extraction gateway call failed", "path", rf.Path, "error", err)
		return Extraction{Path: rf.Path}, profile.Evidence{
			Type: "extraction-failure", Source: rf.Path,
			Finding: "gateway call failed", Confidence: 0.1,
		}
	}

	if resp.Parsed == nil {
		return Extraction{Path: rf.Path}, profile.Evidence{
			Type: "extraction-failure", Source: rf.Path,
			Finding: "model output failed schema validation", Confidence: 0.1,
		}
	}

	ext := decodeExtraction(rf.Path, resp.Parsed)
	return ext, profile.Evidence{
		Type: "code", Source: rf.Path,
		Finding: "extracted " + rf.Reason, Confidence: priorityConfidence(rf.Priority),
	}
}

func priorityConfidence(p Priority) float64 {
	switch p {
	case PriorityHigh:
		return 0.8
	case PriorityMedium:
		return 0.6
	default:
		return 0.3
	}
}

func decodeExtraction(path string, parsed any) Extraction {
	data, err := json.Marshal(parsed)
	if err != nil {
		return Extraction{Path: path}
	}

	var raw struct {
		SystemPrompt string `json:"systemPrompt"`
		Tools        []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"tools"`
		Constraints []string `json:"constraints"`
		Domain      string   `json:"domain"`
		Findings    []string `json:"findings"`
		ModelConfig *struct {
			Provider string `json:"provider"`
			Model    string `json:"model"`
		} `json:"modelConfig"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Extraction{Path: path}
	}

	ext := Extraction{
		Path:         path,
		SystemPrompt: raw.SystemPrompt,
		Constraints:  raw.Constraints,
		Domain:       raw.Domain,
		Findings:     raw.Findings,
	}
	for _, t := range raw.Tools {
		ext.Tools = append(ext.Tools, profile.DiscoveredTool{Name: t.Name, Description: t.Description, Citation: path})
	}
	if raw.ModelConfig != nil {
		ext.ModelInfo = &profile.ModelInfo{Provider: raw.ModelConfig.Provider, Model: raw.ModelConfig.Model}
	}
	return ext
}
