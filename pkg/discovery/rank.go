package discovery

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/fabrik-dev/fabrik/pkg/gateway"
)

// Priority is a ranked file's importance tier.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// RankedFile is one entry of the ranking stage's output.
type RankedFile struct {
	Path     string   `json:"path"`
	Reason   string   `json:"reason"`
	Priority Priority `json:"priority"`
}

const maxRankedFiles = 25

var rankSchema = map[string]any{
	"type": "array",
	"items": map[string]any{
		"type":     "object",
		"required": []any{"path", "priority"},
		"properties": map[string]any{
			"path":     map[string]any{"type": "string"},
			"reason":   map[string]any{"type": "string"},
			"priority": map[string]any{"enum": []any{"high", "medium", "low"}},
		},
	},
}

// Rank asks the gateway to order tree's files by relevance to
// understanding the agent, falling back to a heuristic filename-regex
// ranking when the schema call fails to produce a usable result.
func Rank(ctx context.Context, gw *gateway.Gateway, tree FileTree) ([]RankedFile, error) {
	prompt := buildRankingPrompt(tree)

	resp, err := gw.Generate(ctx, gateway.Request{
		Messages: []gateway.Message{
			{Role: gateway.RoleSystem, Content: rankingSystemPrompt},
			{Role: gateway.RoleUser, Content: prompt},
		},
		OutputSchema: rankSchema,
	})
	if err != nil {
		return nil, err
	}

	if ranked, ok := decodeRankedFiles(resp.Parsed); ok {
		return capRanked(ranked), nil
	}

	return capRanked(heuristicRank(tree.Files)), nil
}

const rankingSystemPrompt = "You rank which files in a codebase are most " +
	"likely to reveal an AI agent's system prompt, tools, and behavioral " +
	"constraints. Respond with a JSON array only."

func buildRankingPrompt(tree FileTree) string {
	var b strings.Builder
	b.WriteString("File tree:\n")
	for _, f := range tree.Files {
		b.WriteString("- " + f + "\n")
	}
	if tree.ReadmeRaw != "" {
		b.WriteString("\nREADME:\n" + truncate(tree.ReadmeRaw, 4000))
	}
	for path, content := range tree.Manifests {
		b.WriteString("\nManifest " + path + ":\n" + truncate(content, 2000))
	}
	return b.String()
}

func decodeRankedFiles(parsed any) ([]RankedFile, bool) {
	if parsed == nil {
		return nil, false
	}
	data, err := json.Marshal(parsed)
	if err != nil {
		return nil, false
	}
	var ranked []RankedFile
	if err := json.Unmarshal(data, &ranked); err != nil || len(ranked) == 0 {
		return nil, false
	}
	return ranked, true
}

func capRanked(ranked []RankedFile) []RankedFile {
	if len(ranked) > maxRankedFiles {
		return ranked[:maxRankedFiles]
	}
	return ranked
}

var (
	highPriorityPattern   = regexp.MustCompile(`(?i)(prompt|system|instruction|config|tool|agent|readme)`)
	mediumPriorityPattern = regexp.MustCompile(`(?i)(route|handler|api|index|main)`)
)

// heuristicRank implements the filename-regex fallback named in §4.3(2)
// when the ranking gateway call fails schema validation.
func heuristicRank(files []string) []RankedFile {
	ranked := make([]RankedFile, 0, len(files))
	for _, f := range files {
		priority := PriorityLow
		switch {
		case highPriorityPattern.MatchString(f):
			priority = PriorityHigh
		case mediumPriorityPattern.MatchString(f):
			priority = PriorityMedium
		}
		if priority == PriorityLow {
			continue
		}
		ranked = append(ranked, RankedFile{Path: f, Reason: "heuristic filename match", Priority: priority})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return priorityRank(ranked[i].Priority) < priorityRank(ranked[j].Priority)
	})
	return ranked
}

func priorityRank(p Priority) int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "... [truncated]"
}
