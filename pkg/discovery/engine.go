package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fabrik-dev/fabrik/pkg/adapter"
	"github.com/fabrik-dev/fabrik/pkg/fabriklog"
	"github.com/fabrik-dev/fabrik/pkg/gateway"
	"github.com/fabrik-dev/fabrik/pkg/profile"
)

// Stage names the discovery state machine's nodes, per §4.3: start ->
// orient -> rank -> extract* -> synthesize -> persist -> done.
type Stage string

const (
	StageStart     Stage = "start"
	StageOrient    Stage = "orient"
	StageRank      Stage = "rank"
	StageExtract   Stage = "extract"
	StageSynthesize Stage = "synthesize"
	StagePersist   Stage = "persist"
	StageDone      Stage = "done"
)

// stateFileName is the resumability sidecar: if a run is interrupted
// mid-pipeline, the next invocation picks up from the last completed
// stage instead of starting orientation over.
const stateFileName = "discovery-state.json"

type discoveryState struct {
	Stage     Stage      `json:"stage"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Tree      *FileTree  `json:"tree,omitempty"`
	Ranked    []RankedFile `json:"ranked,omitempty"`
}

func statePath(root string) string {
	return filepath.Join(root, profile.DefaultDir, stateFileName)
}

func loadState(root string) (*discoveryState, bool) {
	data, err := os.ReadFile(statePath(root))
	if err != nil {
		return nil, false
	}
	var s discoveryState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, false
	}
	return &s, true
}

func saveState(root string, s discoveryState) {
	s.UpdatedAt = time.Now().UTC()
	dir := filepath.Join(root, profile.DefaultDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(statePath(root), data, 0o644)
}

func clearState(root string) {
	_ = os.Remove(statePath(root))
}

// RunCodebase drives the orient -> rank -> extract -> synthesize ->
// persist -> done pipeline for a repo-url or local-dir source. It resumes
// from a previously interrupted run's orient/rank output when a
// discovery-state.json sidecar from the same root is present.
func RunCodebase(ctx context.Context, gw *gateway.Gateway, root string, source profile.Source, descriptionHint string) (*profile.AgentProfile, error) {
	logger := fabriklog.Default()

	var tree FileTree
	var ranked []RankedFile

	if state, ok := loadState(root); ok && state.Tree != nil {
		logger.Info("discovery: resuming from saved state", "stage", state.Stage)
		tree = *state.Tree
		ranked = state.Ranked
	} else {
		var err error
		tree, err = Orient(root)
		if err != nil {
			logger.Warn("discovery: orientation failed, falling back to minimal profile", "error", err)
			return profile.Minimal(source, descriptionHint), nil
		}
		saveState(root, discoveryState{Stage: StageOrient, Tree: &tree})
	}

	if len(tree.Files) == 0 {
		clearState(root)
		return profile.Minimal(source, descriptionHint), nil
	}

	if ranked == nil {
		var err error
		ranked, err = Rank(ctx, gw, tree)
		if err != nil {
			logger.Warn("discovery: ranking gateway call failed, using heuristic fallback", "error", err)
			ranked = heuristicRank(tree.Files)
		}
		saveState(root, discoveryState{Stage: StageRank, Tree: &tree, Ranked: ranked})
	}

	if len(ranked) == 0 {
		clearState(root)
		return profile.Minimal(source, descriptionHint), nil
	}

	extractions, evidence := Extract(ctx, gw, tree, ranked)
	saveState(root, discoveryState{Stage: StageExtract, Tree: &tree, Ranked: ranked})

	p := Synthesize(source, tree, extractions, evidence)
	if len(p.Evidence) == 0 {
		clearState(root)
		return profile.Minimal(source, descriptionHint), nil
	}

	if err := profile.Save(root, p); err != nil {
		return nil, fmt.Errorf("discovery: persist profile: %w", err)
	}
	clearState(root)

	return p, nil
}

// RunHTTP drives the fixed five-probe pipeline against a live adapter.
func RunHTTP(ctx context.Context, a adapter.Adapter, root string, source profile.Source, descriptionHint string) (*profile.AgentProfile, error) {
	results := RunProbes(ctx, a)

	allFailed := true
	for _, r := range results {
		if r.Err == nil {
			allFailed = false
			break
		}
	}
	if allFailed {
		return profile.Minimal(source, descriptionHint), nil
	}

	p := SynthesizeFromProbes(source, results)
	if err := profile.Save(root, p); err != nil {
		return nil, fmt.Errorf("discovery: persist profile: %w", err)
	}
	return p, nil
}
