package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultDir is the fabrik state directory created under a project root.
const DefaultDir = ".fabrik"

// DefaultFileName is the on-disk name of the persisted profile.
const DefaultFileName = "agent-profile.json"

// StalePeriod is how old a persisted profile may be before Load warns the
// caller it should probably be regenerated.
const StalePeriod = 7 * 24 * time.Hour

// PathFor returns the canonical profile path under projectDir.
func PathFor(projectDir string) string {
	return filepath.Join(projectDir, DefaultDir, DefaultFileName)
}

// Save writes p as pretty-printed JSON to <projectDir>/.fabrik/agent-profile.json,
// creating the directory if needed.
func Save(projectDir string, p *AgentProfile) error {
	dir := filepath.Join(projectDir, DefaultDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("profile: create %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("profile: marshal: %w", err)
	}

	path := PathFor(projectDir)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("profile: write %s: %w", path, err)
	}
	return nil
}

// Load reads the persisted profile for projectDir. stale reports whether
// DiscoveredAt is older than StalePeriod; callers surface that as a
// warning, not an error.
func Load(projectDir string) (p *AgentProfile, stale bool, err error) {
	path := PathFor(projectDir)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("profile: read %s: %w", path, err)
	}

	p = &AgentProfile{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, false, fmt.Errorf("profile: unmarshal %s: %w", path, err)
	}

	stale = time.Since(p.DiscoveredAt) > StalePeriod
	return p, stale, nil
}
