// Package discovery explores an agent under test — a source tree, a live
// HTTP endpoint, or a structured assistant API — and produces a
// profile.AgentProfile. Exploration always runs the state machine
// start -> orient -> rank -> extract* -> synthesize -> persist -> done,
// degrading to a minimal profile rather than failing outright.
package discovery

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	maxOrientedFiles = 200
	maxOrientDepth   = 4
)

var excludedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	".hg":          true,
	".svn":         true,
	"dist":         true,
	"build":        true,
	"vendor":       true,
	".venv":        true,
	"__pycache__":  true,
}

var manifestFileNames = []string{
	"package.json", "go.mod", "requirements.txt", "pyproject.toml",
	"Cargo.toml", "pom.xml", "Gemfile",
}

// FileTree is the orientation stage's output: the enumerated file paths
// (relative to root), plus best-effort README and manifest contents.
type FileTree struct {
	Root      string
	Files     []string
	ReadmeRaw string
	Manifests map[string]string
}

// Orient enumerates up to maxOrientedFiles files under root at depth
// maxOrientDepth, excluding VCS metadata, build output, and dependency
// directories, and best-effort-reads README and manifest files.
func Orient(root string) (FileTree, error) {
	tree := FileTree{Root: root, Manifests: map[string]string{}}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if rel == "." {
			return nil
		}

		depth := strings.Count(rel, string(filepath.Separator)) + 1
		if d.IsDir() {
			if excludedDirs[d.Name()] || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if depth >= maxOrientDepth {
				return filepath.SkipDir
			}
			return nil
		}

		if depth > maxOrientDepth {
			return nil
		}
		if len(tree.Files) >= maxOrientedFiles {
			return nil
		}

		tree.Files = append(tree.Files, rel)
		return nil
	})
	if err != nil {
		return tree, err
	}

	sort.Strings(tree.Files)
	tree.ReadmeRaw = bestEffortRead(findReadme(tree.Files), root)

	for _, rel := range tree.Files {
		base := filepath.Base(rel)
		for _, m := range manifestFileNames {
			if base == m {
				tree.Manifests[rel] = bestEffortRead(rel, root)
			}
		}
	}

	return tree, nil
}

func findReadme(files []string) string {
	for _, f := range files {
		lower := strings.ToLower(filepath.Base(f))
		if strings.HasPrefix(lower, "readme") {
			return f
		}
	}
	return ""
}

func bestEffortRead(rel, root string) string {
	if rel == "" {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(root, rel))
	if err != nil {
		return ""
	}
	return string(data)
}
