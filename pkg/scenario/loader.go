package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fabrik-dev/fabrik/pkg/fabriklog"
)

// Registry holds the scenarios a run will execute. Code scenarios
// (generated <slug>_test.go files — there is no Go source interpreter, so
// a "code scenario" is a Go file registered at init time via Register, the
// idiomatic equivalent of the generator's raw-source output) and
// declarative YAML scenarios (loaded from disk at run time) both end up
// here.
type Registry struct {
	scenarios []Scenario
}

// registered is the process-wide set of code scenarios, populated by
// generated *_test.go files calling Register from an init() func — the Go
// analogue of the spec's "default-export shape" for code scenario files.
var registered []Scenario

// Register adds a code-authored scenario to the process-wide registry.
// Intended to be called from an init() function in a generated
// <slug>_test.go file.
func Register(s Scenario) {
	registered = append(registered, s)
}

// Load builds a Registry from the process-wide code registrations plus
// every *.yaml/*.yml file found under dir (non-recursive is not required;
// Load walks the full tree). A YAML file that cannot be read or compiled
// is skipped with a warning. tagFilter, when non-nil, drops any scenario
// for which it returns false — the tag-filtering extension from
// SPEC_FULL.md §C.3.
func Load(dir string, tagFilter func(Scenario) bool) (*Registry, error) {
	all := make([]Scenario, 0, len(registered))
	all = append(all, registered...)

	yamlScenarios, err := loadYAMLDir(dir)
	if err != nil {
		return nil, err
	}
	all = append(all, yamlScenarios...)

	seen := make(map[string]struct{}, len(all))
	for _, s := range all {
		if _, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("scenario: duplicate scenario name %q", s.Name)
		}
		seen[s.Name] = struct{}{}
	}

	if tagFilter != nil {
		filtered := all[:0:0]
		for _, s := range all {
			if tagFilter(s) {
				filtered = append(filtered, s)
			}
		}
		all = filtered
	}

	return &Registry{scenarios: all}, nil
}

// All returns the loaded scenarios in a stable (name-sorted) order.
func (r *Registry) All() []Scenario {
	out := make([]Scenario, len(r.scenarios))
	copy(out, r.scenarios)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// TagFilter returns a predicate that keeps only scenarios carrying tag.
func TagFilter(tag string) func(Scenario) bool {
	if tag == "" {
		return nil
	}
	return func(s Scenario) bool { return s.HasTag(tag) }
}

func loadYAMLDir(dir string) ([]Scenario, error) {
	var out []Scenario
	if dir == "" {
		return out, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return out, nil
	}

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			fabriklog.Default().Warn("scenario: skipping unreadable scenario file", "path", path, "error", readErr)
			return nil
		}
		s, compileErr := CompileYAML(data)
		if compileErr != nil {
			fabriklog.Default().Warn("scenario: skipping invalid scenario file", "path", path, "error", compileErr)
			return nil
		}
		out = append(out, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
