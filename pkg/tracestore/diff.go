package tracestore

import (
	"sort"

	"github.com/fabrik-dev/fabrik/pkg/scenario"
)

// Status classifies one scenario's change between two runs.
type Status string

const (
	StatusAdded      Status = "added"
	StatusRemoved    Status = "removed"
	StatusRegression Status = "regression"
	StatusPass       Status = "pass"
	StatusStable     Status = "stable"
	StatusModified   Status = "modified"
)

// ScenarioDiff is one scenario's before/after comparison.
type ScenarioDiff struct {
	Scenario        string  `json:"scenario"`
	Status          Status  `json:"status"`
	ScoreBefore     float64 `json:"scoreBefore,omitempty"`
	ScoreAfter      float64 `json:"scoreAfter,omitempty"`
	ScoreDelta      float64 `json:"scoreDelta,omitempty"`
	PassFlipped     bool    `json:"passFlipped"`
	AssertionsDelta int     `json:"assertionsDelta,omitempty"`
}

// Summary tallies a Diff's buckets.
type Summary struct {
	Added          int  `json:"added"`
	Removed        int  `json:"removed"`
	Regressions    int  `json:"regressions"`
	Improvements   int  `json:"improvements"`
	Stable         int  `json:"stable"`
	Modified       int  `json:"modified"`
	HasRegressions bool `json:"hasRegressions"`
}

// Diff is the full result of comparing two StoredRuns.
type Diff struct {
	Scenarios []ScenarioDiff `json:"scenarios"`
	Summary   Summary        `json:"summary"`
}

// Compare produces a pure, order-independent diff between before and after
// (§8 invariant 7): scenarios present only in after are "added", present
// only in before are "removed", present in both are "regression" when they
// flip passed true->false or their score drops by at least threshold
// (either trigger is sufficient on its own), present in both with a score
// improvement are "pass", present in both with an unchanged score but a
// different assertion count are "modified" (a Supplemented Feature beyond
// the original spec), and everything else is "stable".
//
// threshold is an absolute score delta, taken as a parameter rather than a
// hardcoded constant so callers can tune sensitivity per profile.
func Compare(before, after *StoredRun, threshold float64) Diff {
	beforeByName := indexByScenario(before)
	afterByName := indexByScenario(after)

	names := make(map[string]struct{})
	for name := range beforeByName {
		names[name] = struct{}{}
	}
	for name := range afterByName {
		names[name] = struct{}{}
	}

	diffs := make([]ScenarioDiff, 0, len(names))
	var summary Summary

	for name := range names {
		b, hasBefore := beforeByName[name]
		a, hasAfter := afterByName[name]

		switch {
		case hasAfter && !hasBefore:
			diffs = append(diffs, ScenarioDiff{Scenario: name, Status: StatusAdded, ScoreAfter: a.Score})
			summary.Added++
		case hasBefore && !hasAfter:
			diffs = append(diffs, ScenarioDiff{Scenario: name, Status: StatusRemoved, ScoreBefore: b.Score})
			summary.Removed++
		default:
			d := classify(b, a, threshold)
			diffs = append(diffs, d)
			switch d.Status {
			case StatusRegression:
				summary.Regressions++
			case StatusPass:
				summary.Improvements++
			case StatusModified:
				summary.Modified++
			default:
				summary.Stable++
			}
		}
	}

	sort.Slice(diffs, func(i, j int) bool { return diffs[i].Scenario < diffs[j].Scenario })
	summary.HasRegressions = summary.Regressions > 0

	return Diff{Scenarios: diffs, Summary: summary}
}

func classify(b, a scenario.RunResult, threshold float64) ScenarioDiff {
	delta := a.Score - b.Score
	flipped := b.Passed != a.Passed

	d := ScenarioDiff{
		Scenario:        a.Scenario,
		ScoreBefore:     b.Score,
		ScoreAfter:      a.Score,
		ScoreDelta:      delta,
		PassFlipped:     flipped,
		AssertionsDelta: len(a.Assertions) - len(b.Assertions),
	}

	switch {
	case b.Passed && !a.Passed:
		d.Status = StatusRegression
	case delta <= -threshold:
		d.Status = StatusRegression
	case delta > 0:
		d.Status = StatusPass
	case delta == 0 && len(a.Assertions) != len(b.Assertions):
		d.Status = StatusModified
	default:
		d.Status = StatusStable
	}
	return d
}

func indexByScenario(run *StoredRun) map[string]scenario.RunResult {
	if run == nil {
		return map[string]scenario.RunResult{}
	}
	out := make(map[string]scenario.RunResult, len(run.Results))
	for _, r := range run.Results {
		out[r.Scenario] = r
	}
	return out
}
