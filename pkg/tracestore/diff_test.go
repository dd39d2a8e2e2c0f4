package tracestore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fabrik-dev/fabrik/pkg/scenario"
)

func runOf(results ...scenario.RunResult) *StoredRun {
	return &StoredRun{Results: results}
}

func TestCompare_RegressionScenarioMatchesEndToEndExample(t *testing.T) {
	before := runOf(scenario.RunResult{Scenario: "handles-refund", Passed: true, Score: 0.84})
	after := runOf(scenario.RunResult{Scenario: "handles-refund", Passed: true, Score: 0.74})

	diff := Compare(before, after, 0.05)

	assert.Equal(t, 1, diff.Summary.Regressions)
	assert.True(t, diff.Summary.HasRegressions)
	assert.Len(t, diff.Scenarios, 1)
	d := diff.Scenarios[0]
	assert.Equal(t, StatusRegression, d.Status)
	assert.InDelta(t, -0.10, d.ScoreDelta, 1e-9)
	assert.False(t, d.PassFlipped)
}

func TestCompare_AddedAndRemovedScenarios(t *testing.T) {
	before := runOf(scenario.RunResult{Scenario: "old-only", Passed: true, Score: 1.0})
	after := runOf(scenario.RunResult{Scenario: "new-only", Passed: true, Score: 1.0})

	diff := Compare(before, after, 0.05)

	assert.Equal(t, 1, diff.Summary.Added)
	assert.Equal(t, 1, diff.Summary.Removed)
	assert.Equal(t, 0, diff.Summary.Regressions)
}

func TestCompare_ImprovementClassifiedAsPass(t *testing.T) {
	before := runOf(scenario.RunResult{Scenario: "a", Passed: false, Score: 0.4})
	after := runOf(scenario.RunResult{Scenario: "a", Passed: true, Score: 0.9})

	diff := Compare(before, after, 0.05)

	assert.Equal(t, StatusPass, diff.Scenarios[0].Status)
	assert.True(t, diff.Scenarios[0].PassFlipped)
	assert.Equal(t, 1, diff.Summary.Improvements)
}

func TestCompare_UnchangedScoreIsStable(t *testing.T) {
	before := runOf(scenario.RunResult{Scenario: "a", Passed: true, Score: 0.9, Assertions: []scenario.AssertionResult{{Type: "contains"}}})
	after := runOf(scenario.RunResult{Scenario: "a", Passed: true, Score: 0.9, Assertions: []scenario.AssertionResult{{Type: "contains"}}})

	diff := Compare(before, after, 0.05)
	assert.Equal(t, StatusStable, diff.Scenarios[0].Status)
	assert.Equal(t, 1, diff.Summary.Stable)
}

func TestCompare_SameScoreDifferentAssertionCountIsModified(t *testing.T) {
	before := runOf(scenario.RunResult{Scenario: "a", Passed: true, Score: 0.9, Assertions: []scenario.AssertionResult{{Type: "contains"}}})
	after := runOf(scenario.RunResult{Scenario: "a", Passed: true, Score: 0.9, Assertions: []scenario.AssertionResult{{Type: "contains"}, {Type: "latency"}}})

	diff := Compare(before, after, 0.05)
	assert.Equal(t, StatusModified, diff.Scenarios[0].Status)
	assert.Equal(t, 1, diff.Scenarios[0].AssertionsDelta)
	assert.Equal(t, 1, diff.Summary.Modified)
}

func TestCompare_SmallDropBelowThresholdIsStable(t *testing.T) {
	before := runOf(scenario.RunResult{Scenario: "a", Passed: true, Score: 0.90})
	after := runOf(scenario.RunResult{Scenario: "a", Passed: true, Score: 0.87})

	diff := Compare(before, after, 0.05)
	assert.Equal(t, StatusStable, diff.Scenarios[0].Status)
	assert.False(t, diff.Summary.HasRegressions)
}

func TestCompare_IsOrderIndependent(t *testing.T) {
	a := scenario.RunResult{Scenario: "a", Passed: true, Score: 0.9}
	b := scenario.RunResult{Scenario: "b", Passed: true, Score: 0.2}
	forward := Compare(runOf(a, b), runOf(a, b), 0.05)
	backward := Compare(runOf(b, a), runOf(b, a), 0.05)
	assert.Equal(t, forward.Summary, backward.Summary)
}

func TestCompare_NilBeforeTreatsAllAsAdded(t *testing.T) {
	after := runOf(scenario.RunResult{Scenario: "a", Passed: true, Score: 1.0})
	diff := Compare(nil, after, 0.05)
	assert.Equal(t, 1, diff.Summary.Added)
}
