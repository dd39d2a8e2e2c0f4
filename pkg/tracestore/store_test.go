package tracestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabrik-dev/fabrik/pkg/scenario"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "traces.db")
	store, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRun(id, version string, createdAt time.Time, results []scenario.RunResult) StoredRun {
	return StoredRun{
		Meta:    BuildMeta(id, version, createdAt, results),
		Results: results,
	}
}

func TestStore_SaveAndLoadByVersion_RoundTrips(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	results := []scenario.RunResult{
		{Scenario: "greets-politely", Passed: true, Score: 1.0, Assertions: []scenario.AssertionResult{{Type: "contains", Passed: true}}},
		{Scenario: "handles-refund", Passed: false, Score: 0.5},
	}
	run := sampleRun("run-1", "v1.0.0", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), results)

	require.NoError(t, store.SaveRun(ctx, run))

	loaded, err := store.LoadByVersion(ctx, "v1.0.0")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "run-1", loaded.Meta.ID)
	assert.Equal(t, 2, loaded.Meta.Counts.Total)
	assert.Equal(t, 1, loaded.Meta.Counts.Passed)
	assert.Equal(t, 1, loaded.Meta.Counts.Failed)
	require.Len(t, loaded.Results, 2)
}

func TestStore_LoadByVersion_ReturnsMostRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	older := sampleRun("run-old", "v1.0.0", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), []scenario.RunResult{
		{Scenario: "a", Passed: true, Score: 1.0},
	})
	newer := sampleRun("run-new", "v1.0.0", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), []scenario.RunResult{
		{Scenario: "a", Passed: false, Score: 0.2},
	})
	require.NoError(t, store.SaveRun(ctx, older))
	require.NoError(t, store.SaveRun(ctx, newer))

	loaded, err := store.LoadByVersion(ctx, "v1.0.0")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "run-new", loaded.Meta.ID)
}

func TestStore_LoadByVersion_UnknownVersionReturnsNil(t *testing.T) {
	store := openTestStore(t)
	loaded, err := store.LoadByVersion(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStore_LoadByID_RoundTrips(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run := sampleRun("run-xyz", "v2.0.0", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), []scenario.RunResult{
		{Scenario: "a", Passed: true, Score: 1.0},
	})
	require.NoError(t, store.SaveRun(ctx, run))

	loaded, err := store.LoadByID(ctx, "run-xyz")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "v2.0.0", loaded.Meta.Version)
}

func TestStore_SaveRun_DuplicateIDFailsWithoutPartialWrite(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run := sampleRun("dup", "v1.0.0", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), []scenario.RunResult{
		{Scenario: "a", Passed: true, Score: 1.0},
	})
	require.NoError(t, store.SaveRun(ctx, run))

	conflicting := sampleRun("dup", "v1.0.0", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), []scenario.RunResult{
		{Scenario: "b", Passed: true, Score: 1.0},
		{Scenario: "c", Passed: true, Score: 1.0},
	})
	err := store.SaveRun(ctx, conflicting)
	assert.Error(t, err)

	loaded, err := store.LoadByID(ctx, "dup")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Len(t, loaded.Results, 1)
	assert.Equal(t, "a", loaded.Results[0].Scenario)
}

func TestBuildMeta_SumsDurationAndCounts(t *testing.T) {
	results := []scenario.RunResult{
		{Scenario: "a", Passed: true, Score: 1.0, Duration: 2 * time.Second},
		{Scenario: "b", Passed: false, Score: 0.0, Duration: 3 * time.Second},
	}
	meta := BuildMeta("r", "v1", time.Now(), results)
	assert.Equal(t, 2, meta.Counts.Total)
	assert.Equal(t, 1, meta.Counts.Passed)
	assert.Equal(t, 1, meta.Counts.Failed)
	assert.Equal(t, 5*time.Second, meta.TotalDuration)
}
