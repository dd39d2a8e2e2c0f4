package runner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabrik-dev/fabrik/pkg/adapter"
	"github.com/fabrik-dev/fabrik/pkg/scenario"
)

type stubAdapter struct {
	resetCount int32
	closed     int32
	reply      string
	err        error
}

func (s *stubAdapter) Send(ctx context.Context, message string, sendCtx adapter.SendContext) (adapter.AgentResponse, error) {
	if s.err != nil {
		return adapter.AgentResponse{}, s.err
	}
	return adapter.AgentResponse{Text: s.reply, LatencyMs: 5}, nil
}

func (s *stubAdapter) Reset(ctx context.Context) error {
	atomic.AddInt32(&s.resetCount, 1)
	return nil
}

func (s *stubAdapter) Close() error {
	atomic.AddInt32(&s.closed, 1)
	return nil
}

func newAdapterFactory(reply string, err error) func() (adapter.Adapter, error) {
	return func() (adapter.Adapter, error) {
		return &stubAdapter{reply: reply, err: err}, nil
	}
}

func TestRunner_ZeroAssertionScenarioNeverPasses(t *testing.T) {
	r := New(Options{NewAdapter: newAdapterFactory("hi", nil)})
	s := scenario.Scenario{
		Name: "silent",
		Fn: func(ctx context.Context, rc *scenario.RunContext) error {
			_, err := rc.Agent.Send(ctx, "hello")
			return err
		},
	}
	results, err := r.Run(context.Background(), []scenario.Scenario{s})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Equal(t, 1.0, results[0].Score)
	assert.Empty(t, results[0].Assertions)
}

func TestRunner_AllAssertionsPassingPasses(t *testing.T) {
	r := New(Options{NewAdapter: newAdapterFactory("hello there", nil)})
	s := scenario.Scenario{
		Name: "happy",
		Fn: func(ctx context.Context, rc *scenario.RunContext) error {
			resp, err := rc.Agent.Send(ctx, "hi")
			if err != nil {
				return err
			}
			rc.Assert.Contains(resp.Text, "hello")
			return nil
		},
	}
	results, err := r.Run(context.Background(), []scenario.Scenario{s})
	require.NoError(t, err)
	assert.True(t, results[0].Passed)
	assert.Equal(t, 1.0, results[0].Score)
	assert.Len(t, results[0].Turns, 2)
}

func TestRunner_OneFailingAssertionFailsScenario(t *testing.T) {
	r := New(Options{NewAdapter: newAdapterFactory("goodbye", nil)})
	s := scenario.Scenario{
		Name: "fails",
		Fn: func(ctx context.Context, rc *scenario.RunContext) error {
			resp, err := rc.Agent.Send(ctx, "hi")
			if err != nil {
				return err
			}
			rc.Assert.Contains(resp.Text, "hello")
			return nil
		},
	}
	results, err := r.Run(context.Background(), []scenario.Scenario{s})
	require.NoError(t, err)
	assert.False(t, results[0].Passed)
	assert.Equal(t, 0.0, results[0].Score)
}

func TestRunner_SendErrorRecordsError(t *testing.T) {
	r := New(Options{NewAdapter: newAdapterFactory("", errors.New("transport down"))})
	s := scenario.Scenario{
		Name: "errored",
		Fn: func(ctx context.Context, rc *scenario.RunContext) error {
			_, err := rc.Agent.Send(ctx, "hi")
			return err
		},
	}
	results, err := r.Run(context.Background(), []scenario.Scenario{s})
	require.NoError(t, err)
	assert.False(t, results[0].Passed)
	assert.Contains(t, results[0].Error, "transport down")
}

func TestRunner_TimeoutRecordsError(t *testing.T) {
	r := New(Options{NewAdapter: newAdapterFactory("hi", nil), Timeout: 10 * time.Millisecond})
	s := scenario.Scenario{
		Name: "slow",
		Fn: func(ctx context.Context, rc *scenario.RunContext) error {
			select {
			case <-time.After(time.Second):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
	results, err := r.Run(context.Background(), []scenario.Scenario{s})
	require.NoError(t, err)
	assert.False(t, results[0].Passed)
	assert.Contains(t, results[0].Error, "timed out")
}

func TestRunner_RetryResetsAdapterAndPersistsLastAttempt(t *testing.T) {
	var calls int32
	factory := func() (adapter.Adapter, error) {
		return &flakyAdapter{calls: &calls}, nil
	}
	r := New(Options{NewAdapter: factory, Retries: 2})
	s := scenario.Scenario{
		Name: "flaky",
		Fn: func(ctx context.Context, rc *scenario.RunContext) error {
			resp, err := rc.Agent.Send(ctx, "hi")
			if err != nil {
				return err
			}
			rc.Assert.Contains(resp.Text, "success")
			return nil
		},
	}
	results, err := r.Run(context.Background(), []scenario.Scenario{s})
	require.NoError(t, err)
	assert.True(t, results[0].Passed)
	assert.Equal(t, 3, results[0].Attempts)
}

// flakyAdapter fails the first two sends then succeeds, to exercise retry.
type flakyAdapter struct {
	calls *int32
}

func (f *flakyAdapter) Send(ctx context.Context, message string, sendCtx adapter.SendContext) (adapter.AgentResponse, error) {
	n := atomic.AddInt32(f.calls, 1)
	if n < 3 {
		return adapter.AgentResponse{Text: "fail"}, nil
	}
	return adapter.AgentResponse{Text: "success"}, nil
}
func (f *flakyAdapter) Reset(ctx context.Context) error { return nil }
func (f *flakyAdapter) Close() error                    { return nil }

func TestRunner_PreservesInputOrderUnderParallelism(t *testing.T) {
	r := New(Options{NewAdapter: newAdapterFactory("hello", nil), Parallelism: 4})
	scenarios := make([]scenario.Scenario, 8)
	for i := range scenarios {
		name := string(rune('a' + i))
		scenarios[i] = scenario.Scenario{
			Name: name,
			Fn: func(ctx context.Context, rc *scenario.RunContext) error {
				resp, err := rc.Agent.Send(ctx, "hi")
				if err != nil {
					return err
				}
				rc.Assert.Contains(resp.Text, "hello")
				return nil
			},
		}
	}
	results, err := r.Run(context.Background(), scenarios)
	require.NoError(t, err)
	require.Len(t, results, 8)
	for i, res := range results {
		assert.Equal(t, scenarios[i].Name, res.Scenario)
	}
}
