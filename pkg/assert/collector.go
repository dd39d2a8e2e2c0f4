// Package assert implements the assertion kernel (§4.6): a family of
// local, synchronous checks and a family of LLM-backed, asynchronous
// checks, both recording into a shared Collector. No assertion — local or
// LLM-backed — ever panics out to the scenario: every method recovers
// internally and records a failed AssertionResult instead.
package assert

import (
	"sync"

	"github.com/fabrik-dev/fabrik/pkg/gateway"
	"github.com/fabrik-dev/fabrik/pkg/profile"
	"github.com/fabrik-dev/fabrik/pkg/scenario"
)

// Collector is a fresh-per-scenario sink for AssertionResults. Local
// assertions append synchronously in source order; LLM-backed assertions
// are launched on their own goroutine and tracked by an internal
// WaitGroup so Drain can block until every in-flight judge call has
// recorded its result, regardless of completion order (§5).
type Collector struct {
	gw      *gateway.Gateway
	profile *profile.AgentProfile

	mu      sync.Mutex
	results []scenario.AssertionResult

	wg sync.WaitGroup
}

var _ scenario.Asserter = (*Collector)(nil)

// NewCollector builds a Collector bound to gw for LLM-backed assertions and
// prof (may be nil) for the optional profile-context prelude in judge
// prompts.
func NewCollector(gw *gateway.Gateway, prof *profile.AgentProfile) *Collector {
	return &Collector{gw: gw, profile: prof}
}

// record appends one result under the collector's mutex. Safe to call from
// any goroutine.
func (c *Collector) record(r scenario.AssertionResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

// goAsync launches fn on its own goroutine, tracked by the collector's
// WaitGroup, and recovers any panic inside fn into a failed
// AssertionResult rather than letting it crash the scenario. This is the
// "tracked async assertion" the runner must Drain before collecting
// results — see §4.5 step 5 and §5's ordering guarantees.
func (c *Collector) goAsync(assertionType string, fn func() scenario.AssertionResult) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				c.record(scenario.AssertionResult{
					Type:   assertionType,
					Passed: false,
					Error:  panicMessage(r),
				})
			}
		}()
		c.record(fn())
	}()
}

func panicMessage(r any) string {
	if err, ok := r.(error); ok {
		return err.Error()
	}
	return "assert: recovered panic: " + toString(r)
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return "non-string panic value"
}

// Drain blocks until every tracked LLM-backed assertion has recorded its
// result. Must be called after the scenario function returns, throws, or
// times out, before Results is read (§4.5 step 5).
func (c *Collector) Drain() {
	c.wg.Wait()
}

// Results returns a snapshot of every recorded assertion, in recording
// order. Local assertions appear in source order; LLM-backed assertions
// appear in completion order, which is why Drain must run first.
func (c *Collector) Results() []scenario.AssertionResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]scenario.AssertionResult, len(c.results))
	copy(out, c.results)
	return out
}

// recoverLocal wraps a synchronous local assertion body so a panic inside
// it (e.g. a malformed regex in Matches) is caught and recorded as a
// failure instead of crashing the scenario, matching the same no-throw
// guarantee §4.6 gives LLM-backed assertions.
func recoverLocal(assertionType string, fn func() scenario.AssertionResult) (result scenario.AssertionResult) {
	defer func() {
		if r := recover(); r != nil {
			result = scenario.AssertionResult{
				Type:   assertionType,
				Passed: false,
				Error:  panicMessage(r),
			}
		}
	}()
	return fn()
}
