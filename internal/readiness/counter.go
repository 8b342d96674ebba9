// SPDX-License-Identifier: MPL-2.0

// Package readiness implements the supervisor's readiness engine: a
// race-free terminal-verdict latch over a set of concurrent satisfiers, each
// responsible for one or more wait-condition list-positions.
//
// The original design runs this on a single-threaded cooperative scheduler
// where no atomics are strictly necessary; this port instead runs satisfiers
// as goroutines and makes the counter's first-writer-wins transition atomic
// so the same invariant — at most one terminal verdict — holds under real
// concurrency.
package readiness

import "sync/atomic"

// Verdict is the terminal outcome of a readiness run.
type Verdict int

const (
	// VerdictPending means neither Ready nor FailedTimeout has fired yet.
	VerdictPending Verdict = iota
	VerdictReady
	VerdictTimeout
)

// Counter is the readiness engine's single shared mutator: a count of
// not-yet-satisfied wait-condition list-positions, with a first-writer-wins
// latch over the terminal transition.
//
// decided transitions 0 -> 1 exactly once, guarded by atomic.CompareAndSwap;
// whichever caller wins that transition is the one whose verdict is
// authoritative (Ready if it came from Decrement reaching zero, Timeout if
// it came from ForceToZero).
type Counter struct {
	remaining atomic.Int64
	decided   atomic.Bool
	verdict   atomic.Int32
	done      chan struct{}
}

// NewCounter creates a Counter initialized to n pending list-positions. n may
// be zero, in which case the Counter is already at its Ready transition and
// Done() is closed before any caller observes it.
func NewCounter(n int) *Counter {
	c := &Counter{done: make(chan struct{})}
	c.remaining.Store(int64(n))
	if n == 0 {
		c.settle(VerdictReady)
	}
	return c
}

// Decrement accounts for k satisfied list-positions. When the count reaches
// zero, this call — and only this call — transitions the Counter to
// VerdictReady. Calls after the Counter is already decided are no-ops.
func (c *Counter) Decrement(k int) {
	if c.decided.Load() {
		return
	}
	remaining := c.remaining.Add(-int64(k))
	if remaining <= 0 {
		c.settle(VerdictReady)
	}
}

// ForceToZero is invoked by the deadline task. If the Counter had not yet
// reached zero, this transitions it to VerdictTimeout. A no-op if the
// Counter is already decided (Ready already won the race).
func (c *Counter) ForceToZero() {
	if c.decided.Load() {
		return
	}
	if c.remaining.Load() > 0 {
		c.settle(VerdictTimeout)
	}
}

// settle performs the first-writer-wins transition. Only one caller across
// Decrement/ForceToZero will ever observe decided.CompareAndSwap succeed.
func (c *Counter) settle(v Verdict) {
	if c.decided.CompareAndSwap(false, true) {
		c.verdict.Store(int32(v))
		close(c.done)
	}
}

// Done returns a channel that is closed exactly once, when the Counter
// reaches its terminal verdict.
func (c *Counter) Done() <-chan struct{} { return c.done }

// Verdict returns the terminal verdict. Only meaningful after Done() is closed.
func (c *Counter) Verdict() Verdict { return Verdict(c.verdict.Load()) }

// Remaining returns the current count of unsatisfied list-positions, mostly
// useful for tests and diagnostics.
func (c *Counter) Remaining() int64 { return c.remaining.Load() }
