// SPDX-License-Identifier: MPL-2.0

package readiness

import (
	"context"
	"time"

	"github.com/dlctest/disposables/internal/testutil"
	"github.com/dlctest/disposables/internal/wire"
)

// Engine evaluates a SetupMessage's wait_for list against a deadline and
// produces exactly one terminal Verdict, per §4.1.
type Engine struct {
	Clock   testutil.Clock
	Dial    DialFunc
	RunCmd  CommandRunFunc
	Matcher *StdoutMatcher
	counter *Counter
}

// NewEngine builds an Engine for the given wait_for list. The returned
// engine's StdoutMatcher must be fed every child stdout line for Stdout
// conditions to resolve.
func NewEngine(waitFor []wire.WaitCondition, clock testutil.Clock, dial DialFunc, runCmd CommandRunFunc) *Engine {
	if clock == nil {
		clock = testutil.RealClock{}
	}
	if dial == nil {
		dial = DefaultDial
	}
	if runCmd == nil {
		runCmd = DefaultCommandRun
	}

	var stdoutPatterns []string
	for _, wc := range waitFor {
		if wc.Kind == wire.WaitConditionStdout {
			stdoutPatterns = append(stdoutPatterns, wc.Stdout)
		}
	}

	return &Engine{
		Clock:   clock,
		Dial:    dial,
		RunCmd:  runCmd,
		Matcher: NewStdoutMatcher(stdoutPatterns),
		counter: NewCounter(len(waitFor)),
	}
}

// Counter exposes the underlying readiness counter, e.g. for the deadline
// timer and the child-exit watcher to observe Done()/settle state.
func (e *Engine) Counter() *Counter { return e.counter }

// FeedStdout routes one trimmed stdout line to the stdout satisfier.
func (e *Engine) FeedStdout(line string) { e.Matcher.Feed(line, e.counter) }

// Run launches one goroutine per non-Stdout wait-condition satisfier and a
// deadline timer, then blocks until the counter reaches a terminal verdict
// or ctx is cancelled (e.g. because the child exited, per §4.1
// "Cancellation"). Stdout conditions resolve via FeedStdout as lines arrive
// from the process driver, not from a goroutine spawned here.
func (e *Engine) Run(ctx context.Context, waitFor []wire.WaitCondition, readyTimeout time.Duration) Verdict {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, wc := range waitFor {
		switch wc.Kind {
		case wire.WaitConditionPort:
			go RunPortSatisfier(runCtx, e.Clock, e.Dial, int(wc.Port), DefaultPortCheckInterval, e.counter)
		case wire.WaitConditionCommand:
			go RunCommandSatisfier(runCtx, e.Clock, e.RunCmd, CommandProbe{Argv: wc.Command.Argv, IntervalMs: wc.Command.IntervalMs}, e.counter)
		case wire.WaitConditionStdout:
			// handled via FeedStdout
		}
	}

	go func() {
		select {
		case <-runCtx.Done():
		case <-e.Clock.After(readyTimeout):
			e.counter.ForceToZero()
		}
	}()

	select {
	case <-e.counter.Done():
		return e.counter.Verdict()
	case <-ctx.Done():
		return VerdictPending
	}
}
