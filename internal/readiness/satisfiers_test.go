// SPDX-License-Identifier: MPL-2.0

package readiness

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlctest/disposables/internal/testutil"
)

// fakeConn is the minimal net.Conn needed by a successful dial.
type fakeConn struct{ net.Conn }

func (fakeConn) Close() error { return nil }

func TestRunPortSatisfier_FirstSuccessDecrementsOnceAndCancelsSibling(t *testing.T) {
	t.Parallel()

	clock := testutil.NewFakeClock(time.Time{})
	var calls int64
	dial := func(ctx context.Context, network, address string) (net.Conn, error) {
		atomic.AddInt64(&calls, 1)
		if network == "tcp4" {
			return fakeConn{}, nil
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}

	counter := NewCounter(1)
	RunPortSatisfier(context.Background(), clock, dial, 8080, time.Millisecond, counter)

	<-counter.Done()
	assert.Equal(t, VerdictReady, counter.Verdict())
	assert.Equal(t, int64(0), counter.Remaining())
}

func TestRunCommandSatisfier_RunOnceGivesUpSilentlyOnFailure(t *testing.T) {
	t.Parallel()

	clock := testutil.NewFakeClock(time.Time{})
	run := func(ctx context.Context, argv []string) (bool, error) { return false, nil }
	counter := NewCounter(1)

	done := make(chan struct{})
	go func() {
		RunCommandSatisfier(context.Background(), clock, run, CommandProbe{Argv: []string{"false"}, IntervalMs: 0}, counter)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run-once probe should return promptly on failure")
	}
	assert.Equal(t, int64(1), counter.Remaining(), "interval_ms == 0 gives up silently, never decrements")
}

func TestRunCommandSatisfier_PollsUntilSuccess(t *testing.T) {
	t.Parallel()

	clock := testutil.NewFakeClock(time.Time{})
	var attempts int64
	run := func(ctx context.Context, argv []string) (bool, error) {
		n := atomic.AddInt64(&attempts, 1)
		return n >= 3, nil
	}
	counter := NewCounter(1)

	done := make(chan struct{})
	go func() {
		RunCommandSatisfier(context.Background(), clock, run, CommandProbe{Argv: []string{"pg_isready"}, IntervalMs: 500}, counter)
		close(done)
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt64(&attempts) == 1 }, time.Second, time.Millisecond)
	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return atomic.LoadInt64(&attempts) == 2 }, time.Second, time.Millisecond)
	clock.Advance(time.Second)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("satisfier should finish once the probe succeeds")
	}
	assert.Equal(t, int64(0), counter.Remaining())
}

func TestStdoutMatcher_SingleLineSatisfiesMultiplePendingPatterns(t *testing.T) {
	t.Parallel()

	m := NewStdoutMatcher([]string{"ready", "listening", "ready"})
	counter := NewCounter(3)

	m.Feed("server is ready and listening now", counter)

	<-counter.Done()
	assert.Equal(t, VerdictReady, counter.Verdict())
}

func TestStdoutMatcher_OnlyMatchesNotYetSatisfiedPatterns(t *testing.T) {
	t.Parallel()

	m := NewStdoutMatcher([]string{"ready", "boot"})
	counter := NewCounter(2)

	m.Feed("ready", counter)
	assert.Equal(t, int64(1), counter.Remaining())

	// A second "ready" line must not re-satisfy the already-consumed position.
	m.Feed("ready again", counter)
	assert.Equal(t, int64(1), counter.Remaining())

	m.Feed("boot complete", counter)
	assert.Equal(t, int64(0), counter.Remaining())
}

func TestDefaultCommandRun_ReportsExitStatus(t *testing.T) {
	t.Parallel()

	ok, err := DefaultCommandRun(context.Background(), []string{"true"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = DefaultCommandRun(context.Background(), []string{"false"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = DefaultCommandRun(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDefaultCommandRun_PropagatesSpawnFailure(t *testing.T) {
	t.Parallel()

	_, err := DefaultCommandRun(context.Background(), []string{"definitely-not-a-real-binary-xyz"})
	assert.Error(t, err)
	var target error
	_ = errors.As(err, &target)
}
