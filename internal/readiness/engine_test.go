// SPDX-License-Identifier: MPL-2.0

package readiness

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dlctest/disposables/internal/testutil"
	"github.com/dlctest/disposables/internal/wire"
)

func TestEngine_EmptyWaitForIsImmediatelyReady(t *testing.T) {
	t.Parallel()

	clock := testutil.NewFakeClock(time.Time{})
	e := NewEngine(nil, clock, nil, nil)
	verdict := e.Run(context.Background(), nil, time.Minute)
	assert.Equal(t, VerdictReady, verdict)
}

func TestEngine_TimeoutWhenConditionsNeverSatisfy(t *testing.T) {
	t.Parallel()

	clock := testutil.NewFakeClock(time.Time{})
	dial := func(ctx context.Context, network, address string) (net.Conn, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	e := NewEngine([]wire.WaitCondition{wire.NewPortWait(9999)}, clock, dial, nil)

	resultCh := make(chan Verdict, 1)
	go func() { resultCh <- e.Run(context.Background(), []wire.WaitCondition{wire.NewPortWait(9999)}, time.Second) }()

	// Let the deadline goroutine register its After() waiter before advancing.
	time.Sleep(10 * time.Millisecond)
	clock.Advance(2 * time.Second)

	select {
	case v := <-resultCh:
		assert.Equal(t, VerdictTimeout, v)
	case <-time.After(time.Second):
		t.Fatal("engine did not settle after deadline advanced")
	}
}

func TestEngine_ReadyOnceAllConditionsSatisfied(t *testing.T) {
	t.Parallel()

	clock := testutil.NewFakeClock(time.Time{})
	dial := func(ctx context.Context, network, address string) (net.Conn, error) {
		return fakeConn{}, nil
	}
	runCmd := func(ctx context.Context, argv []string) (bool, error) { return true, nil }

	waitFor := []wire.WaitCondition{
		wire.NewPortWait(80),
		wire.NewStdoutWait("booted"),
		wire.NewCommandWait([]string{"pg_isready"}, 0),
	}
	e := NewEngine(waitFor, clock, dial, runCmd)

	resultCh := make(chan Verdict, 1)
	go func() { resultCh <- e.Run(context.Background(), waitFor, time.Minute) }()

	e.FeedStdout("server booted successfully")

	select {
	case v := <-resultCh:
		assert.Equal(t, VerdictReady, v)
	case <-time.After(time.Second):
		t.Fatal("engine did not reach Ready")
	}
}
