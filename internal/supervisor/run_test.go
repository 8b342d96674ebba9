// SPDX-License-Identifier: MPL-2.0

package supervisor

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlctest/disposables/internal/testutil"
	"github.com/dlctest/disposables/internal/wire"
)

func writeBlockerFile(path string) error {
	return os.WriteFile(path, []byte("not a directory"), 0o644)
}

// drainEvents collects the first n lifecycle events from sink, passing over
// forwarded child stdout lines (EventStdout).
func drainEvents(t *testing.T, sink *EventSink, n int, timeout time.Duration) []wire.Event {
	t.Helper()
	var got []wire.Event
	deadline := time.After(timeout)
	for len(got) < n {
		select {
		case ev := <-sink.queue:
			if ev.Kind == wire.EventStdout {
				continue
			}
			got = append(got, ev)
		case <-deadline:
			t.Fatalf("timed out waiting for %d events, got %d: %+v", n, len(got), got)
		}
	}
	return got
}

func TestRun_EmptyWaitForEmitsReadyThenExited(t *testing.T) {
	t.Parallel()

	sink := NewEventSink(nil)
	driver := NewDriver(nil)
	driver.Clock = testutil.NewFakeClock(time.Time{})

	setup := wire.SetupMessage{WaitFor: nil}
	// Run blocks on the capacity-1 sink while more than one event is
	// pending, so it runs alongside drainEvents.
	go Run(context.Background(), []string{"sh", "-c", "echo hi; exit 0"}, setup, driver, sink)

	events := drainEvents(t, sink, 2, 5*time.Second)
	kinds := []wire.EventKind{events[0].Kind, events[1].Kind}
	assert.Contains(t, kinds, wire.EventReady)
	assert.Contains(t, kinds, wire.EventExited)
}

func TestRun_SpawnFailureEmitsFailedToStartEntrypoint(t *testing.T) {
	t.Parallel()

	sink := NewEventSink(nil)
	driver := NewDriver(nil)

	setup := wire.SetupMessage{}
	Run(context.Background(), []string{"definitely-not-a-real-binary-xyz"}, setup, driver, sink)

	events := drainEvents(t, sink, 1, 5*time.Second)
	require.Equal(t, wire.EventFailedToStartEntrypoint, events[0].Kind)
}

func TestRun_FailedToPrepareSkipsSpawn(t *testing.T) {
	t.Parallel()

	sink := NewEventSink(nil)
	driver := NewDriver(nil)

	// A regular file can't be treated as a directory, so MkdirAll underneath
	// it deterministically fails regardless of the test's filesystem permissions.
	blocker := t.TempDir() + "/blocker-file"
	require.NoError(t, writeBlockerFile(blocker))

	setup := wire.SetupMessage{
		Files: []wire.FileEntry{{Path: blocker + "/subdir/file.txt", Content: []byte("x")}},
	}
	Run(context.Background(), []string{"true"}, setup, driver, sink)

	events := drainEvents(t, sink, 1, 5*time.Second)
	require.Equal(t, wire.EventFailedToPrepare, events[0].Kind)
}

func TestRun_EarlyExitReportsExitCodeWithoutReady(t *testing.T) {
	t.Parallel()

	sink := NewEventSink(nil)
	driver := NewDriver(nil)
	driver.Clock = testutil.NewFakeClock(time.Time{})

	setup := wire.SetupMessage{WaitFor: []wire.WaitCondition{wire.NewPortWait(9999)}}
	Run(context.Background(), []string{"sh", "-c", "echo one; exit 3"}, setup, driver, sink)

	events := drainEvents(t, sink, 1, 5*time.Second)
	require.Equal(t, wire.EventExited, events[0].Kind)
	require.NotNil(t, events[0].ExitCode)
	assert.EqualValues(t, 3, *events[0].ExitCode)
}
