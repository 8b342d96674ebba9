// SPDX-License-Identifier: MPL-2.0

package supervisor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dlctest/disposables/internal/readiness"
	"github.com/dlctest/disposables/internal/wire"
)

// Run drives one child process through its full lifecycle: materialize
// files, spawn, evaluate readiness concurrently with the deadline, and relay
// Ready/Exited/FailedTimeout/FailedToPrepare/FailedToStartEntrypoint events
// to sink as they are decided, per §4.2's startup sequence.
func Run(ctx context.Context, argv []string, setup wire.SetupMessage, driver *Driver, sink *EventSink) {
	if err := materializeFiles(setup.Files); err != nil {
		sink.Send(wire.FailedToPrepare(err.Error()))
		sink.Close()
		return
	}

	_, lines, childDone, err := driver.Spawn(ctx, argv)
	if err != nil {
		sink.Send(wire.FailedToStartEntrypoint(err.Error()))
		sink.Close()
		return
	}

	engine := readiness.NewEngine(setup.WaitFor, driver.Clock, nil, nil)

	readyCtx, cancelReady := context.WithCancel(ctx)
	defer cancelReady()

	var readyWG sync.WaitGroup
	readyWG.Add(1)
	go func() {
		defer readyWG.Done()
		forward := make(chan wire.Event, 16)
		go func() {
			for ev := range forward {
				sink.Send(ev)
			}
		}()
		FeedUntilReady(engine, lines, forward)
		close(forward)
	}()

	verdictCh := make(chan readiness.Verdict, 1)
	go func() {
		verdictCh <- engine.Run(readyCtx, setup.WaitFor, sanitizeTimeout(setup.ReadyTimeout()))
	}()

	exited, terminalSent := false, false
	for !exited || !terminalSent {
		select {
		case res, ok := <-childDone:
			childDone = nil
			exited = true
			if ok {
				sink.Send(wire.Exited(res.ExitCode))
				// The child already exited; abandon any pending satisfiers
				// per §4.1 "Cancellation".
				cancelReady()
			}
		case v, ok := <-verdictCh:
			verdictCh = nil
			terminalSent = true
			if !ok {
				break
			}
			switch v {
			case readiness.VerdictReady:
				sink.Send(wire.Ready())
			case readiness.VerdictTimeout:
				sink.Send(wire.FailedTimeout())
			case readiness.VerdictPending:
				// Readiness context was cancelled (child exit raced the
				// deadline) before a verdict formed; no readiness-terminal
				// event is emitted in that case — Exited already covers it.
			}
		}
	}

	readyWG.Wait()
	sink.Close()
}

// materializeFiles decodes and writes every (path, content) entry to disk
// before the child is spawned, per §4.2 step 2.
func materializeFiles(files []wire.FileEntry) error {
	for _, f := range files {
		if dir := filepath.Dir(f.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create directory for %s: %w", f.Path, err)
			}
		}
		if err := os.WriteFile(f.Path, f.Content, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f.Path, err)
		}
	}
	return nil
}
