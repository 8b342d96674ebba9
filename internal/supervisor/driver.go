// SPDX-License-Identifier: MPL-2.0

// Package supervisor implements the in-container process ("DLC") that
// replaces an image's entrypoint: it spawns the original entrypoint as a
// child, evaluates readiness conditions concurrently, and streams lifecycle
// events to the controller over a framed TCP link.
package supervisor

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dlctest/disposables/internal/readiness"
	"github.com/dlctest/disposables/internal/testutil"
	"github.com/dlctest/disposables/internal/wire"
)

// Driver spawns the child entrypoint, feeds its stdout into the readiness
// engine's stdout matcher, forwards drained lines as events, and watches for
// child exit.
type Driver struct {
	Logger *log.Logger
	Clock  testutil.Clock
}

// NewDriver creates a Driver with the given logger, defaulting to a
// stderr-prefixed logger matching the supervisor's in-container diagnostics.
func NewDriver(logger *log.Logger) *Driver {
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "dlc"})
	}
	return &Driver{Logger: logger, Clock: testutil.RealClock{}}
}

// RunResult carries the outcome of driving one child process through to exit.
type RunResult struct {
	ExitCode *int32 // nil if signal-killed
}

// Spawn starts argv as a child process with piped stdout/stderr. It returns
// the running *exec.Cmd plus channels the caller selects on: readiness lines
// (trimmed stdout, to feed the readiness engine and, once drained, forward as
// events) and a done channel closed with the exit result once the child and
// both pipe readers have finished.
func (d *Driver) Spawn(ctx context.Context, argv []string) (cmd *exec.Cmd, stdoutLines <-chan string, done <-chan RunResult, spawnErr error) {
	cmd = exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Cancel = func() error { return cmd.Process.Kill() }

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, nil, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, nil, err
	}

	lines := make(chan string, 16)
	doneCh := make(chan RunResult, 1)

	var wg sync.WaitGroup
	wg.Add(2)
	go d.drainLines(stdoutPipe, lines, &wg)
	go d.drainDiscard(stderrPipe, &wg)

	go func() {
		wg.Wait()
		close(lines)
		waitErr := cmd.Wait()
		doneCh <- RunResult{ExitCode: exitCodeOf(waitErr, cmd)}
		close(doneCh)
	}()

	return cmd, lines, doneCh, nil
}

func (d *Driver) drainLines(r io.Reader, out chan<- string, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		out <- strings.TrimRight(scanner.Text(), "\r\n")
	}
}

func (d *Driver) drainDiscard(r io.Reader, wg *sync.WaitGroup) {
	defer wg.Done()
	_, _ = io.Copy(io.Discard, r)
}

// exitCodeOf translates cmd.Wait()'s error into the (code, nil-if-signalled)
// shape used by the Exited event, per §3's "signal-kill surfaces as null code".
func exitCodeOf(waitErr error, cmd *exec.Cmd) *int32 {
	if waitErr == nil {
		code := int32(0)
		return &code
	}
	if state := cmd.ProcessState; state != nil {
		if state.Exited() {
			code := int32(state.ExitCode())
			return &code
		}
	}
	return nil
}

// FeedUntilReady pumps stdout lines into the readiness engine's matcher until
// the engine settles or lines closes (child exited). Once the engine has
// settled it keeps draining lines, forwarding each one as a Stdout event,
// and returns when lines closes (§4.1 "Stdout": "continues draining
// stdout... forwards lines as Stdout events").
func FeedUntilReady(engine *readiness.Engine, lines <-chan string, forward chan<- wire.Event) {
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			engine.FeedStdout(line)
		case <-engine.Counter().Done():
			drainRemaining(lines, forward)
			return
		}
	}
}

func drainRemaining(lines <-chan string, forward chan<- wire.Event) {
	for line := range lines {
		forward <- wire.StdoutLine(line)
	}
}

// sanitizeTimeout converts a ready_timeout_s value to a Duration. A zero
// value means "timeout immediately" rather than "wait forever".
func sanitizeTimeout(seconds uint64) time.Duration {
	return time.Duration(seconds) * time.Second
}
