// SPDX-License-Identifier: MPL-2.0

package supervisor

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dlctest/disposables/internal/wire"
	"github.com/dlctest/disposables/pkg/types"
)

// DefaultClientTimeout bounds how long the supervisor waits for the
// controller to connect before giving up, per §4.3.
const DefaultClientTimeout = 15 * time.Second

// EventSink accepts exactly one controller connection and streams events to
// it over the length-prefixed framing, with a capacity-1 internal queue so a
// slow writer applies backpressure to producers without blocking them
// indefinitely (§5 "Shared resources").
type EventSink struct {
	Logger *log.Logger
	queue  chan wire.Event
	closed chan struct{}
}

// NewEventSink creates an EventSink with the capacity-1 queue specified in §9.
func NewEventSink(logger *log.Logger) *EventSink {
	return &EventSink{Logger: logger, queue: make(chan wire.Event, 1), closed: make(chan struct{})}
}

// Send enqueues an event for delivery. Safe to call from multiple producer
// goroutines; blocks while the queue is full, i.e. while the writer is busy.
func (s *EventSink) Send(ev wire.Event) {
	select {
	case s.queue <- ev:
	case <-s.closed:
	}
}

// Close stops accepting further sends. Safe to call more than once.
func (s *EventSink) Close() {
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
}

// ListenAndServe binds [::]:port, accepts exactly one connection within
// DefaultClientTimeout, then streams queued events to it until Close() is
// called, the connection errors, or the controller sends any byte (treated
// as a shutdown signal per §4.3's "Back-channel").
func (s *EventSink) ListenAndServe(ctx context.Context, port types.ListenPort) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", fmt.Sprintf("[::]:%s", port.String()))
	if err != nil {
		return fmt.Errorf("supervisor: listen on port %s: %w", port, err)
	}
	defer ln.Close()

	type acceptResult struct {
		conn net.Conn
		err  error
	}
	acceptCh := make(chan acceptResult, 1)
	go func() {
		conn, err := ln.Accept()
		acceptCh <- acceptResult{conn, err}
	}()

	var conn net.Conn
	select {
	case res := <-acceptCh:
		if res.err != nil {
			return fmt.Errorf("supervisor: accept controller connection: %w", res.err)
		}
		conn = res.conn
	case <-time.After(DefaultClientTimeout):
		return fmt.Errorf("supervisor: no controller connected within %s", DefaultClientTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
	defer conn.Close()

	backchannel := make(chan struct{})
	go func() {
		buf := make([]byte, 1)
		if _, err := conn.Read(buf); err == nil {
			close(backchannel)
		}
	}()

	for {
		select {
		case ev := <-s.queue:
			if err := wire.WriteEvent(conn, ev); err != nil {
				return fmt.Errorf("supervisor: write event: %w", err)
			}
		case <-backchannel:
			return nil
		case <-s.closed:
			s.drainQueue(conn)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// drainQueue flushes any events queued before Close() was observed, so a
// terminal event racing with shutdown is not silently dropped.
func (s *EventSink) drainQueue(conn net.Conn) {
	for {
		select {
		case ev := <-s.queue:
			_ = wire.WriteEvent(conn, ev)
		default:
			return
		}
	}
}
