// SPDX-License-Identifier: MPL-2.0

package wire

import (
	"encoding/json"
	"fmt"
)

// EventKind tags the variant of an Event.
type EventKind string

const (
	EventReady                   EventKind = "Ready"
	EventExited                  EventKind = "Exited"
	EventFailedToPrepare         EventKind = "FailedToPrepare"
	EventFailedToStartEntrypoint EventKind = "FailedToStartEntrypoint"
	EventFailedTimeout           EventKind = "FailedTimeout"
	// EventStdout is not part of the terminal-readiness taxonomy; it forwards
	// child stdout lines to the controller once the corresponding patterns
	// (if any) have stopped mattering to the readiness engine.
	EventStdout EventKind = "Stdout"
)

// Event is a tagged union of everything the supervisor streams to the
// controller over the framed TCP link.
type Event struct {
	Kind EventKind
	// ExitCode holds the child's exit status for EventExited; nil means the
	// child was signal-killed.
	ExitCode *int32
	// Message holds the diagnostic text for FailedToPrepare/FailedToStartEntrypoint.
	Message string
	// Line holds one line of child stdout for EventStdout.
	Line string
}

type eventWire struct {
	Kind EventKind       `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

// MarshalJSON implements json.Marshaler for the {kind,data} tagged encoding.
func (e Event) MarshalJSON() ([]byte, error) {
	var (
		data json.RawMessage
		err  error
	)
	switch e.Kind {
	case EventReady, EventFailedTimeout:
		// no payload
	case EventExited:
		data, err = json.Marshal(e.ExitCode)
	case EventFailedToPrepare, EventFailedToStartEntrypoint:
		data, err = json.Marshal(e.Message)
	case EventStdout:
		data, err = json.Marshal(e.Line)
	default:
		return nil, fmt.Errorf("wire: unknown event kind %q", e.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("wire: marshal %s data: %w", e.Kind, err)
	}
	return json.Marshal(eventWire{Kind: e.Kind, Data: data})
}

// UnmarshalJSON implements json.Unmarshaler for the {kind,data} tagged encoding.
func (e *Event) UnmarshalJSON(b []byte) error {
	var raw eventWire
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("wire: decode event envelope: %w", err)
	}
	e.Kind = raw.Kind
	switch raw.Kind {
	case EventReady, EventFailedTimeout:
		return nil
	case EventExited:
		if len(raw.Data) == 0 || string(raw.Data) == "null" {
			e.ExitCode = nil
			return nil
		}
		return json.Unmarshal(raw.Data, &e.ExitCode)
	case EventFailedToPrepare, EventFailedToStartEntrypoint:
		return json.Unmarshal(raw.Data, &e.Message)
	case EventStdout:
		return json.Unmarshal(raw.Data, &e.Line)
	default:
		return fmt.Errorf("wire: unknown event kind %q", raw.Kind)
	}
}

// Ready constructs the Ready event.
func Ready() Event { return Event{Kind: EventReady} }

// Exited constructs an Exited event. Pass nil for a signal-killed child.
func Exited(code *int32) Event { return Event{Kind: EventExited, ExitCode: code} }

// FailedToPrepare constructs a FailedToPrepare event.
func FailedToPrepare(msg string) Event { return Event{Kind: EventFailedToPrepare, Message: msg} }

// FailedToStartEntrypoint constructs a FailedToStartEntrypoint event.
func FailedToStartEntrypoint(msg string) Event {
	return Event{Kind: EventFailedToStartEntrypoint, Message: msg}
}

// FailedTimeout constructs the FailedTimeout event.
func FailedTimeout() Event { return Event{Kind: EventFailedTimeout} }

// StdoutLine constructs a Stdout forwarding event.
func StdoutLine(line string) Event { return Event{Kind: EventStdout, Line: line} }

// IsReadinessTerminal reports whether the event is one of the four mutually
// exclusive readiness-terminal outcomes (Ready, FailedTimeout,
// FailedToPrepare, FailedToStartEntrypoint).
func (e Event) IsReadinessTerminal() bool {
	switch e.Kind {
	case EventReady, EventFailedTimeout, EventFailedToPrepare, EventFailedToStartEntrypoint:
		return true
	default:
		return false
	}
}
