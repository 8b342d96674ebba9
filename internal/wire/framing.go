// SPDX-License-Identifier: MPL-2.0

package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// MaxFrameBytes bounds a single PDU payload, guarding the controller against
// a misbehaving or malicious supervisor claiming an unbounded length prefix.
const MaxFrameBytes = 16 << 20 // 16 MiB

// WriteEvent encodes ev as JSON and writes it to w as a length-prefixed PDU:
// a 4-byte big-endian length followed by that many bytes of JSON.
func WriteEvent(w io.Writer, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("wire: marshal event: %w", err)
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("wire: write frame length: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("wire: write frame payload: %w", err)
	}
	return nil
}

// ReadEvent reads one length-prefixed PDU from r and decodes it into an Event.
func ReadEvent(r io.Reader) (Event, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Event{}, fmt.Errorf("wire: read frame length: %w", err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > MaxFrameBytes {
		return Event{}, fmt.Errorf("wire: frame length %d exceeds maximum %d", n, MaxFrameBytes)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Event{}, fmt.Errorf("wire: read frame payload: %w", err)
	}
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("wire: decode frame payload: %w", err)
	}
	return ev, nil
}
