// SPDX-License-Identifier: MPL-2.0

// Package wire defines the JSON wire types exchanged between the controller
// and the in-container supervisor, and the length-prefixed framing used to
// stream events over the control connection.
package wire

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/dlctest/disposables/pkg/types"
)

// SetupEnvVar is the environment variable the controller uses to hand the
// supervisor its one-shot JSON configuration.
const SetupEnvVar = "DISPOSABLES_V1_SETUP"

// DefaultReadyTimeoutSeconds is used when SetupMessage.ReadyTimeoutS is nil.
const DefaultReadyTimeoutSeconds = 120

// WaitConditionKind tags the variant of a WaitCondition.
type WaitConditionKind string

const (
	WaitConditionPort    WaitConditionKind = "Port"
	WaitConditionStdout  WaitConditionKind = "Stdout"
	WaitConditionCommand WaitConditionKind = "Command"
)

// CommandWaitData is the payload of a Command-kind WaitCondition.
type CommandWaitData struct {
	Argv        []string `json:"argv"`
	IntervalMs  uint64   `json:"interval_msec"`
}

// WaitCondition is a tagged union describing one readiness check the
// supervisor must satisfy before emitting Ready. It round-trips through
// {"kind": ..., "data": ...} JSON.
type WaitCondition struct {
	Kind WaitConditionKind
	// Port holds the container-local TCP port when Kind == WaitConditionPort.
	Port types.ListenPort
	// Stdout holds the substring to match when Kind == WaitConditionStdout.
	Stdout string
	// Command holds the probe argv/interval when Kind == WaitConditionCommand.
	Command CommandWaitData
}

type waitConditionWire struct {
	Kind WaitConditionKind `json:"kind"`
	Data json.RawMessage   `json:"data"`
}

// MarshalJSON implements json.Marshaler for the {kind,data} tagged encoding.
func (w WaitCondition) MarshalJSON() ([]byte, error) {
	var data any
	switch w.Kind {
	case WaitConditionPort:
		data = w.Port
	case WaitConditionStdout:
		data = w.Stdout
	case WaitConditionCommand:
		data = w.Command
	default:
		return nil, fmt.Errorf("wire: unknown wait condition kind %q", w.Kind)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal %s data: %w", w.Kind, err)
	}
	return json.Marshal(waitConditionWire{Kind: w.Kind, Data: raw})
}

// UnmarshalJSON implements json.Unmarshaler for the {kind,data} tagged encoding.
func (w *WaitCondition) UnmarshalJSON(b []byte) error {
	var raw waitConditionWire
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("wire: decode wait condition envelope: %w", err)
	}
	w.Kind = raw.Kind
	switch raw.Kind {
	case WaitConditionPort:
		return json.Unmarshal(raw.Data, &w.Port)
	case WaitConditionStdout:
		return json.Unmarshal(raw.Data, &w.Stdout)
	case WaitConditionCommand:
		return json.Unmarshal(raw.Data, &w.Command)
	default:
		return fmt.Errorf("wire: unknown wait condition kind %q", raw.Kind)
	}
}

// NewPortWait builds a Port wait condition.
func NewPortWait(port types.ListenPort) WaitCondition {
	return WaitCondition{Kind: WaitConditionPort, Port: port}
}

// NewStdoutWait builds a Stdout wait condition.
func NewStdoutWait(substring string) WaitCondition {
	return WaitCondition{Kind: WaitConditionStdout, Stdout: substring}
}

// NewCommandWait builds a Command wait condition. intervalMs == 0 means the
// probe blocks once rather than polling.
func NewCommandWait(argv []string, intervalMs uint64) WaitCondition {
	return WaitCondition{Kind: WaitConditionCommand, Command: CommandWaitData{Argv: argv, IntervalMs: intervalMs}}
}

// FileEntry is one (path, content) pair to materialize inside the container
// before the child entrypoint is spawned.
type FileEntry struct {
	Path    string
	Content []byte
}

// MarshalJSON encodes FileEntry as a ["path", "base64"] tuple, matching the
// wire schema's files: [(path, base64_bytes)] shape.
func (f FileEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{f.Path, base64.StdEncoding.EncodeToString(f.Content)})
}

// UnmarshalJSON decodes a ["path", "base64"] tuple into a FileEntry.
func (f *FileEntry) UnmarshalJSON(b []byte) error {
	var tuple [2]string
	if err := json.Unmarshal(b, &tuple); err != nil {
		return fmt.Errorf("wire: decode file entry: %w", err)
	}
	content, err := base64.StdEncoding.DecodeString(tuple[1])
	if err != nil {
		return fmt.Errorf("wire: decode file entry base64 for %q: %w", tuple[0], err)
	}
	f.Path = tuple[0]
	f.Content = content
	return nil
}

// SetupMessage is the one-shot configuration the controller hands the
// supervisor via the DISPOSABLES_V1_SETUP environment variable.
type SetupMessage struct {
	Port          types.ListenPort `json:"port"`
	WaitFor       []WaitCondition  `json:"wait_for"`
	ReadyTimeoutS *uint64          `json:"ready_timeout_s,omitempty"`
	Files         []FileEntry      `json:"files"`
}

// ReadyTimeout returns the configured readiness deadline, substituting
// DefaultReadyTimeoutSeconds when unset.
func (s SetupMessage) ReadyTimeout() uint64 {
	if s.ReadyTimeoutS == nil {
		return DefaultReadyTimeoutSeconds
	}
	return *s.ReadyTimeoutS
}

// Encode serializes the SetupMessage for DISPOSABLES_V1_SETUP.
func (s SetupMessage) Encode() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("wire: encode setup message: %w", err)
	}
	return string(b), nil
}

// DecodeSetupMessage parses the DISPOSABLES_V1_SETUP environment value.
func DecodeSetupMessage(raw string) (SetupMessage, error) {
	var s SetupMessage
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return SetupMessage{}, fmt.Errorf("wire: decode setup message: %w", err)
	}
	return s, nil
}
