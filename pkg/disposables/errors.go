// SPDX-License-Identifier: MPL-2.0

// Package disposables is the host-side controller library: it prepares the
// shared volume, launches a target image under the supervisor, resolves the
// published port mapping, connects to the supervisor's event stream, and
// guarantees the container is stopped when the returned handle is closed.
package disposables

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineDiscovery is wrapped by EngineDiscoveryError.
	ErrEngineDiscovery = errors.New("container engine discovery failed")
	// ErrImageUnavailable is wrapped by ImageUnavailableError.
	ErrImageUnavailable = errors.New("image not present and could not be pulled")
	// ErrImageMetadata is wrapped by ImageMetadataError.
	ErrImageMetadata = errors.New("image metadata could not be parsed")
	// ErrContainerStart is wrapped by ContainerStartError.
	ErrContainerStart = errors.New("container start failed")
	// ErrPortMappingLookup is wrapped by PortMappingLookupError.
	ErrPortMappingLookup = errors.New("port mapping lookup failed")
	// ErrPortMappingParse is wrapped by PortMappingParseError.
	ErrPortMappingParse = errors.New("port mapping parse failed")
	// ErrConnect is wrapped by ConnectError.
	ErrConnect = errors.New("could not connect to supervisor")
	// ErrPDURead is wrapped by PDUReadError.
	ErrPDURead = errors.New("event PDU read failed")
)

// EngineDiscoveryError is returned when no usable Docker/Podman engine could
// be found, or an explicit override failed its version check.
type EngineDiscoveryError struct {
	Requested string
	Cause     error
}

func (e *EngineDiscoveryError) Error() string {
	if e.Requested != "" {
		return fmt.Sprintf("container engine %q unavailable: %v", e.Requested, e.Cause)
	}
	return fmt.Sprintf("no container engine available: %v", e.Cause)
}
func (e *EngineDiscoveryError) Unwrap() error { return ErrEngineDiscovery }

// ImageUnavailableError is returned when an image is neither present locally
// nor pullable.
type ImageUnavailableError struct {
	Image string
	Cause error
}

func (e *ImageUnavailableError) Error() string {
	return fmt.Sprintf("image %q unavailable: %v", e.Image, e.Cause)
}
func (e *ImageUnavailableError) Unwrap() error { return ErrImageUnavailable }

// ImageMetadataError is returned when an image's Entrypoint/Cmd could not be inspected.
type ImageMetadataError struct {
	Image string
	Cause error
}

func (e *ImageMetadataError) Error() string {
	return fmt.Sprintf("could not read metadata for image %q: %v", e.Image, e.Cause)
}
func (e *ImageMetadataError) Unwrap() error { return ErrImageMetadata }

// ContainerStartError is returned when starting the container failed.
// RetriedSeed reports whether the single retry after volume seeding (§4.6)
// was made; it is false when the seeding step itself failed.
type ContainerStartError struct {
	Image      string
	RetriedSeed bool
	Cause      error
}

func (e *ContainerStartError) Error() string {
	return fmt.Sprintf("start container from image %q failed (retried after seeding: %v): %v", e.Image, e.RetriedSeed, e.Cause)
}
func (e *ContainerStartError) Unwrap() error { return ErrContainerStart }

// PortMappingLookupError is returned when `<engine> port` fails for a given
// container port.
type PortMappingLookupError struct {
	ContainerID string
	Port        int
	Cause       error
}

func (e *PortMappingLookupError) Error() string {
	return fmt.Sprintf("lookup port mapping for %s/%d: %v", e.ContainerID, e.Port, e.Cause)
}
func (e *PortMappingLookupError) Unwrap() error { return ErrPortMappingLookup }

// PortMappingParseError is returned when a container port does not form a
// valid port spec; Endpoint holds that port as text. The endpoints reported
// by `<engine> port` are not parsed.
type PortMappingParseError struct {
	Endpoint string
	Cause    error
}

func (e *PortMappingParseError) Error() string {
	return fmt.Sprintf("parse port mapping endpoint %q: %v", e.Endpoint, e.Cause)
}
func (e *PortMappingParseError) Unwrap() error { return ErrPortMappingParse }

// ConnectAttempt records one failed endpoint dial, for ConnectError's report.
type ConnectAttempt struct {
	Endpoint string
	Cause    error
}

// ConnectError is returned when every candidate endpoint for the supervisor
// port failed to accept a connection.
type ConnectError struct {
	Attempts []ConnectAttempt
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("could not connect to supervisor on any of %d candidate endpoint(s): %v", len(e.Attempts), e.Attempts)
}
func (e *ConnectError) Unwrap() error { return ErrConnect }

// PDUReadError describes a failed read of a framed event PDU, split into the
// I/O-vs-deserialization distinction. No function in this package returns
// it: Container's event reader closes the Events channel on the first failed
// read without reporting the cause.
type PDUReadError struct {
	// IsDeserialization is true when the frame's length-prefixed bytes were
	// read successfully but failed to decode as JSON.
	IsDeserialization bool
	Cause             error
}

func (e *PDUReadError) Error() string {
	if e.IsDeserialization {
		return fmt.Sprintf("event PDU deserialization failed: %v", e.Cause)
	}
	return fmt.Sprintf("event PDU I/O failed: %v", e.Cause)
}
func (e *PDUReadError) Unwrap() error { return ErrPDURead }
