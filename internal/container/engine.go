// SPDX-License-Identifier: MPL-2.0

// Package container provides a CLI-subprocess abstraction over Docker and
// Podman, used by the controller to run disposable test containers and to
// seed the supervisor binary into named volumes.
package container

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dlctest/disposables/pkg/types"
)

// Container engine type constants.
const (
	EngineTypePodman EngineType = "podman"
	EngineTypeDocker EngineType = "docker"

	// EngineEnvVar overrides engine auto-detection when set to "docker" or "podman".
	EngineEnvVar = "DISPOSABLES_ENGINE"
)

type (
	// EngineType identifies the container engine type.
	EngineType string

	// Engine is implemented by the CLI-subprocess wrappers for Docker and
	// Podman. Every method shells out to the engine binary; none of them
	// talk to a daemon API directly.
	Engine interface {
		// Name returns the engine name ("docker" or "podman").
		Name() string
		// Available reports whether the engine binary is on PATH and responds to a version probe.
		Available() bool
		// Version returns the engine's reported version string.
		Version(ctx context.Context) (string, error)

		// Build builds an image from a Dockerfile.
		Build(ctx context.Context, opts BuildOptions) error
		// Run starts a container. When opts.Detach is set it returns as soon
		// as the container ID is known; otherwise it blocks until exit.
		Run(ctx context.Context, opts RunOptions) (*RunResult, error)
		// Stop stops a running container.
		Stop(ctx context.Context, containerID string) error
		// Remove removes a container.
		Remove(ctx context.Context, containerID string, force bool) error
		// ImageExists checks if an image exists locally.
		ImageExists(ctx context.Context, image string) (bool, error)
		// RemoveImage removes an image.
		RemoveImage(ctx context.Context, image string, force bool) error
		// Pull pulls an image from a registry.
		Pull(ctx context.Context, image string) error

		// Port reports the host-side endpoint(s) a container port is published on.
		Port(ctx context.Context, containerID string, containerPort NetworkPort) ([]string, error)
		// InspectEntrypoint returns an image's configured Entrypoint and Cmd.
		InspectEntrypoint(ctx context.Context, image string) (entrypoint, cmd []string, err error)

		// BinaryPath returns the path to the container engine binary.
		BinaryPath() string
		// BuildRunArgs builds the argument slice for a 'run' command without executing it.
		BuildRunArgs(opts RunOptions) []string
	}

	// BuildOptions contains options for building an image.
	BuildOptions struct {
		ContextDir string
		Dockerfile string
		Tag        string
		BuildArgs  map[string]string
		NoCache    bool
		Stdout     io.Writer
		Stderr     io.Writer
	}

	// RunOptions contains options for running a container.
	RunOptions struct {
		Image string
		// Entrypoint overrides the image entrypoint. A non-nil empty slice
		// clears it; nil leaves the image default untouched.
		Entrypoint []string
		Command    []string
		Env        map[string]string
		Volumes    []VolumeMount
		// Ports are published port mappings in "hostPort:containerPort[/proto]"
		// format, or "containerPort[/proto]" to let the engine pick a host port.
		Ports  []string
		Remove bool
		// Detach starts the container in the background (-d); Run returns
		// once the container ID is known instead of waiting for exit.
		Detach bool
		Name   string
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// RunResult contains the result of running a container.
	RunResult struct {
		ContainerID string
		ExitCode    types.ExitCode
		Error       error
	}

	// EngineNotAvailableError is returned when a container engine is not available.
	EngineNotAvailableError struct {
		Engine string
		Reason string
	}
)

func (e *EngineNotAvailableError) Error() string {
	return fmt.Sprintf("container engine %q is not available: %s", e.Engine, e.Reason)
}

// NewEngine creates a new container engine based on preference, falling back
// to the other engine if the preferred one is unavailable.
func NewEngine(preferredType EngineType) (Engine, error) {
	switch preferredType {
	case EngineTypePodman:
		if e := NewPodmanEngine(); e.Available() {
			return e, nil
		}
		if e := NewDockerEngine(); e.Available() {
			return e, nil
		}
		return nil, &EngineNotAvailableError{Engine: "podman", Reason: "podman unavailable and docker fallback also unavailable"}

	case EngineTypeDocker:
		if e := NewDockerEngine(); e.Available() {
			return e, nil
		}
		if e := NewPodmanEngine(); e.Available() {
			return e, nil
		}
		return nil, &EngineNotAvailableError{Engine: "docker", Reason: "docker unavailable and podman fallback also unavailable"}

	default:
		return nil, fmt.Errorf("unknown container engine type: %s", preferredType)
	}
}

// AutoDetectEngine selects a container engine using, in priority order: the
// DISPOSABLES_ENGINE environment variable, a Podman probe, then a Docker probe.
func AutoDetectEngine() (Engine, error) {
	if override := os.Getenv(EngineEnvVar); override != "" {
		switch EngineType(override) {
		case EngineTypePodman:
			e := NewPodmanEngine()
			if !e.Available() {
				return nil, &EngineNotAvailableError{Engine: "podman", Reason: fmt.Sprintf("requested via %s but not available", EngineEnvVar)}
			}
			return e, nil
		case EngineTypeDocker:
			e := NewDockerEngine()
			if !e.Available() {
				return nil, &EngineNotAvailableError{Engine: "docker", Reason: fmt.Sprintf("requested via %s but not available", EngineEnvVar)}
			}
			return e, nil
		default:
			return nil, fmt.Errorf("%s=%q: unknown container engine type", EngineEnvVar, override)
		}
	}

	if podman := NewPodmanEngine(); podman.Available() {
		return podman, nil
	}
	if docker := NewDockerEngine(); docker.Available() {
		return docker, nil
	}
	return nil, &EngineNotAvailableError{Engine: "any", Reason: "no container engine (podman or docker) is available on this system"}
}
