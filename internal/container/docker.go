// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DockerEngine implements the Engine interface using the Docker CLI.
// It embeds BaseCLIEngine for the operations common to both engines; only
// binary discovery and the version probe differ.
type DockerEngine struct {
	*BaseCLIEngine
}

// NewDockerEngine creates a new Docker engine, locating the binary on PATH.
func NewDockerEngine(opts ...BaseCLIEngineOption) *DockerEngine {
	path, _ := exec.LookPath("docker")
	opts = append([]BaseCLIEngineOption{WithName(string(EngineTypeDocker))}, opts...)
	return &DockerEngine{BaseCLIEngine: NewBaseCLIEngine(path, opts...)}
}

// Name returns the engine name.
func (e *DockerEngine) Name() string { return string(EngineTypeDocker) }

// Available checks whether the docker CLI responds to a version probe.
func (e *DockerEngine) Available() bool {
	if e.BinaryPath() == "" {
		return false
	}
	cmd := e.CreateCommand(context.Background(), "version", "--format", "{{.Server.Version}}")
	return cmd.Run() == nil
}

// Version returns the Docker server version.
func (e *DockerEngine) Version(ctx context.Context) (string, error) {
	out, err := e.RunCommandWithOutput(ctx, "version", "--format", "{{.Server.Version}}")
	if err != nil {
		return "", fmt.Errorf("get docker version: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// BuildRunArgs builds the argument slice for a 'run' command without executing it.
func (e *DockerEngine) BuildRunArgs(opts RunOptions) []string {
	return e.RunArgs(opts)
}
