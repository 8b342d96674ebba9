// SPDX-License-Identifier: MPL-2.0

package disposables

import (
	"time"

	"github.com/dlctest/disposables/internal/wire"
	"github.com/dlctest/disposables/pkg/types"
)

// ContainerParams builds the configuration for one disposable container: the
// image to run, the readiness conditions the supervisor evaluates (their
// outcome arrives over Container.Events after Start returns), any files to
// materialize before the entrypoint runs, and the container ports the caller
// wants published.
type ContainerParams struct {
	Image        string
	Env          map[string]string
	Entrypoint   []string
	Cmd          []string
	WaitFor      []wire.WaitCondition
	ReadyTimeout time.Duration
	Files        []wire.FileEntry
	Ports        []int
}

// NewContainerParams creates a ContainerParams for the given image.
func NewContainerParams(image string) *ContainerParams {
	return &ContainerParams{Image: image, Env: map[string]string{}}
}

// WithEnv sets an environment variable on the target container.
func (p *ContainerParams) WithEnv(key, value string) *ContainerParams {
	p.Env[key] = value
	return p
}

// WithEntrypoint overrides the image's entrypoint and/or command. A nil
// argument leaves the image default untouched.
func (p *ContainerParams) WithEntrypoint(entrypoint, cmd []string) *ContainerParams {
	p.Entrypoint = entrypoint
	p.Cmd = cmd
	return p
}

// WaitForPort adds a Port readiness condition.
func (p *ContainerParams) WaitForPort(port int) *ContainerParams {
	p.WaitFor = append(p.WaitFor, wire.NewPortWait(types.ListenPort(port)))
	return p.WithPort(port)
}

// WaitForStdout adds a Stdout substring readiness condition.
func (p *ContainerParams) WaitForStdout(substring string) *ContainerParams {
	p.WaitFor = append(p.WaitFor, wire.NewStdoutWait(substring))
	return p
}

// WaitForCommand adds a Command readiness condition. interval == 0 means
// run the probe once, blocking, per §3.
func (p *ContainerParams) WaitForCommand(argv []string, interval time.Duration) *ContainerParams {
	p.WaitFor = append(p.WaitFor, wire.NewCommandWait(argv, uint64(interval.Milliseconds())))
	return p
}

// WithReadyTimeout overrides the default 120s readiness deadline.
func (p *ContainerParams) WithReadyTimeout(d time.Duration) *ContainerParams {
	p.ReadyTimeout = d
	return p
}

// WithFile schedules content to be materialized at path inside the
// container before the entrypoint is spawned.
func (p *ContainerParams) WithFile(path string, content []byte) *ContainerParams {
	p.Files = append(p.Files, wire.FileEntry{Path: path, Content: content})
	return p
}

// WithPort requests that containerPort be published, even if no readiness
// condition references it (e.g. a service port the test will dial directly).
func (p *ContainerParams) WithPort(containerPort int) *ContainerParams {
	for _, existing := range p.Ports {
		if existing == containerPort {
			return p
		}
	}
	p.Ports = append(p.Ports, containerPort)
	return p
}
