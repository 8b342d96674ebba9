// SPDX-License-Identifier: MPL-2.0

package disposables

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"

	"github.com/dlctest/disposables/internal/container"
	"github.com/dlctest/disposables/internal/volume"
	"github.com/dlctest/disposables/internal/wire"
	"github.com/dlctest/disposables/pkg/types"
)

// Environment variables read by the controller, per §6.
const (
	EngineEnvVar     = container.EngineEnvVar
	DLCImageEnvVar   = "DISPOSABLES_DLC_IMAGE"
	DLCVolumeEnvVar  = "DISPOSABLES_DLC_VOLUME"
	defaultDLCImage  = "ghcr.io/dlctest/dlc:latest"
	supervisorPort   = 7500
)

// Container state machine values. A handle starts Created, moves to Started
// once the engine reports the container running, and to Closed on the first
// Close. Transitions are plain atomic stores; closeOnce is what makes Close
// take effect only once.
const (
	stateCreated int32 = iota
	stateStarted
	stateClosed
)

// Container is a handle to one running disposable container. It owns the
// TCP connection to the in-container supervisor and the invariant that the
// container is stopped when the handle is released.
type Container struct {
	id     string
	image  string
	engine container.Engine
	conn   net.Conn

	ports map[int][]string

	events chan wire.Event
	state  atomic.Int32
	closeOnce sync.Once
}

// Start prepares the shared volume, launches image under the supervisor,
// resolves the published port mapping, connects to the supervisor's event
// stream, and returns a handle once the connection is established. Readiness
// (the Ready/FailedTimeout/... events) arrives asynchronously over Events().
func Start(ctx context.Context, params *ContainerParams) (*Container, error) {
	engine, err := container.AutoDetectEngine()
	if err != nil {
		return nil, &EngineDiscoveryError{Requested: os.Getenv(EngineEnvVar), Cause: err}
	}

	dlcImage := os.Getenv(DLCImageEnvVar)
	if dlcImage == "" {
		dlcImage = defaultDLCImage
	}
	volumeName := os.Getenv(DLCVolumeEnvVar)
	seeder := volume.NewSeeder(engine, dlcImage, volumeName)

	return startContainer(ctx, engine, seeder, params)
}

// startContainer is the shared implementation behind Start and StartWith: it
// ensures the image is present, inspects its original entrypoint/cmd,
// builds and runs the engine arguments per §4.5, retries once through
// volume seeding on failure per §4.6, resolves port mappings, and connects
// to the supervisor's event stream.
func startContainer(ctx context.Context, engine container.Engine, seeder *volume.Seeder, params *ContainerParams) (*Container, error) {
	if err := ensureImage(ctx, engine, params.Image); err != nil {
		return nil, err
	}

	entrypoint, cmd, err := engine.InspectEntrypoint(ctx, params.Image)
	if err != nil {
		return nil, &ImageMetadataError{Image: params.Image, Cause: err}
	}
	if params.Entrypoint != nil {
		entrypoint = params.Entrypoint
	}
	if params.Cmd != nil {
		cmd = params.Cmd
	}

	setup, err := buildSetupMessage(params)
	if err != nil {
		return nil, err
	}
	setupJSON, err := setup.Encode()
	if err != nil {
		return nil, err
	}

	specs, err := portSpecs(append(params.Ports, supervisorPort))
	if err != nil {
		return nil, err
	}

	runOpts := container.RunOptions{
		Image:      params.Image,
		Entrypoint: []string{seeder.SupervisorBinaryPath(params.Image)},
		Command:    append([]string{"run"}, append(append([]string{}, entrypoint...), cmd...)...),
		Env:        mergeEnv(params.Env, wire.SetupEnvVar, setupJSON),
		Volumes:    []container.VolumeMount{{HostPath: seeder.VolumeName, ContainerPath: volume.MountPath}},
		Ports:      specs,
		Detach:     true,
		Remove:     true,
		Name:       "disposables-" + uuid.NewString(),
	}

	result, startErr := engine.Run(ctx, runOpts)
	retriedSeed := false
	if startErr != nil || (result != nil && result.Error != nil) {
		if seedErr := seeder.Seed(ctx, params.Image); seedErr != nil {
			return nil, &ContainerStartError{Image: params.Image, RetriedSeed: false, Cause: firstNonNilErr(startErr, result)}
		}
		retriedSeed = true
		result, startErr = engine.Run(ctx, runOpts)
		if startErr != nil || (result != nil && result.Error != nil) {
			return nil, &ContainerStartError{Image: params.Image, RetriedSeed: retriedSeed, Cause: firstNonNilErr(startErr, result)}
		}
	}

	containerID := result.ContainerID

	ports, err := resolvePorts(ctx, engine, containerID, append(params.Ports, supervisorPort))
	if err != nil {
		_ = engine.Stop(ctx, containerID)
		return nil, err
	}

	conn, err := DialFirst(ctx, "tcp", ports[supervisorPort])
	if err != nil {
		_ = engine.Stop(ctx, containerID)
		return nil, err
	}

	c := &Container{
		id:     containerID,
		image:  params.Image,
		engine: engine,
		conn:   conn,
		ports:  ports,
		events: make(chan wire.Event, 1),
	}
	c.state.Store(stateStarted)
	go c.readEvents()
	return c, nil
}

// Events returns the channel of Event values streamed by the supervisor,
// in send order (§5 "Ordering guarantees"). Closed when the connection ends.
func (c *Container) Events() <-chan wire.Event { return c.events }

// MappedPort returns the host-side endpoints published for containerPort.
func (c *Container) MappedPort(containerPort int) ([]string, error) {
	endpoints, ok := c.ports[containerPort]
	if !ok {
		return nil, fmt.Errorf("disposables: port %d was not published for this container", containerPort)
	}
	return endpoints, nil
}

// ID returns the engine-assigned container ID.
func (c *Container) ID() string { return c.id }

// Close stops the container and closes the event connection. Safe to call
// more than once; only the first call has effect.
func (c *Container) Close(ctx context.Context) error {
	var stopErr error
	c.closeOnce.Do(func() {
		c.state.Store(stateClosed)
		stopErr = c.engine.Stop(ctx, c.id)
		_ = c.conn.Close()
	})
	return stopErr
}

func (c *Container) readEvents() {
	defer close(c.events)
	for {
		ev, err := wire.ReadEvent(c.conn)
		if err != nil {
			return
		}
		c.events <- ev
	}
}

func ensureImage(ctx context.Context, engine container.Engine, image string) error {
	exists, err := engine.ImageExists(ctx, image)
	if err != nil {
		return &ImageUnavailableError{Image: image, Cause: err}
	}
	if exists {
		return nil
	}
	if err := engine.Pull(ctx, image); err != nil {
		return &ImageUnavailableError{Image: image, Cause: err}
	}
	return nil
}

func buildSetupMessage(params *ContainerParams) (wire.SetupMessage, error) {
	timeout := uint64(wire.DefaultReadyTimeoutSeconds)
	if params.ReadyTimeout > 0 {
		timeout = uint64(params.ReadyTimeout.Seconds())
	}
	port := types.ListenPort(supervisorPort)
	if err := port.Validate(); err != nil {
		return wire.SetupMessage{}, fmt.Errorf("disposables: %w", err)
	}
	return wire.SetupMessage{
		Port:          port,
		WaitFor:       params.WaitFor,
		ReadyTimeoutS: &timeout,
		Files:         params.Files,
	}, nil
}

func mergeEnv(env map[string]string, key, value string) map[string]string {
	out := make(map[string]string, len(env)+1)
	for k, v := range env {
		out[k] = v
	}
	out[key] = value
	return out
}

// portSpecs validates each container port via go-connections/nat (the same
// port-spec representation the Docker CLI/SDK use) before handing the list
// to the engine, so a malformed port surfaces as a PortMappingParseError
// before any subprocess is spawned rather than as an opaque engine failure.
func portSpecs(ports []int) ([]string, error) {
	seen := make(map[int]bool, len(ports))
	var specs []string
	for _, p := range ports {
		if seen[p] {
			continue
		}
		seen[p] = true
		raw := strconv.Itoa(p)
		if _, err := nat.NewPort("tcp", raw); err != nil {
			return nil, &PortMappingParseError{Endpoint: raw, Cause: err}
		}
		specs = append(specs, raw)
	}
	return specs, nil
}

func resolvePorts(ctx context.Context, engine container.Engine, containerID string, containerPorts []int) (map[int][]string, error) {
	result := make(map[int][]string, len(containerPorts))
	seen := make(map[int]bool, len(containerPorts))
	for _, p := range containerPorts {
		if seen[p] {
			continue
		}
		seen[p] = true
		endpoints, err := engine.Port(ctx, containerID, container.NetworkPort(p))
		if err != nil {
			return nil, &PortMappingLookupError{ContainerID: containerID, Port: p, Cause: err}
		}
		for i, e := range endpoints {
			endpoints[i] = strings.TrimSpace(e)
		}
		result[p] = endpoints
	}
	return result, nil
}

func firstNonNilErr(startErr error, result *container.RunResult) error {
	if startErr != nil {
		return startErr
	}
	if result != nil {
		return result.Error
	}
	return nil
}
