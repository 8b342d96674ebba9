// SPDX-License-Identifier: MPL-2.0

// Package volume implements controller-side shared-volume seeding: placing
// the supervisor binary into a per-image subdirectory of a named Docker/Podman
// volume so it can be bind-mounted as the entrypoint of arbitrary target images.
package volume

import (
	"context"
	"fmt"
	"regexp"

	"github.com/dlctest/disposables/internal/container"
)

// DefaultVolumeName is the named volume holding supervisor binaries, mounted
// at MountPath inside every supervised container.
const DefaultVolumeName = "disposables-dlc"

// MountPath is where the shared volume is mounted inside supervised containers.
const MountPath = "/dlc"

var sanitizePattern = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// SanitizeImageName replaces every character outside [A-Za-z0-9_-] with `_`,
// producing the per-image subdirectory name used under the shared volume.
func SanitizeImageName(image string) string {
	return sanitizePattern.ReplaceAllString(image, "_")
}

// Seeder seeds the shared volume with the supervisor binary, keyed by the
// image that will act as the supervisor's carrier image.
type Seeder struct {
	Engine     container.Engine
	VolumeName string
	// DLCImage is the image providing the supervisor binary, run once with
	// `install` to populate the shared volume subdirectory.
	DLCImage string
}

// NewSeeder creates a Seeder, defaulting VolumeName to DefaultVolumeName.
func NewSeeder(engine container.Engine, dlcImage string, volumeName string) *Seeder {
	if volumeName == "" {
		volumeName = DefaultVolumeName
	}
	return &Seeder{Engine: engine, VolumeName: volumeName, DLCImage: dlcImage}
}

// SubdirFor returns the per-image subdirectory path within the shared volume
// for targetImage, e.g. "docker_io_library_postgres_alpine".
func (s *Seeder) SubdirFor(targetImage string) string {
	return SanitizeImageName(targetImage)
}

// Seed runs `<engine> run --rm -v <vol>:/dlc <dlc-image> install /dlc/<subdir>`
// to populate the shared volume's per-image subdirectory, per §4.4. Seeding
// itself is idempotent (Install is a no-op if already populated); callers
// are responsible for only invoking Seed lazily, after a first container
// start attempt fails (§4.4/§4.6).
func (s *Seeder) Seed(ctx context.Context, targetImage string) error {
	subdir := s.SubdirFor(targetImage)
	result, err := s.Engine.Run(ctx, container.RunOptions{
		Image:   s.DLCImage,
		Command: []string{"install", MountPath + "/" + subdir},
		Volumes: []container.VolumeMount{{HostPath: s.VolumeName, ContainerPath: MountPath}},
		Remove:  true,
	})
	if err != nil {
		return fmt.Errorf("volume: seed %s into %s: %w", s.DLCImage, subdir, err)
	}
	if result.Error != nil || !result.ExitCode.IsSuccess() {
		return fmt.Errorf("volume: install command exited %s: %w", result.ExitCode, result.Error)
	}
	return nil
}

// SupervisorBinaryPath returns the path the supervisor binary will occupy
// inside a container that has the shared volume mounted at MountPath, for
// targetImage's subdirectory.
func (s *Seeder) SupervisorBinaryPath(targetImage string) string {
	return MountPath + "/" + s.SubdirFor(targetImage) + "/dlc"
}
