// SPDX-License-Identifier: MPL-2.0

package volume

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlctest/disposables/internal/container"
	"github.com/dlctest/disposables/pkg/types"
)

func TestSanitizeImageName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		image string
		want  string
	}{
		{"nginx:alpine", "nginx_alpine"},
		{"docker.io/library/postgres:alpine", "docker_io_library_postgres_alpine"},
		{"my-registry.example.com:5000/app", "my-registry_example_com_5000_app"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeImageName(tt.image))
	}
}

// fakeEngine is a minimal container.Engine stub for unit-testing the seeder
// in isolation from a real Docker/Podman daemon.
type fakeEngine struct {
	container.Engine
	lastRunOpts container.RunOptions
	runResult   *container.RunResult
	runErr      error
}

func (f *fakeEngine) Run(ctx context.Context, opts container.RunOptions) (*container.RunResult, error) {
	f.lastRunOpts = opts
	return f.runResult, f.runErr
}

func TestSeeder_SeedInvokesInstallWithExpectedArgs(t *testing.T) {
	t.Parallel()

	fe := &fakeEngine{runResult: &container.RunResult{ExitCode: types.ExitCode(0)}}
	seeder := NewSeeder(fe, "ghcr.io/dlctest/dlc:latest", "")

	require.NoError(t, seeder.Seed(context.Background(), "docker.io/nginx:alpine"))

	assert.Equal(t, []string{"install", "/dlc/docker_io_nginx_alpine"}, fe.lastRunOpts.Command)
	require.Len(t, fe.lastRunOpts.Volumes, 1)
	assert.Equal(t, DefaultVolumeName, fe.lastRunOpts.Volumes[0].HostPath)
	assert.Equal(t, MountPath, fe.lastRunOpts.Volumes[0].ContainerPath)
	assert.True(t, fe.lastRunOpts.Remove)
}

func TestSeeder_SeedPropagatesNonZeroExit(t *testing.T) {
	t.Parallel()

	fe := &fakeEngine{runResult: &container.RunResult{ExitCode: types.ExitCode(1)}}
	seeder := NewSeeder(fe, "ghcr.io/dlctest/dlc:latest", "")

	err := seeder.Seed(context.Background(), "nginx:alpine")
	assert.Error(t, err)
}

func TestSeeder_SupervisorBinaryPath(t *testing.T) {
	t.Parallel()

	seeder := NewSeeder(nil, "ghcr.io/dlctest/dlc:latest", "")
	assert.Equal(t, "/dlc/nginx_alpine/dlc", seeder.SupervisorBinaryPath("nginx:alpine"))
}
