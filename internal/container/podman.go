// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// SELinuxCheckFunc reports whether SELinux volume labeling should be applied.
// Exists as a seam so tests can simulate SELinux presence without requiring
// an actual SELinux-enabled kernel.
type SELinuxCheckFunc func() bool

// podmanBinaryNames lists Podman binary names to try in order of preference.
// "podman" is preferred; "podman-remote" is the fallback for immutable distros
// like Fedora Silverblue/Kinoite.
var podmanBinaryNames = []string{"podman", "podman-remote"}

// PodmanEngine implements the Engine interface using the Podman CLI.
// It embeds BaseCLIEngine for the operations common to both engines.
type PodmanEngine struct {
	*BaseCLIEngine
}

// findPodmanBinary searches for an available Podman binary, returning the
// full path to the first one found, or "" if none are on PATH.
func findPodmanBinary() string {
	for _, name := range podmanBinaryNames {
		if path, err := exec.LookPath(name); err == nil {
			slog.Debug("found podman binary", "name", name, "path", path)
			return path
		}
	}
	return ""
}

// NewPodmanEngine creates a new Podman engine. On Linux with SELinux present,
// volume mounts are automatically labeled :z, and --userns=keep-id is added
// to run commands for rootless UID/GID compatibility.
func NewPodmanEngine(opts ...BaseCLIEngineOption) *PodmanEngine {
	return newPodmanEngine(isSELinuxPresent, opts...)
}

// NewPodmanEngineWithSELinuxCheck creates a Podman engine with a custom
// SELinux presence check, for exercising the labeling behavior on systems
// that may or may not have SELinux.
func NewPodmanEngineWithSELinuxCheck(selinuxCheck SELinuxCheckFunc, opts ...BaseCLIEngineOption) *PodmanEngine {
	return newPodmanEngine(selinuxCheck, opts...)
}

func newPodmanEngine(selinuxCheck SELinuxCheckFunc, opts ...BaseCLIEngineOption) *PodmanEngine {
	path := findPodmanBinary()
	allOpts := []BaseCLIEngineOption{
		WithName(string(EngineTypePodman)),
		WithVolumeFormatter(makeSELinuxLabelAdder(selinuxCheck)),
		WithRunArgsTransformer(makeUsernsKeepIDAdder()),
	}
	allOpts = append(allOpts, sysctlOverrideOpts(path)...)
	allOpts = append(allOpts, opts...)
	return &PodmanEngine{BaseCLIEngine: NewBaseCLIEngine(path, allOpts...)}
}

// Name returns the engine name.
func (e *PodmanEngine) Name() string { return string(EngineTypePodman) }

// Available checks whether the podman CLI responds to a version probe.
func (e *PodmanEngine) Available() bool {
	if e.BinaryPath() == "" {
		return false
	}
	cmd := e.CreateCommand(context.Background(), "version", "--format", "{{.Version}}")
	return cmd.Run() == nil
}

// Version returns the Podman version.
func (e *PodmanEngine) Version(ctx context.Context) (string, error) {
	out, err := e.RunCommandWithOutput(ctx, "version", "--format", "{{.Version}}")
	if err != nil {
		return "", fmt.Errorf("get podman version: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// ImageExists checks if an image exists locally. Podman has a dedicated
// "image exists" subcommand; the Docker path checks the exit status of
// "image inspect" instead.
func (e *PodmanEngine) ImageExists(ctx context.Context, image string) (bool, error) {
	err := e.RunCommandStatus(ctx, "image", "exists", image)
	return err == nil, nil
}

// BuildRunArgs builds the argument slice for a 'run' command without
// executing it. Volume mounts are labeled and --userns=keep-id is inserted
// the same way Run() does, via the formatter/transformer set at construction.
func (e *PodmanEngine) BuildRunArgs(opts RunOptions) []string {
	return e.RunArgs(opts)
}

// isSELinuxPresent reports whether the selinuxfs pseudo-filesystem is
// mounted. Podman needs the :z label whenever SELinux is present, even if
// not currently enforcing, so this is checked instead of enforce status.
func isSELinuxPresent() bool {
	_, err := os.Stat("/sys/fs/selinux")
	return err == nil
}

// makeSELinuxLabelAdder creates a volume formatter that sets the SELinux
// label on a mount when the engine needs one and the caller didn't already
// request one.
func makeSELinuxLabelAdder(selinuxCheck SELinuxCheckFunc) VolumeFormatFunc {
	return func(v VolumeMount) string {
		if selinuxCheck() && v.SELinux == SELinuxLabelNone {
			v.SELinux = SELinuxLabelShared
		}
		return v.String()
	}
}

// makeUsernsKeepIDAdder creates a transformer that adds --userns=keep-id to
// run commands, preserving host UID/GID in rootless Podman. The flag is
// harmless in rootful mode.
func makeUsernsKeepIDAdder() RunArgsTransformer {
	return func(args []string) []string {
		if len(args) == 0 || args[0] != "run" {
			return args
		}

		imagePos := -1
		skipNext := false
		for i := 1; i < len(args); i++ {
			if skipNext {
				skipNext = false
				continue
			}
			arg := args[i]
			if arg == "-e" || arg == "-v" || arg == "-p" || arg == "--name" {
				skipNext = true
				continue
			}
			if strings.HasPrefix(arg, "-") {
				continue
			}
			imagePos = i
			break
		}

		if imagePos == -1 {
			return append(args, "--userns=keep-id")
		}

		result := make([]string, 0, len(args)+1)
		result = append(result, args[:imagePos]...)
		result = append(result, "--userns=keep-id")
		result = append(result, args[imagePos:]...)
		return result
	}
}
