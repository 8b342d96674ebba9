// SPDX-License-Identifier: MPL-2.0

// Package container provides a CLI-subprocess abstraction over Docker and
// Podman: build, run, stop, remove, port resolution and image inspection,
// all implemented by shelling out to the engine binary rather than talking
// to a daemon API.
//
// DockerEngine and PodmanEngine both embed BaseCLIEngine for argument
// construction and command execution; only binary discovery, version
// probing, and engine-specific quirks (Podman's SELinux volume labels and
// rootless --userns=keep-id) live on the concrete types.
//
// Engine selection uses NewEngine(EngineType) with automatic fallback to the
// other engine if the preferred one is unavailable, or AutoDetectEngine() for
// preference-less detection honoring the DISPOSABLES_ENGINE override.
package container
