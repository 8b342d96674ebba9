// SPDX-License-Identifier: MPL-2.0

package disposables

import (
	"context"
	"os"
	"sync"

	"github.com/dlctest/disposables/internal/container"
	"github.com/dlctest/disposables/internal/volume"
)

// EngineContext bundles a discovered container engine with the DLC image and
// volume name used to seed it, so a test suite starting many containers pays
// engine-discovery cost once instead of on every Start call. This is
// additive: Start performs its own one-shot discovery when no EngineContext
// is supplied, and StartWith's externally observable behavior is identical.
type EngineContext struct {
	Engine   container.Engine
	DLCImage string
	Volume   string
}

// NewEngineContext discovers a container engine (honoring DISPOSABLES_ENGINE)
// and resolves the DLC image and volume name from the environment, exactly
// as Start would, but does so once for reuse across multiple Start calls.
func NewEngineContext() (*EngineContext, error) {
	engine, err := container.AutoDetectEngine()
	if err != nil {
		return nil, &EngineDiscoveryError{Requested: os.Getenv(EngineEnvVar), Cause: err}
	}
	dlcImage := os.Getenv(DLCImageEnvVar)
	if dlcImage == "" {
		dlcImage = defaultDLCImage
	}
	return &EngineContext{
		Engine:   engine,
		DLCImage: dlcImage,
		Volume:   os.Getenv(DLCVolumeEnvVar),
	}, nil
}

var (
	globalEngineContext     *EngineContext
	globalEngineContextOnce sync.Once
	globalEngineContextErr  error
)

// GlobalEngineContext returns a process-wide EngineContext, discovered once
// on first use, mirroring the original implementation's lazily-initialized
// global default context.
func GlobalEngineContext() (*EngineContext, error) {
	globalEngineContextOnce.Do(func() {
		globalEngineContext, globalEngineContextErr = NewEngineContext()
	})
	return globalEngineContext, globalEngineContextErr
}

// StartWith runs the same sequence as Start but reuses econtext's already-
// discovered engine and image/volume configuration instead of rediscovering
// them. Each call builds its own volume.Seeder from econtext's image and
// volume settings.
func StartWith(ctx context.Context, econtext *EngineContext, params *ContainerParams) (*Container, error) {
	seeder := volume.NewSeeder(econtext.Engine, econtext.DLCImage, econtext.Volume)
	return startContainer(ctx, econtext.Engine, seeder, params)
}
