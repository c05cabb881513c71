// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about transform integration and scene mutation.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// The [otel] subpackage ships an OpenTelemetry implementation that records
// hook events on the span carried by the context.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetTransformHooks(&myTransformHooks{})
//	    observability.SetSceneHooks(&mySceneHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Transform().OnPush(ctx, "lidar", "body", "dynamic")
//	// ... integrate ...
//	observability.Transform().OnStep(ctx, applied, recomputed, duration)
//
// [otel]: github.com/matzehuels/vizframe/pkg/observability/otel
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Transform Hooks
// =============================================================================

// TransformHooks receives events from the transform graph.
type TransformHooks interface {
	// OnPush records an accepted static or dynamic push.
	OnPush(ctx context.Context, source, target, kind string)

	// OnReject records a push dropped by validation.
	OnReject(ctx context.Context, source, target string, err error)

	// OnStep records one call to Step that changed state.
	OnStep(ctx context.Context, applied, recomputed int, duration time.Duration)
}

// =============================================================================
// Scene Hooks
// =============================================================================

// SceneHooks receives events from the plugin attachment manager.
type SceneHooks interface {
	// OnAttach records a plugin entering the registry.
	OnAttach(ctx context.Context, plugin string)

	// OnDetach records a plugin leaving the registry.
	OnDetach(ctx context.Context, plugin string)

	// OnActivity records a scene membership toggle.
	OnActivity(ctx context.Context, plugin string, enabled bool)

	// OnRefresh records a pose refresh pass.
	OnRefresh(ctx context.Context, updated, skipped int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopTransformHooks is a no-op implementation of TransformHooks.
type NoopTransformHooks struct{}

func (NoopTransformHooks) OnPush(context.Context, string, string, string)  {}
func (NoopTransformHooks) OnReject(context.Context, string, string, error) {}
func (NoopTransformHooks) OnStep(context.Context, int, int, time.Duration) {}

// NoopSceneHooks is a no-op implementation of SceneHooks.
type NoopSceneHooks struct{}

func (NoopSceneHooks) OnAttach(context.Context, string)         {}
func (NoopSceneHooks) OnDetach(context.Context, string)         {}
func (NoopSceneHooks) OnActivity(context.Context, string, bool) {}
func (NoopSceneHooks) OnRefresh(context.Context, int, int)      {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	transformHooks TransformHooks = NoopTransformHooks{}
	sceneHooks     SceneHooks     = NoopSceneHooks{}
	hooksMu        sync.RWMutex
)

// SetTransformHooks registers custom transform hooks.
// This should be called once at application startup before any pushes.
func SetTransformHooks(h TransformHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		transformHooks = h
	}
}

// SetSceneHooks registers custom scene hooks.
// This should be called once at application startup before any attach.
func SetSceneHooks(h SceneHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		sceneHooks = h
	}
}

// Transform returns the registered transform hooks.
func Transform() TransformHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return transformHooks
}

// Scene returns the registered scene hooks.
func Scene() SceneHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return sceneHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	transformHooks = NoopTransformHooks{}
	sceneHooks = NoopSceneHooks{}
}
