package v1

import (
	"context"

	"github.com/klon-labs/klon/internal/dispatch"
	"github.com/klon-labs/klon/pkg/klon/v1/events"
	klonerrors "github.com/klon-labs/klon/pkg/klon/v1/errors"
	"github.com/klon-labs/klon/pkg/klon/v1/metrics"
	"github.com/klon-labs/klon/pkg/klon/v1/object"
	"github.com/klon-labs/klon/pkg/klon/v1/tracing"
)

// Memo is a caller-owned external memo: identity handle to clone. Passing
// one to CloneWithMemo makes the engine route every aliasing decision
// through it and leaves it populated for inspection or reuse across calls.
type Memo map[uint64]object.Object

// EngineV1 defines the public interface of the KLON deep-copy engine.
type EngineV1 interface {
	// Clone deep-copies the graph reachable from root, preserving aliasing
	// and cycles within the operation.
	Clone(ctx context.Context, root object.Object) (object.Object, error)
	// CloneWithMemo is Clone with a caller-supplied memo. An existing entry
	// for root's identity is returned without decomposing root at all.
	CloneWithMemo(ctx context.Context, root object.Object, memo Memo) (object.Object, error)
	// ShallowClone copies root one level deep: the container is new, the
	// elements are shared with the original.
	ShallowClone(ctx context.Context, root object.Object) (object.Object, error)
	// Replicate produces n independent deep copies of root. Atoms are
	// returned as n aliases without walking anything.
	Replicate(ctx context.Context, root object.Object, n int) ([]object.Object, error)

	// MetricsRegistryProvider returns the underlying metrics provider.
	MetricsRegistryProvider() metrics.RegistryProvider
	// TracerProvider returns the underlying tracing provider.
	TracerProvider() tracing.TracerProvider

	// Setter methods for configuring engine components programmatically.
	SetEventBus(bus events.Bus) error
	SetMetricsRegistryProvider(provider metrics.RegistryProvider) error
	SetTracerProvider(provider tracing.TracerProvider) error
	SetDispatchRegistry(registry *dispatch.Registry) error
	SetMaxDepth(depth int) error
	SetReplicateParallelism(n int) error
}

// EngineOption is a function type used to configure the engine at creation.
type EngineOption func(EngineV1) error

// WithEventBus is an engine option to provide a custom event bus.
func WithEventBus(bus events.Bus) EngineOption {
	return func(e EngineV1) error {
		if bus == nil {
			return klonerrors.NewConfigError("event bus cannot be nil", nil)
		}
		return e.SetEventBus(bus)
	}
}

// WithMetricsRegistryProvider is an engine option to provide a custom
// metrics provider.
func WithMetricsRegistryProvider(provider metrics.RegistryProvider) EngineOption {
	return func(e EngineV1) error {
		if provider == nil {
			return klonerrors.NewConfigError("metrics registry provider cannot be nil", nil)
		}
		return e.SetMetricsRegistryProvider(provider)
	}
}

// WithTracerProvider is an engine option to provide a custom tracing provider.
func WithTracerProvider(provider tracing.TracerProvider) EngineOption {
	return func(e EngineV1) error {
		if provider == nil {
			return klonerrors.NewConfigError("tracer provider cannot be nil", nil)
		}
		return e.SetTracerProvider(provider)
	}
}

// WithDispatchRegistry is an engine option to provide a pre-populated
// reducer registry.
func WithDispatchRegistry(registry *dispatch.Registry) EngineOption {
	return func(e EngineV1) error {
		if registry == nil {
			return klonerrors.NewConfigError("dispatch registry cannot be nil", nil)
		}
		return e.SetDispatchRegistry(registry)
	}
}

// WithMaxDepth is an engine option to bound clone recursion.
func WithMaxDepth(depth int) EngineOption {
	return func(e EngineV1) error {
		if depth <= 0 {
			return klonerrors.NewConfigError("max depth must be positive", nil)
		}
		return e.SetMaxDepth(depth)
	}
}

// WithReplicateParallelism is an engine option to cap the workers used by
// Replicate.
func WithReplicateParallelism(n int) EngineOption {
	return func(e EngineV1) error {
		if n <= 0 {
			return klonerrors.NewConfigError("replicate parallelism must be positive", nil)
		}
		return e.SetReplicateParallelism(n)
	}
}
