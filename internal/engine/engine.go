// Package engine implements the KLON deep-copy engine: the graph walker,
// the container cloners, the reduce-protocol reconstructor, and the pooled
// per-operation working set, behind the public EngineV1 interface.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	klon "github.com/klon-labs/klon/pkg/klon/v1"
	"github.com/klon-labs/klon/pkg/klon/v1/events"
	klonerrors "github.com/klon-labs/klon/pkg/klon/v1/errors"
	klonlog "github.com/klon-labs/klon/pkg/klon/v1/log"
	"github.com/klon-labs/klon/pkg/klon/v1/metrics"
	"github.com/klon-labs/klon/pkg/klon/v1/object"
	klontracing "github.com/klon-labs/klon/pkg/klon/v1/tracing"

	"github.com/klon-labs/klon/internal/config"
	"github.com/klon-labs/klon/internal/dispatch"
	intEvents "github.com/klon-labs/klon/internal/events"
	intLogger "github.com/klon-labs/klon/internal/logger"
	intMetrics "github.com/klon-labs/klon/internal/metrics"
	"github.com/klon-labs/klon/internal/memo"
	intTracing "github.com/klon-labs/klon/internal/tracing"
)

const tracerName = "klon-engine"

// Engine is the deep-copy engine. One Engine is safe for concurrent use;
// each operation draws its own session from the pool.
type Engine struct {
	log             klonlog.Logger
	eventBus        events.Bus
	metricsProvider metrics.RegistryProvider
	tracerProvider  klontracing.TracerProvider
	reducers        *dispatch.Registry
	sessions        *memo.Pool

	maxDepth             int
	replicateParallelism int

	// Metrics collectors
	opCounter         *prometheus.CounterVec
	opDuration        *prometheus.HistogramVec
	nodesHistogram    prometheus.Histogram
	memoHitCounter    prometheus.Counter
	reduceFallbacks   prometheus.Counter
	bestEffortCounter prometheus.Counter
	sessionsReused    prometheus.Counter
	sessionsAbandoned prometheus.Counter
}

var _ klon.EngineV1 = (*Engine)(nil)

// NewEngine creates an engine with the given logger and options. Components
// not supplied via options fall back to safe defaults: a NoOp event bus, a
// private Prometheus registry, a NoOp tracer, and an empty dispatch registry.
func NewEngine(log klonlog.Logger, opts ...klon.EngineOption) (*Engine, error) {
	if log == nil {
		return nil, klonerrors.NewConfigError("logger cannot be nil", nil)
	}

	// Replication is sequential unless a caller opts into parallelism:
	// user hooks on a shared root must not run concurrently by surprise.
	e := &Engine{
		log:                  log,
		sessions:             memo.NewPool(),
		maxDepth:             config.DefaultMaxDepth,
		replicateParallelism: 1,
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, klonerrors.NewConfigError(fmt.Sprintf("failed to apply engine option: %v", err), err)
		}
	}

	if e.eventBus == nil {
		e.eventBus = intEvents.NewNoOpEventBus()
	}
	if e.metricsProvider == nil {
		e.metricsProvider = intMetrics.NewPrometheusRegistryProvider()
	}
	if e.tracerProvider == nil {
		tp, err := intTracing.NewNoOpProvider()
		if err != nil {
			return nil, klonerrors.NewConfigError("failed to create default NoOp tracer provider", err)
		}
		e.tracerProvider = tp
	}
	if e.reducers == nil {
		e.reducers = dispatch.NewRegistry()
	}

	e.initMetrics()

	return e, nil
}

// NewEngineFromConfig builds an engine from a loaded configuration document.
// Logging and tracing are constructed per the document; explicit options
// still override it.
func NewEngineFromConfig(ctx context.Context, cfg *config.Config, opts ...klon.EngineOption) (*Engine, error) {
	if cfg == nil {
		return nil, klonerrors.NewConfigError("configuration cannot be nil", nil)
	}

	var level, format string
	if cfg.Logging != nil {
		level, format = cfg.Logging.Level, cfg.Logging.Format
	}
	log := intLogger.NewLogger(level, format, nil)

	base := []klon.EngineOption{
		klon.WithMaxDepth(cfg.Engine.MaxDepthOrDefault()),
	}
	if cfg.Engine != nil && cfg.Engine.ReplicateParallelism > 0 {
		base = append(base, klon.WithReplicateParallelism(cfg.Engine.ReplicateParallelism))
	}
	if cfg.Tracing != nil && cfg.Tracing.Enabled {
		tp, err := intTracing.NewProviderFromEnv(ctx)
		if err != nil {
			return nil, klonerrors.NewConfigError("failed to create tracer provider from environment", err)
		}
		base = append(base, klon.WithTracerProvider(tp))
	}

	return NewEngine(log, append(base, opts...)...)
}

func (e *Engine) initMetrics() {
	reg := e.metricsProvider.Registry()
	if reg == nil {
		e.log.Errorf("Metrics provider returned a nil registry, cannot initialize metrics.")
		return
	}

	e.opCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "klon_operations_total", Help: "Total number of copy operations by kind and outcome."},
		[]string{"operation", "status"},
	)
	reg.MustRegister(e.opCounter)

	e.opDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "klon_operation_duration_seconds", Help: "Duration of copy operations in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"operation"},
	)
	reg.MustRegister(e.opDuration)

	e.nodesHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "klon_operation_nodes", Help: "Number of graph nodes visited per operation.", Buckets: prometheus.ExponentialBuckets(1, 4, 12)},
	)
	reg.MustRegister(e.nodesHistogram)

	e.memoHitCounter = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "klon_memo_hits_total", Help: "Total number of memo-table hits (shared nodes resolved to existing clones)."},
	)
	reg.MustRegister(e.memoHitCounter)

	e.reduceFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "klon_reduce_fallbacks_total", Help: "Total number of objects copied via the reduce protocol rather than a native cloner."},
	)
	reg.MustRegister(e.reduceFallbacks)

	e.bestEffortCounter = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "klon_best_effort_failures_total", Help: "Total number of per-item reconstruction failures that were logged and skipped."},
	)
	reg.MustRegister(e.bestEffortCounter)

	e.sessionsReused = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "klon_sessions_reused_total", Help: "Total number of pooled sessions recycled after an operation."},
	)
	reg.MustRegister(e.sessionsReused)

	e.sessionsAbandoned = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "klon_sessions_abandoned_total", Help: "Total number of sessions abandoned because their memo was exposed to user hooks."},
	)
	reg.MustRegister(e.sessionsAbandoned)

	e.log.Debugf("Prometheus metrics initialized and registered.")
}

// Clone deep-copies the graph reachable from root.
func (e *Engine) Clone(ctx context.Context, root object.Object) (object.Object, error) {
	if root == nil {
		return object.None, nil
	}
	if classify(root) == kindAtomic {
		return root, nil
	}
	if out, ok := emptyContainerClone(root); ok {
		return out, nil
	}

	return e.instrumented(ctx, "clone", root, func(w *walker) (object.Object, error) {
		return w.clone(root)
	})
}

// CloneWithMemo deep-copies root, routing every aliasing decision through
// the caller's memo map. The pooled sessions are never touched: the caller
// owns the working set and may inspect or reuse it afterwards.
func (e *Engine) CloneWithMemo(ctx context.Context, root object.Object, m klon.Memo) (object.Object, error) {
	if root == nil {
		return object.None, nil
	}
	if classify(root) == kindAtomic {
		return root, nil
	}
	if m == nil {
		m = make(klon.Memo)
	}

	opID := uuid.NewString()
	tracer := e.tracerProvider.GetTracer(tracerName)
	opCtx, span := tracer.Start(ctx, "klon.clone_with_memo")
	defer span.End()

	startTime := time.Now()
	e.emitStart("clone_with_memo", opID, root, startTime)

	w := &walker{
		engine:   e,
		ctx:      opCtx,
		ext:      m,
		maxDepth: e.maxDepth,
		opID:     opID,
		op:       "clone_with_memo",
	}
	result, err := w.clone(root)
	e.finishOperation(span, "clone_with_memo", opID, root, startTime, w, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ShallowClone copies root one level deep.
func (e *Engine) ShallowClone(ctx context.Context, root object.Object) (object.Object, error) {
	if root == nil {
		return object.None, nil
	}

	opID := uuid.NewString()
	tracer := e.tracerProvider.GetTracer(tracerName)
	_, span := tracer.Start(ctx, "klon.shallow_clone")
	defer span.End()

	startTime := time.Now()
	e.emitStart("shallow_clone", opID, root, startTime)

	result, err := e.shallowClone(root)
	e.finishOperation(span, "shallow_clone", opID, root, startTime, nil, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// instrumented runs fn inside a pooled session with a span, events, and
// metrics around it.
func (e *Engine) instrumented(ctx context.Context, op string, root object.Object, fn func(*walker) (object.Object, error)) (object.Object, error) {
	opID := uuid.NewString()
	tracer := e.tracerProvider.GetTracer(tracerName)
	opCtx, span := tracer.Start(ctx, "klon."+op)
	defer span.End()

	startTime := time.Now()
	e.emitStart(op, opID, root, startTime)

	session := e.sessions.Acquire()
	w := &walker{
		engine:   e,
		ctx:      opCtx,
		session:  session,
		maxDepth: e.maxDepth,
		opID:     opID,
		op:       op,
	}

	result, err := fn(w)

	// A hook that saw the engine callback may have retained it, and with it
	// the session's memo. Such sessions are abandoned, not recycled.
	if w.usedHook {
		session.MarkExposed()
	}
	if e.sessions.Release(session) {
		e.sessionsReused.Inc()
	} else {
		e.sessionsAbandoned.Inc()
		e.eventBus.Emit(events.Event{
			Type:        events.SessionAbandoned,
			Timestamp:   time.Now(),
			OperationID: opID,
			Operation:   op,
			RootType:    typeName(root),
		})
	}

	e.finishOperation(span, op, opID, root, startTime, w, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) emitStart(op, opID string, root object.Object, startTime time.Time) {
	e.eventBus.Emit(events.Event{
		Type:        events.OperationStart,
		Timestamp:   startTime,
		OperationID: opID,
		Operation:   op,
		RootType:    typeName(root),
	})
}

// finishOperation records metrics, span attributes, and the terminal event
// for one public operation. w may be nil for operations without a walker.
func (e *Engine) finishOperation(span oteltrace.Span, op, opID string, root object.Object, startTime time.Time, w *walker, err error) {
	duration := time.Since(startTime)

	status := "completed"
	if err != nil {
		status = "failed"
	}
	if e.opCounter != nil {
		e.opCounter.WithLabelValues(op, status).Inc()
	}
	if e.opDuration != nil {
		e.opDuration.WithLabelValues(op).Observe(duration.Seconds())
	}

	attrs := []attribute.KeyValue{
		attribute.String("klon.operation", op),
		attribute.String("klon.operation_id", opID),
		attribute.String("klon.root_type", typeName(root)),
		attribute.String("klon.status", status),
		attribute.Int64("klon.duration_ms", duration.Milliseconds()),
	}
	if w != nil {
		attrs = append(attrs, attribute.Int("klon.nodes", w.nodes), attribute.Int("klon.memo_hits", w.memoHits))
		if e.nodesHistogram != nil {
			e.nodesHistogram.Observe(float64(w.nodes))
		}
		if e.memoHitCounter != nil && w.memoHits > 0 {
			e.memoHitCounter.Add(float64(w.memoHits))
		}
	}
	span.SetAttributes(attrs...)

	if err != nil {
		intTracing.RecordError(span, err)
		e.log.Errorf("Copy operation failed: %v", err)
		e.eventBus.Emit(events.Event{
			Type:        events.OperationFailed,
			Timestamp:   time.Now(),
			OperationID: opID,
			Operation:   op,
			RootType:    typeName(root),
			Payload:     map[string]interface{}{"error": err.Error()},
		})
		return
	}

	span.SetStatus(codes.Ok, "")
	e.eventBus.Emit(events.Event{
		Type:        events.OperationEnd,
		Timestamp:   time.Now(),
		OperationID: opID,
		Operation:   op,
		RootType:    typeName(root),
	})
}

// MetricsRegistryProvider returns the engine's metrics provider.
func (e *Engine) MetricsRegistryProvider() metrics.RegistryProvider { return e.metricsProvider }

// TracerProvider returns the engine's tracing provider.
func (e *Engine) TracerProvider() klontracing.TracerProvider { return e.tracerProvider }

// SetEventBus sets the event bus. Must be called before operations start.
func (e *Engine) SetEventBus(bus events.Bus) error {
	if bus == nil {
		return klonerrors.NewConfigError("event bus cannot be nil", nil)
	}
	e.eventBus = bus
	return nil
}

// SetMetricsRegistryProvider sets the metrics provider.
func (e *Engine) SetMetricsRegistryProvider(provider metrics.RegistryProvider) error {
	if provider == nil {
		return klonerrors.NewConfigError("metrics registry provider cannot be nil", nil)
	}
	e.metricsProvider = provider
	return nil
}

// SetTracerProvider sets the tracing provider.
func (e *Engine) SetTracerProvider(provider klontracing.TracerProvider) error {
	if provider == nil {
		return klonerrors.NewConfigError("tracer provider cannot be nil", nil)
	}
	e.tracerProvider = provider
	return nil
}

// SetDispatchRegistry sets the reducer registry.
func (e *Engine) SetDispatchRegistry(registry *dispatch.Registry) error {
	if registry == nil {
		return klonerrors.NewConfigError("dispatch registry cannot be nil", nil)
	}
	e.reducers = registry
	return nil
}

// SetMaxDepth bounds clone recursion.
func (e *Engine) SetMaxDepth(depth int) error {
	if depth <= 0 {
		return klonerrors.NewConfigError("max depth must be positive", nil)
	}
	e.maxDepth = depth
	return nil
}

// SetReplicateParallelism caps Replicate's worker count.
func (e *Engine) SetReplicateParallelism(n int) error {
	if n <= 0 {
		return klonerrors.NewConfigError("replicate parallelism must be positive", nil)
	}
	e.replicateParallelism = n
	return nil
}

// emptyContainerClone short-circuits empty mutable containers into fresh
// empties without a session. The empty tuple is returned as itself: with
// nothing to copy, the all-shared rule applies vacuously.
func emptyContainerClone(obj object.Object) (object.Object, bool) {
	switch v := obj.(type) {
	case *object.Dict:
		if v.Len() == 0 {
			return object.NewDict(), true
		}
	case *object.List:
		if v.Len() == 0 {
			return object.NewList(), true
		}
	case *object.Tuple:
		if v.Len() == 0 {
			return v, true
		}
	case *object.Set:
		if v.Len() == 0 {
			s, _ := object.NewSet()
			return s, true
		}
	case *object.FrozenSet:
		if v.Len() == 0 {
			fs, _ := object.NewFrozenSet()
			return fs, true
		}
	case *object.ByteArray:
		if v.Len() == 0 {
			return object.NewByteArray(nil), true
		}
	}
	return nil, false
}

func typeName(obj object.Object) string {
	if obj == nil {
		return "none"
	}
	return obj.Type().Name()
}
