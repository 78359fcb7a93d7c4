package events

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/klon-labs/klon/pkg/klon/v1/events"
	klonlog "github.com/klon-labs/klon/pkg/klon/v1/log"
)

// MetricsEventListener consumes a ChannelEventBus and turns engine events
// into Prometheus counters: best-effort item failures and abandoned sessions.
type MetricsEventListener struct {
	bus                    *ChannelEventBus
	log                    klonlog.Logger
	bestEffortCounter      prometheus.Counter
	abandonedSessionsCount prometheus.Counter
}

// NewMetricsEventListener creates a listener over bus. Panics on any nil
// dependency: a listener without its counters or logger is a wiring bug.
func NewMetricsEventListener(bus *ChannelEventBus, bestEffort, abandoned prometheus.Counter, log klonlog.Logger) *MetricsEventListener {
	if bus == nil || bestEffort == nil || abandoned == nil || log == nil {
		panic("MetricsEventListener requires a non-nil ChannelEventBus, Prometheus counters, and Logger")
	}
	return &MetricsEventListener{
		bus:                    bus,
		log:                    log.With("component", "MetricsEventListener"),
		bestEffortCounter:      bestEffort,
		abandonedSessionsCount: abandoned,
	}
}

// Start consumes events until the bus closes or ctx is cancelled. Run it in
// its own goroutine.
func (l *MetricsEventListener) Start(ctx context.Context) {
	l.log.Debugf("Starting metrics event listener...")
	for {
		select {
		case event, ok := <-l.bus.GetChannel():
			if !ok {
				l.log.Debugf("Event bus channel closed, stopping listener.")
				return
			}
			l.handleEvent(event)
		case <-ctx.Done():
			l.log.Debugf("Context cancelled, stopping metrics event listener.")
			return
		}
	}
}

func (l *MetricsEventListener) handleEvent(event events.Event) {
	switch event.Type {
	case events.BestEffortFailure:
		l.bestEffortCounter.Inc()
	case events.SessionAbandoned:
		l.abandonedSessionsCount.Inc()
	}
}
