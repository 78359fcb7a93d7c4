package events

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	klonevents "github.com/klon-labs/klon/pkg/klon/v1/events"

	"github.com/klon-labs/klon/internal/logger"
)

func newTestBus() *ChannelEventBus {
	return NewChannelEventBus(4, logger.NewLogger("error", "text", io.Discard))
}

func TestChannelEventBus_EmitAndReceive(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	bus.Emit(klonevents.Event{Type: klonevents.OperationStart, Operation: "clone"})

	select {
	case ev := <-bus.GetChannel():
		assert.Equal(t, klonevents.OperationStart, ev.Type)
		assert.Equal(t, "clone", ev.Operation)
	case <-time.After(time.Second):
		t.Fatal("event never arrived")
	}
}

func TestChannelEventBus_DropsWhenFull(t *testing.T) {
	bus := NewChannelEventBus(1, logger.NewLogger("error", "text", io.Discard))
	defer bus.Close()

	bus.Emit(klonevents.Event{Type: klonevents.OperationStart})
	// Buffer is full now; this emit must return instead of blocking.
	done := make(chan struct{})
	go func() {
		bus.Emit(klonevents.Event{Type: klonevents.OperationEnd})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full buffer")
	}

	ev := <-bus.GetChannel()
	assert.Equal(t, klonevents.OperationStart, ev.Type, "first event survives, second is dropped")
}

func TestChannelEventBus_RequiresLogger(t *testing.T) {
	assert.Panics(t, func() { NewChannelEventBus(1, nil) })
}

func TestNoOpEventBus_EmitIsInert(t *testing.T) {
	var bus NoOpEventBus
	assert.NotPanics(t, func() {
		bus.Emit(klonevents.Event{Type: klonevents.OperationFailed})
	})
}

func TestMetricsEventListener_CountsEvents(t *testing.T) {
	log := logger.NewLogger("error", "text", io.Discard)
	bus := NewChannelEventBus(8, log)

	bestEffort := prometheus.NewCounter(prometheus.CounterOpts{Name: "best_effort_test"})
	abandoned := prometheus.NewCounter(prometheus.CounterOpts{Name: "abandoned_test"})
	listener := NewMetricsEventListener(bus, bestEffort, abandoned, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopped := make(chan struct{})
	go func() {
		listener.Start(ctx)
		close(stopped)
	}()

	bus.Emit(klonevents.Event{Type: klonevents.BestEffortFailure})
	bus.Emit(klonevents.Event{Type: klonevents.BestEffortFailure})
	bus.Emit(klonevents.Event{Type: klonevents.SessionAbandoned})
	bus.Emit(klonevents.Event{Type: klonevents.OperationEnd})

	bus.Close()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("listener did not stop on bus close")
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(bestEffort))
	assert.Equal(t, float64(1), testutil.ToFloat64(abandoned))
}
