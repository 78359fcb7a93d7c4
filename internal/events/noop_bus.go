package events

import "github.com/klon-labs/klon/pkg/klon/v1/events"

// NoOpEventBus discards every event. It is the fallback when the engine is
// built without an event bus, so emitters never have to nil-check.
type NoOpEventBus struct{}

// NewNoOpEventBus returns a bus that does nothing.
func NewNoOpEventBus() events.Bus {
	return &NoOpEventBus{}
}

// Emit discards the event.
func (n *NoOpEventBus) Emit(event events.Event) {}

var _ events.Bus = (*NoOpEventBus)(nil)
