// Package events provides the in-process implementations of the public
// events.Bus interface: a buffered channel bus, a no-op bus, and a listener
// that turns bus traffic into Prometheus metrics.
package events

import (
	"github.com/klon-labs/klon/pkg/klon/v1/events"
	klonlog "github.com/klon-labs/klon/pkg/klon/v1/log"
)

// ChannelEventBus implements events.Bus on a buffered Go channel. Emission is
// non-blocking: when the buffer is full the event is dropped with a warning,
// so a slow consumer can never stall a copy operation.
type ChannelEventBus struct {
	channel chan events.Event
	log     klonlog.Logger
}

// NewChannelEventBus creates a bus with the given buffer size (a default is
// applied for non-positive sizes). Panics on a nil logger.
func NewChannelEventBus(bufferSize int, log klonlog.Logger) *ChannelEventBus {
	const defaultBufferSize = 100
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if log == nil {
		panic("ChannelEventBus requires a non-nil logger")
	}

	bus := &ChannelEventBus{
		channel: make(chan events.Event, bufferSize),
		log:     log.With("component", "ChannelEventBus"),
	}
	bus.log.Debugf("ChannelEventBus initialized with buffer size %d", bufferSize)
	return bus
}

// Emit sends event onto the buffer without blocking the caller.
func (c *ChannelEventBus) Emit(event events.Event) {
	select {
	case c.channel <- event:
		c.log.Debugf("Emitted event type '%s'", event.Type)
	default:
		c.log.Warnf("Event channel buffer full, dropping event type '%s'", event.Type)
	}
}

// GetChannel exposes the read side of the bus for in-process consumers.
// Not part of the public events.Bus interface.
func (c *ChannelEventBus) GetChannel() <-chan events.Event {
	return c.channel
}

// Close closes the channel, signaling consumers that no more events follow.
func (c *ChannelEventBus) Close() {
	c.log.Debugf("Closing ChannelEventBus channel.")
	close(c.channel)
}

var _ events.Bus = (*ChannelEventBus)(nil)
