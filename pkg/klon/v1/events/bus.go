package events

import "time"

// EventType represents the type of a KLON engine event.
type EventType string

// Standard KLON Event Types
const (
	OperationStart    EventType = "OperationStart"    // A clone/shallow/replicate operation began
	OperationEnd      EventType = "OperationEnd"      // Operation finished successfully
	OperationFailed   EventType = "OperationFailed"   // Operation aborted with a fatal error
	BestEffortFailure EventType = "BestEffortFailure" // Per-item state/extension failure, operation continued
	SessionAbandoned  EventType = "SessionAbandoned"  // A pooled memo session was exposed and not reused
)

// Event represents a significant occurrence within the KLON engine.
type Event struct {
	// Type categorizes the event.
	Type EventType `json:"type"`
	// Timestamp marks when the event occurred.
	Timestamp time.Time `json:"timestamp"`
	// OperationID uniquely identifies one engine operation across its events.
	OperationID string `json:"operation_id,omitempty"`
	// Operation names the public entry point: "clone", "shallow_clone",
	// or "replicate".
	Operation string `json:"operation,omitempty"`
	// RootType names the root object's type, if applicable.
	RootType string `json:"root_type,omitempty"`
	// Payload contains event-specific data (durations, node counts,
	// error strings).
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Bus defines the interface for publishing events within the KLON engine.
// Implementations could include logging, sending to message queues, etc.
type Bus interface {
	// Emit publishes an event to the bus. Implementations should be
	// non-blocking or handle blocking carefully to avoid slowing down the
	// engine core.
	Emit(event Event)
}
