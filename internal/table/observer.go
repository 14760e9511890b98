package table

import "time"

// EventType represents different phases in table operation execution
type EventType string

const (
	EventInsert    EventType = "insert"
	EventSearch    EventType = "search"
	EventUpdate    EventType = "update"
	EventDelete    EventType = "delete"
	EventCacheHit  EventType = "cache_hit"
	EventCacheMiss EventType = "cache_miss"
)

// Event represents one table operation outcome
type Event struct {
	Type      EventType // Type of event
	OpID      string    // Operation ID for tracing
	Table     string    // Table the operation ran against
	Field     string    // Field addressed by the operation (if any)
	Value     string    // Value addressed by the operation (if any)
	Timestamp time.Time // When the event occurred
	Err       string    // Error rendering when the operation failed
}

// Observer interface for event subscribers
// Observers receive events as each table operation completes
type Observer interface {
	OnEvent(event Event)
}
