package ecs

import "sync"

// Event is a generic ECS event payload.
type Event struct {
	Type string
	Data any
}

const (
	EventSpawned    = "spawned"
	EventTeleported = "teleported"
	EventMigrated   = "migrated"
)

// EventQueue is a FIFO queue safe for concurrent producers.
type EventQueue struct {
	mu    sync.Mutex
	items []Event
}

// Push adds an event.
func (q *EventQueue) Push(evt Event) {
	if q == nil {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, evt)
	q.mu.Unlock()
}

// Drain returns all events and clears the queue.
func (q *EventQueue) Drain() []Event {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}
