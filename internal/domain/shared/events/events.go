package events

import "time"

// DomainEvent is raised by an aggregate when something externally relevant
// happened to it.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// EventRecorder collects events on an aggregate until the application layer
// drains them into the outbox.
type EventRecorder struct {
	pending []DomainEvent
}

// Record appends an event to the pending list.
func (r *EventRecorder) Record(ev DomainEvent) {
	r.pending = append(r.pending, ev)
}

// PendingEvents returns the events recorded since the last ClearEvents.
func (r *EventRecorder) PendingEvents() []DomainEvent {
	return r.pending
}

// ClearEvents drops the pending list.
func (r *EventRecorder) ClearEvents() {
	r.pending = nil
}
