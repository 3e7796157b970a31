// Package bus implements the in-process event surface shared by the
// coherence source and the orchestrator. Delivery is synchronous and FIFO
// per publisher: handlers run to completion, in subscription order, on the
// publishing goroutine. The pipeline relies on this ordering: a cycle's
// measurement event is fully handled before its completion event fires.
package bus

import (
	"sync"
	"time"
)

// Event names published by the core.
const (
	EventMeasurement       = "measurement"
	EventState             = "state"
	EventPhaseChange       = "phaseChange"
	EventPerturbed         = "perturbed"
	EventPerturbationEnded = "perturbationEnded"
	EventStarted           = "started"
	EventStopped           = "stopped"
	EventParametersUpdated = "parametersUpdated"
	EventVariantRegistered = "variantRegistered"
	EventVariantUpdated    = "variantUpdated"
	EventVariantRemoved    = "variantRemoved"
	EventVariantsResonated = "variantsResonated"
	EventCycleCompleted    = "cycleCompleted"
)

// Event is a named notification with an arbitrary payload.
type Event struct {
	Name    string
	Payload any
	Time    time.Time
}

// Handler consumes events. Handlers must not block; they execute inline on
// the publisher's goroutine.
type Handler func(Event)

type subscription struct {
	id      int
	handler Handler
}

// Bus routes events from publishers to subscribers.
// The zero value is not usable; construct with New.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[string][]subscription
}

// New creates an empty event bus.
func New() *Bus {
	return &Bus{subs: make(map[string][]subscription)}
}

// Subscribe registers h for events with the given name and returns a handle
// for Unsubscribe.
func (b *Bus) Subscribe(name string, h Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subs[name] = append(b.subs[name], subscription{id: b.nextID, handler: h})
	return b.nextID
}

// Unsubscribe removes the subscription with the given handle. Unknown
// handles are ignored.
func (b *Bus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for name, subs := range b.subs {
		for i, s := range subs {
			if s.id == id {
				b.subs[name] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers an event synchronously to all subscribers of name, in
// subscription order. Subscribers added or removed by a handler take effect
// on the next Publish, not the current one.
func (b *Bus) Publish(name string, payload any) {
	b.mu.Lock()
	subs := make([]subscription, len(b.subs[name]))
	copy(subs, b.subs[name])
	b.mu.Unlock()

	ev := Event{Name: name, Payload: payload, Time: time.Now()}
	for _, s := range subs {
		s.handler(ev)
	}
}
