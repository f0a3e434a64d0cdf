// pkg/event/event.go
package event

import (
	"sync"
)

// Type represents the type of event
type Type string

// Flight event types
const (
	LimiterDisabled Type = "limiter_disabled"
	CooldownStarted Type = "cooldown_started"
	CooldownEnded   Type = "cooldown_ended"
	StallEntered    Type = "stall_entered"
	StallRecovered  Type = "stall_recovered"
	SessionStarted  Type = "session_started"
	SessionEnded    Type = "session_ended"
)

// Event is the base interface for all events
type Event interface {
	GetType() Type
	GetSource() interface{}
}

// BaseEvent provides common functionality for all events
type BaseEvent struct {
	EventType Type
	Source    interface{}
}

// GetType returns the event type
func (e *BaseEvent) GetType() Type {
	return e.EventType
}

// GetSource returns the event source
func (e *BaseEvent) GetSource() interface{} {
	return e.Source
}

// Handler is a function that handles events
type Handler func(Event)

// Subscription identifies a registered handler. Cancel removes it.
type Subscription struct {
	ID     uint64
	Cancel func()
}

type entry struct {
	id      uint64
	handler Handler
}

// Bus manages event subscriptions and dispatching. Handlers run
// synchronously on the publishing goroutine.
type Bus struct {
	handlers map[Type][]entry
	nextID   uint64
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]entry),
		nextID:   1,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], entry{id: id, handler: handler})

	return &Subscription{
		ID:     id,
		Cancel: func() { b.unsubscribe(eventType, id) },
	}
}

func (b *Bus) unsubscribe(eventType Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.handlers[eventType]
	for i, e := range entries {
		if e.id == id {
			// copy so a Publish holding the old slice is unaffected
			next := make([]entry, 0, len(entries)-1)
			next = append(next, entries[:i]...)
			b.handlers[eventType] = append(next, entries[i+1:]...)
			return
		}
	}
}

// Publish sends an event to all subscribed handlers
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	entries := b.handlers[event.GetType()]
	b.mu.RUnlock()

	for _, e := range entries {
		e.handler(event)
	}
}

// Specific event implementations

// LimiterEvent reports an AoA limiter mode change.
type LimiterEvent struct {
	BaseEvent
	AircraftID        uint64
	From              string
	To                string
	AoA               float64
	CooldownRemaining float64
}

// NewLimiterEvent creates a new limiter event
func NewLimiterEvent(eventType Type, source interface{}, aircraftID uint64, from, to string, aoa, cooldown float64) *LimiterEvent {
	return &LimiterEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		AircraftID:        aircraftID,
		From:              from,
		To:                to,
		AoA:               aoa,
		CooldownRemaining: cooldown,
	}
}

// StallEvent reports entry into or recovery from a stall.
type StallEvent struct {
	BaseEvent
	AircraftID uint64
	Speed      float64
	Intensity  float64
	Duration   float64
}

// NewStallEvent creates a new stall event
func NewStallEvent(eventType Type, source interface{}, aircraftID uint64, speed, intensity, duration float64) *StallEvent {
	return &StallEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		AircraftID: aircraftID,
		Speed:      speed,
		Intensity:  intensity,
		Duration:   duration,
	}
}

// SessionEvent reports the start or end of a flight session.
type SessionEvent struct {
	BaseEvent
	SessionID string
	Ticks     uint64
}

// NewSessionEvent creates a new session event
func NewSessionEvent(eventType Type, source interface{}, sessionID string, ticks uint64) *SessionEvent {
	return &SessionEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		SessionID: sessionID,
		Ticks:     ticks,
	}
}
