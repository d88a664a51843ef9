// pkg/event/event.go
package event

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opd-ai/go-quadcollide/pkg/collision"
)

// Type represents the type of event
type Type string

// Simulation event types
const (
	BodyCollision  Type = "body_collision"
	BodyAdded      Type = "body_added"
	BodyRemoved    Type = "body_removed"
	TickCompleted  Type = "tick_completed"
	ConfigReloaded Type = "config_reloaded"
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
	Type   Type
	Cancel func()
}

type registration struct {
	id      uint64
	handler Handler
}

// Bus manages event subscriptions and dispatching
type Bus struct {
	handlers map[Type][]registration
	nextID   uint64
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]registration),
		nextID:   1,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], registration{id: id, handler: handler})

	return &Subscription{
		ID:     id,
		Type:   eventType,
		Cancel: func() { b.unsubscribe(eventType, id) },
	}
}

func (b *Bus) unsubscribe(eventType Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	regs := b.handlers[eventType]
	for i, r := range regs {
		if r.id == id {
			b.handlers[eventType] = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}
	if len(b.handlers[eventType]) == 0 {
		delete(b.handlers, eventType)
	}
}

// Publish sends an event to all subscribed handlers. Handlers run on the
// calling goroutine, in subscription order.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	regs := b.handlers[event.GetType()]
	b.mu.RUnlock()

	for _, r := range regs {
		r.handler(event)
	}
}

// CollisionEvent reports one overlap found during a tick
type CollisionEvent struct {
	BaseEvent
	Tick    uint64
	Details collision.Details
}

// NewCollisionEvent creates a new collision event
func NewCollisionEvent(source interface{}, tick uint64, details collision.Details) *CollisionEvent {
	return &CollisionEvent{
		BaseEvent: BaseEvent{
			EventType: BodyCollision,
			Source:    source,
		},
		Tick:    tick,
		Details: details,
	}
}

// BodyEvent reports a body joining or leaving the simulation
type BodyEvent struct {
	BaseEvent
	BodyID uuid.UUID
}

// NewBodyEvent creates a new body event
func NewBodyEvent(eventType Type, source interface{}, bodyID uuid.UUID) *BodyEvent {
	return &BodyEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		BodyID: bodyID,
	}
}

// TickEvent summarises a completed simulation step
type TickEvent struct {
	BaseEvent
	Tick       uint64
	Collisions int
	Stats      collision.Stats
	Elapsed    time.Duration
}

// NewTickEvent creates a new tick event
func NewTickEvent(source interface{}, tick uint64, collisions int, stats collision.Stats, elapsed time.Duration) *TickEvent {
	return &TickEvent{
		BaseEvent: BaseEvent{
			EventType: TickCompleted,
			Source:    source,
		},
		Tick:       tick,
		Collisions: collisions,
		Stats:      stats,
		Elapsed:    elapsed,
	}
}

// ConfigEvent reports that a configuration file was reloaded
type ConfigEvent struct {
	BaseEvent
	Path string
}

// NewConfigEvent creates a new config event
func NewConfigEvent(source interface{}, path string) *ConfigEvent {
	return &ConfigEvent{
		BaseEvent: BaseEvent{
			EventType: ConfigReloaded,
			Source:    source,
		},
		Path: path,
	}
}
