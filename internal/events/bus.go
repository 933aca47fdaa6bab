// Package events provides the in-process event bus for movement lifecycle
// notifications. Events are logged and fanned out to subscribers (the SSE
// stream handler among them).
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType represents different event types
type EventType string

const (
	MovementCreated   EventType = "MOVEMENT_CREATED"
	MovementUpdated   EventType = "MOVEMENT_UPDATED"
	MovementDeleted   EventType = "MOVEMENT_DELETED"
	PairCreated       EventType = "PAIR_CREATED"
	PairUpdated       EventType = "PAIR_UPDATED"
	PairDeleted       EventType = "PAIR_DELETED"
	AttachmentsSynced EventType = "ATTACHMENTS_SYNCED"
	TaxonomyRefreshed EventType = "TAXONOMY_REFRESHED"
	ErrorOccurred     EventType = "ERROR_OCCURRED"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Module    string                 `json:"module"`
	Data      map[string]interface{} `json:"data"`
}

// Bus handles event emission, logging and fan-out to subscribers
type Bus struct {
	log         zerolog.Logger
	mu          sync.RWMutex
	subscribers map[int]chan Event
	nextID      int
}

// NewBus creates a new event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		log:         log.With().Str("service", "events").Logger(),
		subscribers: make(map[int]chan Event),
	}
}

// Subscribe registers a subscriber channel. The returned cancel function
// removes the subscription and closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	ch := make(chan Event, 16)
	b.subscribers[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Emit emits an event to the log and all subscribers. Slow subscribers are
// skipped rather than blocking the emitter.
func (b *Bus) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Module:    module,
		Data:      data,
	}

	eventJSON, _ := json.Marshal(event)
	b.log.Info().
		Str("event_type", string(eventType)).
		Str("module", module).
		RawJSON("event", eventJSON).
		Msg("Event emitted")

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// EmitError emits an error event
func (b *Bus) EmitError(module string, err error, context map[string]interface{}) {
	data := map[string]interface{}{
		"error":   err.Error(),
		"context": context,
	}
	b.Emit(ErrorOccurred, module, data)
}
