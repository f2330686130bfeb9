package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"shiftboard/internal/models"
)

// Shift lifecycle event types.
const (
	ShiftCreated = "shift.created"
	ShiftUpdated = "shift.updated"
	ShiftDeleted = "shift.deleted"
)

// Event is published after a shift write has been committed.
type Event struct {
	Type      string
	ShiftID   int64
	Shift     *models.Shift // nil for deletions
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

// NewEventBus constructs an empty bus. Handler errors are logged to logger.
func NewEventBus(logger *zerolog.Logger) *EventBus {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &EventBus{subscribers: make(map[string][]EventHandler), logger: logger}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers handler for every shift lifecycle event.
func (b *EventBus) SubscribeAll(handler EventHandler) {
	for _, t := range []string{ShiftCreated, ShiftUpdated, ShiftDeleted} {
		b.Subscribe(t, handler)
	}
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		if err := handler(event); err != nil {
			b.logger.Warn().Err(err).Str("event", event.Type).Int64("shift_id", event.ShiftID).Msg("event handler failed")
		}
	}
}
