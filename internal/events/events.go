package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"rentmarket/internal/metrics"

	"github.com/rs/zerolog"
)

const (
	EventReservationCreated = "reservation_created"
	EventStatusChanged      = "status_changed"
	EventSnapshot           = "snapshot"
)

// Event is an ephemeral reservation-scoped message. Not persisted; a
// subscriber that is not connected at publish time never sees it.
type Event struct {
	Type          string          `json:"type"`
	ReservationID string          `json:"reservation_id"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// New builds an event with the payload serialized to JSON.
func New(eventType, reservationID string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:          eventType,
		ReservationID: reservationID,
		Payload:       raw,
		CreatedAt:     time.Now(),
	}, nil
}

// Handler reacts to an event. Handlers run synchronously on the
// publisher's goroutine; a panicking handler is isolated.
type Handler func(Event)

// Sink forwards events to an external broker.
type Sink interface {
	Send(ctx context.Context, e Event) error
}

// Notifier provides in-process pub/sub keyed by reservation id.
type Notifier struct {
	mu     sync.RWMutex
	subs   map[string]map[int64]Handler
	nextID int64
	sinks  []Sink
	logger *zerolog.Logger
}

func NewNotifier(logger *zerolog.Logger, sinks ...Sink) *Notifier {
	return &Notifier{
		subs:   make(map[string]map[int64]Handler),
		sinks:  sinks,
		logger: logger,
	}
}

// Subscribe registers a handler for one reservation id. The caller must
// invoke the returned function on disconnect or the handler leaks.
func (n *Notifier) Subscribe(reservationID string, h Handler) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	id := n.nextID
	if n.subs[reservationID] == nil {
		n.subs[reservationID] = make(map[int64]Handler)
	}
	n.subs[reservationID][id] = h

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if handlers, ok := n.subs[reservationID]; ok {
			delete(handlers, id)
			if len(handlers) == 0 {
				delete(n.subs, reservationID)
			}
		}
	}
}

// SubscriberCount reports live handlers for a reservation id.
func (n *Notifier) SubscriberCount(reservationID string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs[reservationID])
}

// Publish delivers the event synchronously to all current subscribers of
// the reservation id, then forwards it to external sinks best-effort.
func (n *Notifier) Publish(reservationID string, e Event) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.ReservationID = reservationID

	n.mu.RLock()
	handlers := make([]Handler, 0, len(n.subs[reservationID]))
	for _, h := range n.subs[reservationID] {
		handlers = append(handlers, h)
	}
	n.mu.RUnlock()

	for _, h := range handlers {
		n.deliver(h, e)
	}
	metrics.IncEventPublished(e.Type)

	for _, sink := range n.sinks {
		if err := sink.Send(context.Background(), e); err != nil && n.logger != nil {
			n.logger.Error().Err(err).
				Str("event_type", e.Type).
				Str("reservation_id", reservationID).
				Msg("event sink send failed")
		}
	}
}

func (n *Notifier) deliver(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil && n.logger != nil {
			n.logger.Error().
				Interface("panic", r).
				Str("event_type", e.Type).
				Str("reservation_id", e.ReservationID).
				Msg("subscriber panicked")
		}
	}()
	h(e)
}

// PublishJSON serializes the payload and publishes an event.
func (n *Notifier) PublishJSON(reservationID, eventType string, payload any) error {
	if n == nil {
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	n.Publish(reservationID, Event{Type: eventType, Payload: raw})
	return nil
}
