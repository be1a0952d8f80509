package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventHandler is a function that processes events.
type EventHandler func(Event)

// EventFilter is a function that determines if an event should be delivered.
type EventFilter func(Event) bool

// Subscription represents one subscriber's registration on the bus.
type Subscription struct {
	ID      string
	Filter  EventFilter
	Handler EventHandler
	Channel chan Event
	closed  bool
	mu      sync.RWMutex
}

// Close closes the subscription.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		if s.Channel != nil {
			close(s.Channel)
		}
		s.closed = true
	}
}

// IsClosed returns whether the subscription is closed.
func (s *Subscription) IsClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// send attempts a non-blocking delivery on the subscription channel. It
// holds the subscription lock so a concurrent Close cannot close the
// channel between the closed check and the send.
func (s *Subscription) send(event Event) (sent, dropped bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed || s.Channel == nil {
		return false, false
	}
	select {
	case s.Channel <- event:
		return true, false
	default:
		return false, true
	}
}

// BusMetrics tracks bus activity for the debug surface.
type BusMetrics struct {
	ActiveSubscriptions int
	EventsPublished     int64
	EventsDelivered     int64
	EventsDropped       int64
	EventsByType        map[EventType]int64
	LastEventTime       time.Time
}

// Bus provides publish/subscribe fan-out for engine events. The registry
// is the single publisher; UI layers and notifiers subscribe.
type Bus interface {
	Publish(event Event)
	Subscribe(filter EventFilter, handler EventHandler) *Subscription
	SubscribeChannel(filter EventFilter, bufferSize int) *Subscription
	Unsubscribe(sub *Subscription)
	Metrics() BusMetrics
	Close()
}

// DefaultBus is the default Bus implementation.
type DefaultBus struct {
	subscriptions map[string]*Subscription
	metrics       BusMetrics
	mu            sync.RWMutex
	closed        bool
}

// NewBus creates a new event bus.
func NewBus() *DefaultBus {
	return &DefaultBus{
		subscriptions: make(map[string]*Subscription),
		metrics:       BusMetrics{EventsByType: make(map[EventType]int64)},
	}
}

// Publish delivers the event to every matching subscription. Handlers run
// on their own goroutines and channel sends never block: a full buffer
// drops the event for that subscriber rather than stalling the publisher.
func (b *DefaultBus) Publish(event Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	subs := make([]*Subscription, 0, len(b.subscriptions))
	for _, s := range b.subscriptions {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	var delivered, dropped int64
	for _, sub := range subs {
		if sub.IsClosed() {
			b.Unsubscribe(sub)
			continue
		}
		if sub.Filter != nil && !sub.Filter(event) {
			continue
		}
		if sub.Handler != nil {
			go func(handler EventHandler, evt Event) {
				defer func() {
					// A panicking subscriber must not take the bus down.
					_ = recover()
				}()
				handler(evt)
			}(sub.Handler, event)
			delivered++
		}
		if sent, wasDropped := sub.send(event); sent {
			delivered++
		} else if wasDropped {
			dropped++
		}
	}

	b.mu.Lock()
	b.metrics.EventsPublished++
	b.metrics.EventsByType[event.Type()]++
	b.metrics.EventsDelivered += delivered
	b.metrics.EventsDropped += dropped
	b.metrics.LastEventTime = event.Time
	b.mu.Unlock()
}

// Subscribe registers a handler-based subscription.
func (b *DefaultBus) Subscribe(filter EventFilter, handler EventHandler) *Subscription {
	return b.add(&Subscription{
		ID:      uuid.New().String(),
		Filter:  filter,
		Handler: handler,
	})
}

// SubscribeChannel registers a channel-based subscription.
func (b *DefaultBus) SubscribeChannel(filter EventFilter, bufferSize int) *Subscription {
	return b.add(&Subscription{
		ID:      uuid.New().String(),
		Filter:  filter,
		Channel: make(chan Event, bufferSize),
	})
}

func (b *DefaultBus) add(sub *Subscription) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.subscriptions[sub.ID] = sub
	b.metrics.ActiveSubscriptions++
	return sub
}

// Unsubscribe removes a subscription.
func (b *DefaultBus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.subscriptions[sub.ID]; exists {
		sub.Close()
		delete(b.subscriptions, sub.ID)
		b.metrics.ActiveSubscriptions--
	}
}

// Metrics returns a copy of the bus metrics.
func (b *DefaultBus) Metrics() BusMetrics {
	b.mu.RLock()
	defer b.mu.RUnlock()
	m := b.metrics
	m.EventsByType = make(map[EventType]int64, len(b.metrics.EventsByType))
	for k, v := range b.metrics.EventsByType {
		m.EventsByType[k] = v
	}
	return m
}

// Close closes the bus and every subscription.
func (b *DefaultBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for _, sub := range b.subscriptions {
		sub.Close()
	}
	b.subscriptions = make(map[string]*Subscription)
	b.metrics.ActiveSubscriptions = 0
}

var _ Bus = (*DefaultBus)(nil)

// FilterByType creates a filter that matches events of specific types.
func FilterByType(eventTypes ...EventType) EventFilter {
	typeMap := make(map[EventType]bool, len(eventTypes))
	for _, t := range eventTypes {
		typeMap[t] = true
	}
	return func(event Event) bool {
		return typeMap[event.Type()]
	}
}

// FilterByPort creates a filter that matches events for specific ports.
func FilterByPort(portSet ...uint16) EventFilter {
	m := make(map[uint16]bool, len(portSet))
	for _, p := range portSet {
		m[p] = true
	}
	return func(event Event) bool {
		return m[event.Port]
	}
}

// CombineFilters combines multiple filters with AND logic.
func CombineFilters(filters ...EventFilter) EventFilter {
	return func(event Event) bool {
		for _, f := range filters {
			if !f(event) {
				return false
			}
		}
		return true
	}
}
