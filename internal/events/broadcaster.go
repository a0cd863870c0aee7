package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/debatearena/debatearena/internal/metrics"
)

// BroadcasterConfig holds fan-out tuning knobs.
type BroadcasterConfig struct {
	BufferSize      int           // Buffer size for subscriber channels
	DeliveryTimeout time.Duration // Per-recipient send deadline before removal
	MaxSubscribers  int           // Maximum concurrent subscribers per session
}

// DefaultBroadcasterConfig returns the default fan-out configuration.
func DefaultBroadcasterConfig() *BroadcasterConfig {
	return &BroadcasterConfig{
		BufferSize:      256,
		DeliveryTimeout: 5 * time.Second,
		MaxSubscribers:  100,
	}
}

// Subscription is one recipient's view of a session's event stream.
type Subscription struct {
	ID      string
	channel chan *Event
	types   map[EventType]struct{} // empty means all types

	mu     sync.RWMutex
	closed bool
}

// Events returns the receive channel. It is closed when the subscription is
// removed or the broadcaster shuts down.
func (s *Subscription) Events() <-chan *Event { return s.channel }

func (s *Subscription) wants(eventType EventType) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[eventType]
	return ok
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.channel)
	}
}

// trySend delivers event within timeout. Returns false when the subscriber
// is closed or its buffer stayed full past the deadline.
func (s *Subscription) trySend(event *Event, timeout time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case s.channel <- event:
		return true
	case <-timer.C:
		return false
	}
}

// BroadcastStats tracks per-session fan-out counters.
type BroadcastStats struct {
	EventsPublished    int64
	EventsDelivered    int64
	EventsDropped      int64
	SubscribersRemoved int64
}

// Broadcaster fans a session's events out to every subscriber. Each
// subscriber sees events in publish order; one stalled subscriber never
// delays the others beyond the delivery timeout, after which it is removed
// so it cannot stall the session twice.
//
// Publish must not be called concurrently for the same session; the
// orchestrator is the sole publisher.
type Broadcaster struct {
	sessionID string
	config    *BroadcasterConfig
	logger    *zap.Logger

	mu     sync.Mutex
	seq    uint64
	subs   map[string]*Subscription
	closed bool

	stats BroadcastStats
}

// NewBroadcaster creates a fan-out hub for one debate session.
func NewBroadcaster(sessionID string, config *BroadcasterConfig, logger *zap.Logger) *Broadcaster {
	if config == nil {
		config = DefaultBroadcasterConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{
		sessionID: sessionID,
		config:    config,
		logger:    logger.With(zap.String("session_id", sessionID)),
		subs:      make(map[string]*Subscription),
	}
}

// Subscribe registers a recipient for all event types.
func (b *Broadcaster) Subscribe() (*Subscription, error) {
	return b.SubscribeTypes()
}

// SubscribeTypes registers a recipient limited to the given event types;
// with no types it receives everything.
func (b *Broadcaster) SubscribeTypes(types ...EventType) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("broadcaster for session %s is closed", b.sessionID)
	}
	if len(b.subs) >= b.config.MaxSubscribers {
		return nil, fmt.Errorf("session %s subscriber limit reached (%d)", b.sessionID, b.config.MaxSubscribers)
	}

	sub := &Subscription{
		ID:      uuid.New().String(),
		channel: make(chan *Event, b.config.BufferSize),
	}
	if len(types) > 0 {
		sub.types = make(map[EventType]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	b.subs[sub.ID] = sub
	metrics.SubscriberAdded()
	return sub, nil
}

// Unsubscribe removes a recipient and closes its channel. Unknown IDs are
// ignored.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()

	if ok {
		sub.close()
		metrics.SubscriberRemoved()
	}
}

// Publish assigns the next sequence number and delivers the event to every
// subscriber concurrently, waiting for all deliveries before returning.
// A recipient that misses the delivery deadline is dropped from the
// session.
func (b *Broadcaster) Publish(eventType EventType, payload interface{}) {
	event := NewEvent(b.sessionID, eventType, payload)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.seq++
	event.Seq = b.seq
	targets := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		targets = append(targets, sub)
	}
	b.mu.Unlock()

	atomic.AddInt64(&b.stats.EventsPublished, 1)
	metrics.EventPublished(string(eventType))

	var wg sync.WaitGroup
	for _, sub := range targets {
		if !sub.wants(eventType) {
			continue
		}
		wg.Add(1)
		go func(sub *Subscription) {
			defer wg.Done()
			if sub.trySend(event, b.config.DeliveryTimeout) {
				atomic.AddInt64(&b.stats.EventsDelivered, 1)
				return
			}
			atomic.AddInt64(&b.stats.EventsDropped, 1)
			atomic.AddInt64(&b.stats.SubscribersRemoved, 1)
			metrics.EventDropped()
			b.logger.Warn("dropping slow subscriber",
				zap.String("subscriber_id", sub.ID),
				zap.String("event_type", string(eventType)),
				zap.Uint64("seq", event.Seq),
			)
			b.Unsubscribe(sub.ID)
		}(sub)
	}
	wg.Wait()
}

// Wait blocks until an event of the given type arrives or ctx expires. The
// temporary subscription is removed either way.
func (b *Broadcaster) Wait(ctx context.Context, eventType EventType) (*Event, error) {
	sub, err := b.SubscribeTypes(eventType)
	if err != nil {
		return nil, err
	}
	defer b.Unsubscribe(sub.ID)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case event, ok := <-sub.Events():
		if !ok {
			return nil, fmt.Errorf("broadcaster for session %s is closed", b.sessionID)
		}
		return event, nil
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Stats returns a snapshot of the fan-out counters.
func (b *Broadcaster) Stats() BroadcastStats {
	return BroadcastStats{
		EventsPublished:    atomic.LoadInt64(&b.stats.EventsPublished),
		EventsDelivered:    atomic.LoadInt64(&b.stats.EventsDelivered),
		EventsDropped:      atomic.LoadInt64(&b.stats.EventsDropped),
		SubscribersRemoved: atomic.LoadInt64(&b.stats.SubscribersRemoved),
	}
}

// Close shuts the broadcaster down and closes every subscriber channel.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.subs = make(map[string]*Subscription)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.close()
		metrics.SubscriberRemoved()
	}
}
