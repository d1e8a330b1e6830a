// Package pubsub distributes engine events (completed predictions,
// generated strategies, flagged nodes) to in-process subscribers such as
// the watch TUI. Slow subscribers drop events instead of blocking the
// publisher.
package pubsub

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Topics carried by the bus.
const (
	TopicPredictions  = "predictions"
	TopicStrategies   = "strategies"
	TopicFlaggedNodes = "flagged_nodes"
)

// ErrBusClosed reports a subscribe attempt after shutdown.
var ErrBusClosed = errors.New("pubsub: bus closed")

// subscriptionBuffer is the per-subscriber event backlog before drops.
const subscriptionBuffer = 100

// Event wraps one payload published to a topic.
type Event struct {
	Topic   string
	At      time.Time
	Payload any
}

// Bus fans events out to per-topic subscribers.
type Bus struct {
	subscribers map[string]map[*Subscription]bool
	mu          sync.RWMutex
	shutdown    chan struct{}
	shutdownMu  sync.Mutex
	isShutdown  bool
}

// Subscription is one subscriber's feed for a single topic.
type Subscription struct {
	topic     string
	events    chan Event
	bus       *Bus
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string]map[*Subscription]bool),
		shutdown:    make(chan struct{}),
	}
}

// Subscribe creates a subscription to a topic. The subscription ends when
// the context is cancelled, Unsubscribe is called, or the bus shuts down.
func (b *Bus) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return nil, ErrBusClosed
	}
	b.shutdownMu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		topic:  topic,
		events: make(chan Event, subscriptionBuffer),
		bus:    b,
		ctx:    subCtx,
		cancel: cancel,
	}

	b.mu.Lock()
	if b.subscribers[topic] == nil {
		b.subscribers[topic] = make(map[*Subscription]bool)
	}
	b.subscribers[topic][sub] = true
	b.mu.Unlock()

	go func() {
		select {
		case <-subCtx.Done():
			sub.Unsubscribe()
		case <-b.shutdown:
			sub.close()
		}
	}()

	return sub, nil
}

// Publish delivers a payload to every subscriber of a topic. Subscribers
// whose backlog is full miss the event; the publisher never blocks.
func (b *Bus) Publish(topic string, payload any) {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return
	}
	b.shutdownMu.Unlock()

	// Snapshot subscribers so channel sends happen outside the lock.
	b.mu.RLock()
	topicSubs := b.subscribers[topic]
	if len(topicSubs) == 0 {
		b.mu.RUnlock()
		return
	}
	subs := make([]*Subscription, 0, len(topicSubs))
	for sub := range topicSubs {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	event := Event{Topic: topic, At: time.Now(), Payload: payload}
	for _, sub := range subs {
		select {
		case sub.events <- event:
		default:
			// Backlog full, drop for this subscriber.
		}
	}
}

// SubscriberCount returns the number of subscribers for a topic.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[topic])
}

// Shutdown closes all subscriptions and rejects further activity.
func (b *Bus) Shutdown() {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return
	}
	b.isShutdown = true
	b.shutdownMu.Unlock()

	close(b.shutdown)

	b.mu.Lock()
	for topic := range b.subscribers {
		for sub := range b.subscribers[topic] {
			sub.close()
		}
		delete(b.subscribers, topic)
	}
	b.mu.Unlock()
}

// Events returns the subscription's event feed. The channel closes when
// the subscription ends.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Topic returns the topic this subscription follows.
func (s *Subscription) Topic() string {
	return s.topic
}

// Unsubscribe removes the subscription and closes its feed.
func (s *Subscription) Unsubscribe() {
	s.cancel()

	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if s.bus.subscribers[s.topic] != nil {
		delete(s.bus.subscribers[s.topic], s)
		if len(s.bus.subscribers[s.topic]) == 0 {
			delete(s.bus.subscribers, s.topic)
		}
	}

	s.close()
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.events)
	})
}
