package bus

import (
	"fmt"
	"sync"

	"keyclue/internal/logger"
)

// Event is the envelope published on a topic
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// GameTopic is the per-game topic all connected clients observe
func GameTopic(code string) string {
	return fmt.Sprintf("game:%s", code)
}

// HostTopic is the per-game topic restricted to the host
func HostTopic(code string) string {
	return fmt.Sprintf("game:%s:host", code)
}

// Subscription receives events for one topic until unsubscribed
type Subscription struct {
	Topic string
	C     chan Event
}

// Bus is an in-process topic publish/subscribe fan-out. Publishing never
// blocks; a subscriber whose buffer is full misses that event.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

const subscriberBuffer = 256

func New() *Bus {
	return &Bus{
		subs: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe registers interest in a topic
func (b *Bus) Subscribe(topic string) *Subscription {
	sub := &Subscription{
		Topic: topic,
		C:     make(chan Event, subscriberBuffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*Subscription]struct{})
	}
	b.subs[topic][sub] = struct{}{}
	return sub
}

// Unsubscribe removes a subscription and closes its channel. Safe to call
// more than once.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subs[sub.Topic]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(b.subs, sub.Topic)
	}
	close(sub.C)
}

// Publish fans an event out to every subscriber of the topic
func (b *Bus) Publish(topic string, evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[topic] {
		select {
		case sub.C <- evt:
		default:
			logger.Debug("bus: dropping event for slow subscriber", "topic", topic, "type", evt.Type)
		}
	}
}

// SubscriberCount reports how many subscriptions a topic currently has
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
