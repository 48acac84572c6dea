// Package events carries data-changed notifications from the write paths
// to whichever surfaces need to re-pull (live product grids, sale lists).
// Subscribers never push computation back into the core; they only get a
// signal that a topic's underlying rows changed.
package events

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type Topic string

const (
	TopicSalesChanged     Topic = "sales.changed"
	TopicProductsChanged  Topic = "products.changed"
	TopicCustomersChanged Topic = "customers.changed"
)

// Event is an opaque change marker. Consumers re-read the data they care
// about; the event intentionally carries no row payload.
type Event struct {
	Topic Topic
	At    time.Time
}

type subscriber struct {
	topic Topic
	ch    chan Event
}

// Bus fans change events out to subscribers. Publishing never blocks the
// write path: a subscriber that cannot keep up misses events and is
// expected to re-pull on the next one it receives.
type Bus struct {
	mu   sync.RWMutex
	log  *zap.Logger
	subs map[*subscriber]struct{}
}

func NewBus(log *zap.Logger) *Bus {
	return &Bus{
		log:  log.Named("events.bus"),
		subs: make(map[*subscriber]struct{}),
	}
}

// Subscribe registers for a topic. The returned cancel func must be called
// when the consumer goes away.
func (b *Bus) Subscribe(topic Topic, buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	sub := &subscriber{topic: topic, ch: make(chan Event, buffer)}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[sub]; ok {
			delete(b.subs, sub)
			close(sub.ch)
		}
		b.mu.Unlock()
	}
	return sub.ch, cancel
}

// Publish notifies every subscriber of topic. Saturated subscribers are
// skipped and logged.
func (b *Bus) Publish(topic Topic) {
	evt := Event{Topic: topic, At: time.Now().UTC()}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		if sub.topic != topic {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			b.log.Debug("subscriber saturated, dropping event", zap.String("topic", string(topic)))
		}
	}
}
