package pubsub

import (
	"fmt"
	"sync"
	"time"
)

const defaultWait = 3 * time.Second

type Broker struct {
	topics map[string][]*Subscriber
	wait   time.Duration
	sync.RWMutex
}

// NewBroker returns a broker whose Publish waits up to wait for a topic to get
// its first subscriber. A zero wait uses the default of three seconds.
func NewBroker(wait time.Duration) *Broker {
	if wait <= 0 {
		wait = defaultWait
	}
	return &Broker{
		topics: make(map[string][]*Subscriber),
		wait:   wait,
	}
}

// Publish delivers data to every subscriber of topic, blocking until each one
// has accepted it or has been closed.
func (b *Broker) Publish(topic string, data any) error {
	deadline := time.NewTimer(b.wait)
	defer deadline.Stop()

	poll := time.NewTicker(b.wait / 30)
	defer poll.Stop()

	for {
		b.RLock()
		subs := append([]*Subscriber(nil), b.topics[topic]...)
		b.RUnlock()

		if len(subs) > 0 {
			for _, sub := range subs {
				sub.Signal(data)
			}
			return nil
		}

		select {
		case <-deadline.C:
			return fmt.Errorf("topic[%s] does not exist", topic)
		case <-poll.C:
		}
	}
}

func (b *Broker) Subscribe(topic string, s *Subscriber) {
	b.Lock()
	defer b.Unlock()
	{
		b.topics[topic] = append(b.topics[topic], s)
	}
}

func (b *Broker) UnSubscribe(topic string, s *Subscriber) error {
	b.Lock()
	defer b.Unlock()
	{
		subs, exists := b.topics[topic]
		if !exists {
			return fmt.Errorf("topic[%s] does not exists", topic)
		}

		subs = removeFromSlice(subs, s)
		if len(subs) == 0 {
			delete(b.topics, topic)
		} else {
			b.topics[topic] = subs
		}
		s.CloseChannel()
	}

	return nil
}

// =================================================================================================================

func removeFromSlice[T comparable](s []T, d T) []T {
	for i := range s {
		if s[i] == d {
			s[i] = s[len(s)-1]
			return s[:len(s)-1]
		}
	}
	return s
}
