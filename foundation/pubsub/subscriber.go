package pubsub

import "sync"

type Subscriber struct {
	payload chan any
	done    chan struct{}
	once    sync.Once
}

func NewSubscriber(channelCapacity int) *Subscriber {
	if channelCapacity < 0 {
		channelCapacity = 0
	}
	return &Subscriber{
		payload: make(chan any, channelCapacity),
		done:    make(chan struct{}),
	}
}

// Signal hands data to the subscriber. It reports false when the subscriber
// was closed before accepting it.
func (s *Subscriber) Signal(data any) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.payload <- data:
		return true
	case <-s.done:
		return false
	}
}

func (s *Subscriber) GetChannel() <-chan any {
	return s.payload
}

// CloseChannel stops further deliveries. The payload channel is left open so a
// concurrent Signal can never panic.
func (s *Subscriber) CloseChannel() {
	s.once.Do(func() {
		close(s.done)
	})
}
