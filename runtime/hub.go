// Package runtime handles change propagation between the repositories
// and their live subscribers. It orchestrates delivery without
// containing business logic or domain rules.
package runtime

import (
	"sync"
)

// Topic identifies one stream of store changes, e.g. the message log
// of a single conversation.
type Topic string

// Hub fans a change signal out to every subscription of a topic.
// Signals carry no payload: a subscriber re-reads a full snapshot per
// signal, which keeps delivery at-least-once and reapplication
// idempotent.
type Hub struct {
	mu   sync.RWMutex
	subs map[Topic]map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[Topic]map[*Subscription]struct{})}
}

// Subscribe registers interest in a topic. The caller owns the
// returned subscription and must cancel it when done.
func (h *Hub) Subscribe(topic Topic) *Subscription {
	s := &Subscription{
		hub:    h,
		topic:  topic,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[topic]; !ok {
		h.subs[topic] = make(map[*Subscription]struct{})
	}
	h.subs[topic][s] = struct{}{}
	return s
}

// Publish signals every subscription of the topic. Non-blocking:
// a signal already pending coalesces with the new one.
func (h *Hub) Publish(topic Topic) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[topic] {
		select {
		case s.signal <- struct{}{}:
		default:
		}
	}
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.subs[s.topic]; ok {
		delete(members, s)
		// No empty sets left behind in the topic map.
		if len(members) == 0 {
			delete(h.subs, s.topic)
		}
	}
}

// Subscription is one registered listener. Cancel may be invoked any
// number of times; after the first call no further signal is visible
// through Signal and Done is closed.
type Subscription struct {
	hub    *Hub
	topic  Topic
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

// Signal fires (coalesced) whenever the topic is published.
func (s *Subscription) Signal() <-chan struct{} {
	return s.signal
}

// Done is closed by Cancel.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Cancel detaches the subscription from the hub. Idempotent.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.remove(s)
		close(s.done)
	})
}
