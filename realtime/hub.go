// Package realtime provides an in-process publish/subscribe hub for
// full-snapshot events. Publishers always push the complete current state
// of a resource; a later snapshot supersedes an earlier one, so slow
// subscribers drop stale snapshots rather than queueing them.
package realtime

import "sync"

// subscription channel depth; overflow drops the oldest pending snapshot.
const subBuffer = 8

type (
	// Event is one full-snapshot notification on a topic.
	Event struct {
		Topic   string
		Payload interface{}
	}

	// Subscription is a live feed of snapshots for one topic.
	// Close must be called on teardown to release the subscriber slot.
	Subscription struct {
		C <-chan Event

		ch    chan Event
		hub   *Hub
		topic string
		once  sync.Once
	}

	// Bridge fans published events out to other instances.
	Bridge interface {
		Publish(topic string, payload interface{})
	}

	Hub struct {
		mu     sync.RWMutex
		subs   map[string]map[*Subscription]struct{}
		bridge Bridge
	}
)

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

// SetBridge attaches a cross-instance fan-out. Must be set before use.
func (h *Hub) SetBridge(b Bridge) {
	h.mu.Lock()
	h.bridge = b
	h.mu.Unlock()
}

// Subscribe registers a new subscriber on topic.
func (h *Hub) Subscribe(topic string) *Subscription {
	sub := &Subscription{
		ch:    make(chan Event, subBuffer),
		hub:   h,
		topic: topic,
	}
	sub.C = sub.ch

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[*Subscription]struct{})
	}
	h.subs[topic][sub] = struct{}{}
	return sub
}

// Publish delivers a full snapshot to every subscriber on topic,
// and to other instances when a bridge is attached.
func (h *Hub) Publish(topic string, payload interface{}) {
	h.PublishLocal(topic, payload)

	h.mu.RLock()
	bridge := h.bridge
	h.mu.RUnlock()
	if bridge != nil {
		bridge.Publish(topic, payload)
	}
}

// PublishLocal delivers a snapshot to this instance's subscribers only.
func (h *Hub) PublishLocal(topic string, payload interface{}) {
	ev := Event{Topic: topic, Payload: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[topic] {
		select {
		case sub.ch <- ev:
		default:
			// full: last-write-wins, drop the oldest pending snapshot
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- ev:
			default:
			}
		}
	}
}

// Close unsubscribes and stops delivery. Idempotent.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		if subs, ok := s.hub.subs[s.topic]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(s.hub.subs, s.topic)
			}
		}
		s.hub.mu.Unlock()
		close(s.ch)
	})
}

// Topic returns the topic this subscription listens on.
func (s *Subscription) Topic() string { return s.topic }
