// Package progress fans entry snapshots out to any number of subscribers.
//
// Publish never blocks. Each subscriber owns a bounded buffer; when it is full the
// oldest queued snapshot is discarded to make room, so a slow or absent reader loses
// history instead of stalling acquisitions. Dropped snapshots are counted per
// subscriber and can be read with Dropped.
package progress

import (
	"sync"
	"sync/atomic"

	"github.com/yourusername/cratedig-go/internal/domain"
)

const DefaultBuffer = 64

// Publisher is the producer side of the hub
type Publisher interface {
	Publish(snapshots ...domain.ProgressSnapshot)
}

// Hub is a multi-producer, multi-consumer broadcaster
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
	closed bool
}

// Subscription receives snapshots published after it was created
type Subscription struct {
	hub     *Hub
	ch      chan domain.ProgressSnapshot
	mu      sync.Mutex // serializes sends so drop-oldest stays consistent
	dropped atomic.Int64
	once    sync.Once
}

// NewHub creates a hub whose subscribers buffer up to buffer snapshots
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber. On a closed hub the returned
// subscription's channel is already closed.
func (h *Hub) Subscribe() *Subscription {
	s := &Subscription{hub: h, ch: make(chan domain.ProgressSnapshot, h.buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.once.Do(func() { close(s.ch) })
		return s
	}
	h.subs[s] = struct{}{}
	return s
}

// Publish delivers snapshots to every current subscriber without blocking
func (h *Hub) Publish(snapshots ...domain.ProgressSnapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for s := range h.subs {
		for _, snap := range snapshots {
			s.offer(snap)
		}
	}
}

// Subscribers returns the number of live subscriptions
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close closes every subscription; later publishes are ignored
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		s.once.Do(func() { close(s.ch) })
		delete(h.subs, s)
	}
}

// C returns the receive channel. It is closed when the subscription or the hub closes.
func (s *Subscription) C() <-chan domain.ProgressSnapshot {
	return s.ch
}

// Dropped returns how many snapshots were discarded because the buffer was full
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// Close unsubscribes. Safe to call more than once.
func (s *Subscription) Close() {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, s)
	s.once.Do(func() { close(s.ch) })
}

// offer is called with the hub's read lock held, so the channel cannot be
// closed underneath it.
func (s *Subscription) offer(snap domain.ProgressSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		select {
		case s.ch <- snap:
			return
		default:
		}
		select {
		case <-s.ch:
			s.dropped.Add(1)
		default:
		}
	}
}
