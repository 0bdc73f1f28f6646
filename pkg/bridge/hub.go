// Package bridge fans detected targets out to external consumers:
// websocket clients and a NATS subject. The Hub decouples the
// navigation pipeline from however many sinks are attached.
package bridge

import (
	"context"
	"sync"
	"sync/atomic"

	"radarlink/pkg/navigation"
)

// defaultQueue is the per-subscription buffer depth. A full buffer
// evicts the oldest queued target, never the newest: a live display
// wants the freshest picture, and Publish must never stall the
// navigation pipeline behind a slow sink.
const defaultQueue = 64

// Subscription is one consumer's view of the target stream,
// optionally restricted to a bearing sector.
type Subscription struct {
	ch         chan navigation.Target
	sectorFrom float64
	sectorTo   float64
	sectored   bool
	dropped    atomic.Uint64
}

// C is the channel targets arrive on. It is closed when the hub shuts
// down or the subscription is cancelled.
func (s *Subscription) C() <-chan navigation.Target {
	return s.ch
}

// Dropped reports how many targets were evicted because this
// consumer fell behind.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// wants reports whether the target's bearing falls inside the
// subscribed sector. A sector with from > to wraps through north.
func (s *Subscription) wants(t navigation.Target) bool {
	if !s.sectored {
		return true
	}
	if s.sectorFrom <= s.sectorTo {
		return t.Bearing >= s.sectorFrom && t.Bearing < s.sectorTo
	}
	return t.Bearing >= s.sectorFrom || t.Bearing < s.sectorTo
}

// Hub broadcasts targets from the navigation pipeline to any number
// of subscriptions.
type Hub struct {
	queue int

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

type HubOption func(*Hub)

// WithQueueDepth sets the per-subscription buffer.
func WithQueueDepth(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.queue = n
		}
	}
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		queue: defaultQueue,
		subs:  make(map[*Subscription]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run blocks until the context is cancelled, then closes every
// subscription channel.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for sub := range h.subs {
		close(sub.ch)
		delete(h.subs, sub)
	}
}

// Subscribe attaches a consumer receiving every target.
func (h *Hub) Subscribe() *Subscription {
	return h.attach(&Subscription{})
}

// SubscribeSector attaches a consumer receiving only targets whose
// bearing lies in [fromDeg, toDeg). A range with fromDeg > toDeg
// wraps through 0°.
func (h *Hub) SubscribeSector(fromDeg, toDeg float64) *Subscription {
	return h.attach(&Subscription{
		sectorFrom: fromDeg,
		sectorTo:   toDeg,
		sectored:   true,
	})
}

func (h *Hub) attach(sub *Subscription) *Subscription {
	sub.ch = make(chan navigation.Target, h.queue)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.ch)
		return sub
	}
	h.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe detaches a consumer and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.ch)
}

// Publish delivers one target to every matching subscription. A
// consumer that has fallen behind loses its oldest queued target so
// the newest always gets through; Publish itself never blocks.
func (h *Hub) Publish(target navigation.Target) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	for sub := range h.subs {
		if !sub.wants(target) {
			continue
		}
		for {
			select {
			case sub.ch <- target:
			default:
				// Evict the oldest entry and retry; the queue can
				// only be contended by the consumer draining it, so
				// the retry terminates.
				select {
				case <-sub.ch:
					sub.dropped.Add(1)
				default:
				}
				continue
			}
			break
		}
	}
}
