package hub

import (
	"context"
	"log/slog"
	"sync"

	"github.com/teslashibe/eyeproctor/internal/log"
)

// subscriber is anything the hub can queue frames for.
type subscriber interface {
	queue() chan []byte
}

// Hub keeps the set of subscribers and the last status frame, which is
// replayed to every new subscriber so dashboards never start blank.
type Hub struct {
	logger *slog.Logger

	subs       map[subscriber]struct{}
	broadcast  chan []byte
	register   chan subscriber
	unregister chan subscriber
	done       chan struct{}

	mu      sync.RWMutex
	last    []byte
	dropped int
}

// New creates a hub. Call Run before registering subscribers.
func New(name string) *Hub {
	return &Hub{
		logger:     log.With("component", "hub", "hub", name),
		subs:       make(map[subscriber]struct{}),
		broadcast:  make(chan []byte, 256),
		register:   make(chan subscriber),
		unregister: make(chan subscriber),
		done:       make(chan struct{}),
	}
}

// Run serves register, unregister and broadcast requests until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.closeAll()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case s := <-h.register:
			h.mu.Lock()
			h.subs[s] = struct{}{}
			last, count := h.last, len(h.subs)
			h.mu.Unlock()
			if last != nil {
				h.offer(s, last)
			}
			h.logger.Debug("subscriber connected", "subscribers", count)

		case s := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.subs[s]; ok {
				delete(h.subs, s)
				close(s.queue())
			}
			count := len(h.subs)
			h.mu.Unlock()
			h.logger.Debug("subscriber disconnected", "subscribers", count)

		case frame := <-h.broadcast:
			h.mu.RLock()
			subs := make([]subscriber, 0, len(h.subs))
			for s := range h.subs {
				subs = append(subs, s)
			}
			h.mu.RUnlock()
			for _, s := range subs {
				h.offer(s, frame)
			}
		}
	}
}

func (h *Hub) add(s subscriber) bool {
	select {
	case h.register <- s:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(s subscriber) {
	select {
	case h.unregister <- s:
	case <-h.done:
	}
}

// offer queues frame for s, dropping s if it cannot keep up.
func (h *Hub) offer(s subscriber, frame []byte) {
	select {
	case s.queue() <- frame:
	default:
		h.mu.Lock()
		if _, ok := h.subs[s]; ok {
			delete(h.subs, s)
			close(s.queue())
			h.dropped++
		}
		h.mu.Unlock()
		h.logger.Warn("dropped slow subscriber")
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		delete(h.subs, s)
		close(s.queue())
	}
}

// Publish encodes v and sends it to all subscribers. Status frames are
// remembered for late joiners.
func (h *Hub) Publish(kind Kind, v any) error {
	frame, err := Encode(kind, v)
	if err != nil {
		return err
	}
	if kind == KindStatus {
		h.mu.Lock()
		h.last = frame
		h.mu.Unlock()
	}

	select {
	case h.broadcast <- frame:
	default:
		h.logger.Warn("broadcast queue full, dropping frame", "kind", string(kind))
	}
	return nil
}

// Last returns the most recent status frame, or nil.
func (h *Hub) Last() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many subscribers were cut off for being slow.
func (h *Hub) Dropped() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}
