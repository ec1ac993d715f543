// Package broadcast fans activities out to push channel subscribers of
// the same tenant.
package broadcast

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/nhle/docflow/internal/model"
)

// DefaultBuffer is the per-subscriber send buffer.
const DefaultBuffer = 64

// Publisher delivers an activity to every subscriber of its tenant.
type Publisher interface {
	Publish(ctx context.Context, a model.Activity) error
}

// Subscription receives the activities of one tenant.
type Subscription struct {
	hub     *Hub
	tenant  string
	ch      chan model.Activity
	once    sync.Once
	dropped atomic.Int64
}

// Events yields delivered activities. It is closed by Close.
func (s *Subscription) Events() <-chan model.Activity {
	return s.ch
}

// Dropped counts activities discarded because the buffer was full.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// Close unsubscribes and closes Events.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Hub is an in-process registry of subscriptions keyed by tenant.
type Hub struct {
	buffer int
	log    *slog.Logger

	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

// NewHub returns an empty hub whose subscriptions buffer up to buffer
// activities.
func NewHub(buffer int, log *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if log == nil {
		log = slog.Default()
	}
	return &Hub{buffer: buffer, log: log, subs: make(map[string]map[*Subscription]struct{})}
}

// Subscribe registers a subscription for tenantID.
func (h *Hub) Subscribe(tenantID string) *Subscription {
	s := &Subscription{hub: h, tenant: tenantID, ch: make(chan model.Activity, h.buffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[tenantID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[tenantID] = set
	}
	set[s] = struct{}{}
	return s
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[s.tenant]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.tenant)
		}
	}
	close(s.ch)
}

// Deliver hands a to every subscriber of a.TenantID without blocking.
// Subscribers whose buffer is full miss it. It returns the number of
// subscribers that received a.
func (h *Hub) Deliver(a model.Activity) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for s := range h.subs[a.TenantID] {
		select {
		case s.ch <- a:
			n++
		default:
			s.dropped.Add(1)
			h.log.Warn("broadcast: slow subscriber, activity dropped",
				"tenant_id", a.TenantID, "activity_id", a.ID)
		}
	}
	return n
}

// Publish implements Publisher for a single process.
func (h *Hub) Publish(_ context.Context, a model.Activity) error {
	h.Deliver(a)
	return nil
}

// Subscribers returns the number of subscriptions for tenantID.
func (h *Hub) Subscribers(tenantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[tenantID])
}
