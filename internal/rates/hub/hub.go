package hub

import (
	"sync"
	"sync/atomic"
	"time"

	"ratestream/internal/rates/store"

	"go.uber.org/zap"
)

// Event types carried on the stream.
const (
	TypeSnapshot   = "snapshot"
	TypeRateUpdate = "rate_update"
)

// Event is one server-to-client message on the rates stream.
type Event struct {
	Type       string    `json:"type"`
	Pair       string    `json:"pair"`
	Price      float64   `json:"price"`
	HourlyAvg  float64   `json:"hourly_avg"`
	LastUpdate time.Time `json:"last_update"`
}

// Subscriber is one live streaming client. Its queue is drained by a single
// connection-owned goroutine; the channel is closed on Unregister.
type Subscriber struct {
	events chan Event
}

// Events returns the subscriber's outbound queue.
func (s *Subscriber) Events() <-chan Event { return s.events }

// Hub fans out pair-state changes to every registered subscriber. Slow
// subscribers lose their oldest queued events instead of stalling ingestion
// or other subscribers.
type Hub struct {
	mu   sync.Mutex
	subs map[*Subscriber]struct{}

	snapshot func() []store.PairState
	queueCap int
	logger   *zap.Logger

	dropped atomic.Int64
}

// NewHub creates a hub. snapshot supplies the current state of all pairs and
// is called once per registration, under the hub lock, so a new subscriber
// sees the snapshot strictly before any live event.
func NewHub(snapshot func() []store.PairState, queueCap int, logger *zap.Logger) *Hub {
	if queueCap <= 0 {
		queueCap = 100
	}
	return &Hub{
		subs:     make(map[*Subscriber]struct{}),
		snapshot: snapshot,
		queueCap: queueCap,
		logger:   logger,
	}
}

// Register adds a new subscriber. The full current snapshot is queued as
// synthetic events before the subscriber becomes eligible for live updates.
func (h *Hub) Register() *Subscriber {
	s := &Subscriber{events: make(chan Event, h.queueCap)}

	h.mu.Lock()
	for _, state := range h.snapshot() {
		if ev, ok := eventFromState(TypeSnapshot, state); ok {
			h.enqueue(s, ev)
		}
	}
	h.subs[s] = struct{}{}
	total := len(h.subs)
	h.mu.Unlock()

	h.logger.Info("subscriber registered", zap.Int("total", total))
	return s
}

// Unregister removes a subscriber and closes its queue. Safe to call at any
// time and more than once.
func (h *Hub) Unregister(s *Subscriber) {
	h.mu.Lock()
	_, ok := h.subs[s]
	if ok {
		delete(h.subs, s)
		close(s.events)
	}
	total := len(h.subs)
	h.mu.Unlock()

	if ok {
		h.logger.Info("subscriber unregistered", zap.Int("total", total))
	}
}

// Publish enqueues a state change for every subscriber. It never blocks the
// caller: full queues drop their oldest event to make room.
func (h *Hub) Publish(state store.PairState) {
	ev, ok := eventFromState(TypeRateUpdate, state)
	if !ok {
		return
	}

	h.mu.Lock()
	for s := range h.subs {
		h.enqueue(s, ev)
	}
	h.mu.Unlock()
}

// Count returns the number of registered subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped returns how many events were discarded against full queues.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// enqueue delivers ev to s with drop-oldest overflow. Caller holds h.mu, so
// no send can race an Unregister close.
func (h *Hub) enqueue(s *Subscriber, ev Event) {
	select {
	case s.events <- ev:
		return
	default:
	}

	// Queue full: evict the oldest pending event. The consumer may drain
	// concurrently, so both selects stay non-blocking.
	select {
	case <-s.events:
	default:
	}
	select {
	case s.events <- ev:
	default:
	}
	h.dropped.Add(1)
}

// eventFromState converts a pair snapshot into a stream event. Pairs that
// have not seen a tick yet produce nothing.
func eventFromState(typ string, state store.PairState) (Event, bool) {
	if state.Price == nil || state.HourlyAvg == nil || state.LastUpdate == nil {
		return Event{}, false
	}
	return Event{
		Type:       typ,
		Pair:       state.Pair,
		Price:      *state.Price,
		HourlyAvg:  *state.HourlyAvg,
		LastUpdate: *state.LastUpdate,
	}, true
}
