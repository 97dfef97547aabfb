package store

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// maxHistory bounds each pair's recent-history buffer. The history is a
// display aid only; it takes no part in the hourly average.
const maxHistory = 40

// PairStore owns the authoritative per-pair aggregation state. Mutation goes
// through ApplyTick only; reads get copies and never observe a torn state.
type PairStore struct {
	globalMu sync.RWMutex
	pairs    map[string]*pairEntry

	sink chan<- ClosedBucket

	applied       atomic.Int64
	rejected      atomic.Int64
	bucketsClosed atomic.Int64
	sinkDropped   atomic.Int64
}

type pairEntry struct {
	mu sync.Mutex

	lastPrice  float64
	lastUpdate time.Time

	// current hour bucket
	hourStart time.Time
	sumPrices float64
	count     int

	history []PricePoint
}

// NewPairStore creates a store pre-seeded with the tracked pairs so the
// initial snapshot lists every configured pair with absent fields.
func NewPairStore(tracked []string) *PairStore {
	s := &PairStore{pairs: make(map[string]*pairEntry, len(tracked))}
	for _, pair := range tracked {
		s.pairs[pair] = &pairEntry{}
	}
	return s
}

// SetBucketSink registers a channel that receives completed hour buckets.
// Sends are non-blocking; a full sink drops the bucket and counts it.
func (s *PairStore) SetBucketSink(ch chan<- ClosedBucket) {
	s.sink = ch
}

// ApplyTick updates the tick's pair exclusively and returns a snapshot of
// the new state. It reports false when the tick was rejected (non-positive
// price or a timestamp behind the pair's last update); rejection leaves the
// pair untouched.
func (s *PairStore) ApplyTick(t Tick) (PairState, bool) {
	if t.Price <= 0 {
		s.rejected.Add(1)
		return PairState{}, false
	}

	entry := s.entry(t.Pair)

	entry.mu.Lock()
	if !entry.lastUpdate.IsZero() && t.Time.Before(entry.lastUpdate) {
		entry.mu.Unlock()
		s.rejected.Add(1)
		return PairState{}, false
	}

	var closed *ClosedBucket
	if entry.count == 0 {
		entry.hourStart = t.Time
		entry.sumPrices = t.Price
		entry.count = 1
	} else if continuesBucket(entry.hourStart, t.Time) {
		entry.sumPrices += t.Price
		entry.count++
	} else {
		closed = &ClosedBucket{
			Pair:      t.Pair,
			HourStart: entry.hourStart,
			AvgPrice:  entry.sumPrices / float64(entry.count),
			Count:     entry.count,
		}
		entry.hourStart = t.Time
		entry.sumPrices = t.Price
		entry.count = 1
	}

	entry.lastPrice = t.Price
	entry.lastUpdate = t.Time

	entry.history = append(entry.history, PricePoint{Time: t.Time, Price: t.Price})
	if len(entry.history) > maxHistory {
		entry.history = entry.history[len(entry.history)-maxHistory:]
	}

	state := entry.snapshotLocked(t.Pair)
	entry.mu.Unlock()

	s.applied.Add(1)
	if closed != nil {
		s.emitClosed(*closed)
	}
	return state, true
}

// ReadAll returns a consistent point-in-time snapshot of every pair's state
// in lexical pair order.
func (s *PairStore) ReadAll() []PairState {
	s.globalMu.RLock()
	pairs := make([]string, 0, len(s.pairs))
	for pair := range s.pairs {
		pairs = append(pairs, pair)
	}
	s.globalMu.RUnlock()

	sort.Strings(pairs)

	out := make([]PairState, 0, len(pairs))
	for _, pair := range pairs {
		entry := s.entry(pair)
		entry.mu.Lock()
		out = append(out, entry.snapshotLocked(pair))
		entry.mu.Unlock()
	}
	return out
}

// Stats returns the current ingestion counters.
func (s *PairStore) Stats() Stats {
	return Stats{
		Applied:       s.applied.Load(),
		Rejected:      s.rejected.Load(),
		BucketsClosed: s.bucketsClosed.Load(),
		SinkDropped:   s.sinkDropped.Load(),
	}
}

// entry returns the state for a pair, lazily creating it for pairs outside
// the configured tracked set. Unknown pairs are tolerated so feed and
// config drift never costs data.
func (s *PairStore) entry(pair string) *pairEntry {
	// Fast path: shared lock only
	s.globalMu.RLock()
	entry, ok := s.pairs[pair]
	s.globalMu.RUnlock()

	if !ok {
		s.globalMu.Lock()
		if entry, ok = s.pairs[pair]; !ok {
			entry = &pairEntry{}
			s.pairs[pair] = entry
		}
		s.globalMu.Unlock()
	}
	return entry
}

func (s *PairStore) emitClosed(b ClosedBucket) {
	s.bucketsClosed.Add(1)
	if s.sink == nil {
		return
	}
	select {
	case s.sink <- b:
	default:
		s.sinkDropped.Add(1)
	}
}

// snapshotLocked builds a PairState copy. Caller must hold entry.mu.
func (e *pairEntry) snapshotLocked(pair string) PairState {
	state := PairState{Pair: pair}
	if e.lastUpdate.IsZero() {
		return state
	}

	price := e.lastPrice
	avg := e.sumPrices / float64(e.count)
	ts := e.lastUpdate
	state.Price = &price
	state.HourlyAvg = &avg
	state.LastUpdate = &ts

	state.History = make([]PricePoint, len(e.history))
	copy(state.History, e.history)
	return state
}
