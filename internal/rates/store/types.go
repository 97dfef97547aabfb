package store

import "time"

// Tick is a single price observation for one pair, produced by the upstream
// stream handler. Ticks are not retained after processing.
type Tick struct {
	Pair  string
	Price float64
	Time  time.Time
}

// PricePoint is one (timestamp, price) entry in a pair's recent history.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// PairState is a public snapshot of one pair's aggregation state. Nil
// pointer fields mean no tick has been seen for the pair yet. The snapshot
// never shares backing storage with the store, so it stays consistent while
// new ticks arrive.
type PairState struct {
	Pair       string       `json:"pair"`
	Price      *float64     `json:"price"`
	HourlyAvg  *float64     `json:"hourly_avg"`
	LastUpdate *time.Time   `json:"last_update"`
	History    []PricePoint `json:"history,omitempty"`
}

// ClosedBucket is a completed hourly aggregation, emitted when a tick rolls
// a pair over into a new hour bucket.
type ClosedBucket struct {
	Pair      string
	HourStart time.Time
	AvgPrice  float64
	Count     int
}

// Stats holds ingestion counters. Rejected ticks are observable only here;
// they never propagate as errors.
type Stats struct {
	Applied       int64
	Rejected      int64
	BucketsClosed int64
	SinkDropped   int64
}
