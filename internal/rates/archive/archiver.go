package archive

import (
	"context"
	"sync/atomic"
	"time"

	"ratestream/internal/rates/store"
	"ratestream/pkg/storage/postgres"

	"go.uber.org/zap"
)

// Writer persists completed hourly buckets.
type Writer interface {
	UpsertHourlyAverage(ctx context.Context, record *postgres.HourlyAverageRecord) error
}

// Archiver drains closed hour buckets emitted by the pair store and writes
// them to the archive. Write failures are logged and dropped; archival never
// feeds back into the live path.
type Archiver struct {
	writer Writer
	logger *zap.Logger

	written atomic.Int64
	failed  atomic.Int64
}

func New(writer Writer, logger *zap.Logger) *Archiver {
	return &Archiver{writer: writer, logger: logger}
}

// Run consumes buckets until ctx ends or the channel closes.
func (a *Archiver) Run(ctx context.Context, buckets <-chan store.ClosedBucket) {
	for {
		select {
		case <-ctx.Done():
			return
		case bucket, ok := <-buckets:
			if !ok {
				return
			}
			a.archive(bucket)
		}
	}
}

func (a *Archiver) archive(b store.ClosedBucket) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	record := &postgres.HourlyAverageRecord{
		Pair:      b.Pair,
		HourStart: b.HourStart,
		AvgPrice:  b.AvgPrice,
		TickCount: b.Count,
	}

	if err := a.writer.UpsertHourlyAverage(ctx, record); err != nil {
		a.failed.Add(1)
		a.logger.Warn("failed to archive hourly average",
			zap.String("pair", b.Pair), zap.Error(err))
		return
	}
	a.written.Add(1)
}

// Written returns the number of buckets archived successfully.
func (a *Archiver) Written() int64 { return a.written.Load() }

// Failed returns the number of buckets lost to write errors.
func (a *Archiver) Failed() int64 { return a.failed.Load() }
