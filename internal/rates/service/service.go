package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"ratestream/config"
	"ratestream/internal/rates/archive"
	"ratestream/internal/rates/hub"
	"ratestream/internal/rates/store"
	"ratestream/internal/rates/stream"
	"ratestream/pkg/finnhub"
	"ratestream/pkg/storage/postgres"

	"go.uber.org/zap"
)

// Service bundles the running core handed to the web boundary.
type Service struct {
	Store *store.PairStore
	Hub   *hub.Hub
	Feed  *finnhub.WSClient
}

// Start wires the data pipeline: Finnhub feed -> tick channel -> pair store
// -> broadcast hub, plus the optional archiver for completed hourly buckets.
// All spawned goroutines stop when ctx ends.
func Start(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Service, error) {
	pairStore := store.NewPairStore(cfg.TrackedPairs())
	ratesHub := hub.NewHub(pairStore.ReadAll, cfg.Server.QueueSize, logger)

	// Optional archive of completed hourly buckets
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.InitializeAndMigrate(cfg.Postgres, cfg.Log.Environment, true)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to DB: %w", err)
		}

		buckets := make(chan store.ClosedBucket, 64)
		pairStore.SetBucketSink(buckets)
		go archive.New(pgClient, logger).Run(ctx, buckets)
	}

	// Upstream feed
	symbols := make([]string, 0, len(cfg.Pairs))
	for _, m := range cfg.Pairs {
		symbols = append(symbols, m.Symbol)
	}

	var malformed atomic.Int64
	ticks := make(chan store.Tick, 256)

	wsClient := finnhub.NewWSClient(
		finnhub.BuildURL(cfg.Finnhub.WSURL, cfg.Finnhub.APIKey(cfg.Log.Environment)),
		symbols,
		logger,
	)
	wsClient.SetRetryPolicy(
		finnhub.Backoff{Base: cfg.Finnhub.ReconnectBase, Max: cfg.Finnhub.ReconnectMax},
		cfg.Finnhub.AuthRetry,
		cfg.Finnhub.DialTimeout,
	)
	wsClient.SetMessageHandler(stream.MakeTradeHandler(logger, ticks, cfg.SymbolMap(), &malformed))

	go wsClient.Run(ctx)

	// Single writer: one goroutine applies ticks and publishes updates, so
	// all pair-state mutation is serialized by construction.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticks:
				if state, ok := pairStore.ApplyTick(t); ok {
					ratesHub.Publish(state)
				}
			}
		}
	}()

	// Periodically log ingestion stats for visibility
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st := pairStore.Stats()
				logger.Info("ingestion stats",
					zap.Int64("applied", st.Applied),
					zap.Int64("rejected", st.Rejected),
					zap.Int64("buckets_closed", st.BucketsClosed),
					zap.Int64("malformed", malformed.Load()),
					zap.Int("subscribers", ratesHub.Count()),
					zap.Int64("events_dropped", ratesHub.Dropped()),
					zap.String("feed", wsClient.State().String()),
				)
			}
		}
	}()

	return &Service{Store: pairStore, Hub: ratesHub, Feed: wsClient}, nil
}
