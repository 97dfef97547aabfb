package stream

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"ratestream/internal/rates/store"
	"ratestream/pkg/finnhub"

	"go.uber.org/zap"
)

// MakeTradeHandler returns a raw-message handler that parses Finnhub trade
// messages and pushes the resulting Ticks onto ticks. symbolToPair maps
// venue symbols to internal pair names; unmapped symbols pass through with
// the raw symbol as the pair so feed/config drift never loses data.
// Malformed messages are dropped and counted, never treated as connection
// failures.
func MakeTradeHandler(logger *zap.Logger, ticks chan<- store.Tick,
	symbolToPair map[string]string, malformed *atomic.Int64) func(msg []byte) {
	return func(msg []byte) {
		// Step 1: extract the message type for early filtering
		var meta struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &meta); err != nil {
			malformed.Add(1)
			logger.Warn("failed to extract message type", zap.Error(err))
			return
		}
		if meta.Type != "trade" {
			return // ignore pings and subscription acks
		}

		// Step 2: fully parse the trade payload
		var parsed finnhub.TradeMessage
		if err := json.Unmarshal(msg, &parsed); err != nil {
			malformed.Add(1)
			logger.Warn("failed to parse trade payload", zap.Error(err))
			return
		}

		// Step 3: translate each trade into a Tick
		for _, trade := range parsed.Data {
			if trade.Symbol == "" || trade.Timestamp == 0 {
				malformed.Add(1)
				continue
			}

			pair, ok := symbolToPair[trade.Symbol]
			if !ok {
				pair = trade.Symbol
			}

			tick := store.Tick{
				Pair:  pair,
				Price: trade.Price,
				Time:  time.UnixMilli(trade.Timestamp).UTC(),
			}

			select {
			case ticks <- tick:
			default:
				// Ingestion is behind; drop rather than block the socket reader.
				logger.Warn("tick channel full, dropping tick", zap.String("pair", pair))
			}
		}
	}
}
