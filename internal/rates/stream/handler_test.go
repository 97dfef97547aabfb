package stream

import (
	"sync/atomic"
	"testing"
	"time"

	"ratestream/internal/rates/store"

	"go.uber.org/zap"
)

var symbolMap = map[string]string{
	"BINANCE:ETHUSDT": "ETH/USDT",
	"BINANCE:ETHBTC":  "ETH/BTC",
}

func newHandler(t *testing.T) (func([]byte), chan store.Tick, *atomic.Int64) {
	t.Helper()
	ticks := make(chan store.Tick, 16)
	var malformed atomic.Int64
	h := MakeTradeHandler(zap.NewNop(), ticks, symbolMap, &malformed)
	return h, ticks, &malformed
}

func TestTradeMessageProducesTicks(t *testing.T) {
	h, ticks, malformed := newHandler(t)

	msg := `{"type":"trade","data":[
		{"s":"BINANCE:ETHUSDT","p":3100.5,"t":1735819200000,"v":0.2},
		{"s":"BINANCE:ETHBTC","p":0.052,"t":1735819201000,"v":1.5}
	]}`
	h([]byte(msg))

	if len(ticks) != 2 {
		t.Fatalf("expected 2 ticks, got %d", len(ticks))
	}

	first := <-ticks
	if first.Pair != "ETH/USDT" || first.Price != 3100.5 {
		t.Errorf("unexpected first tick: %+v", first)
	}
	if want := time.UnixMilli(1735819200000).UTC(); !first.Time.Equal(want) {
		t.Errorf("tick time = %v, want %v", first.Time, want)
	}

	second := <-ticks
	if second.Pair != "ETH/BTC" {
		t.Errorf("unexpected second tick: %+v", second)
	}
	if malformed.Load() != 0 {
		t.Errorf("malformed = %d, want 0", malformed.Load())
	}
}

func TestUnmappedSymbolPassesThrough(t *testing.T) {
	h, ticks, _ := newHandler(t)

	h([]byte(`{"type":"trade","data":[{"s":"BINANCE:BTCUSDT","p":97000,"t":1735819200000}]}`))

	tick := <-ticks
	if tick.Pair != "BINANCE:BTCUSDT" {
		t.Errorf("pair = %s, want raw symbol passthrough", tick.Pair)
	}
}

func TestNonTradeMessagesIgnored(t *testing.T) {
	h, ticks, malformed := newHandler(t)

	h([]byte(`{"type":"ping"}`))
	h([]byte(`{"type":"subscribe","symbol":"BINANCE:ETHUSDT"}`))

	if len(ticks) != 0 {
		t.Errorf("expected no ticks, got %d", len(ticks))
	}
	if malformed.Load() != 0 {
		t.Errorf("malformed = %d, want 0", malformed.Load())
	}
}

func TestMalformedMessagesCounted(t *testing.T) {
	h, ticks, malformed := newHandler(t)

	h([]byte(`{not json`))
	h([]byte(`{"type":"trade","data":[{"p":3100.5,"t":1735819200000}]}`))     // missing symbol
	h([]byte(`{"type":"trade","data":[{"s":"BINANCE:ETHUSDT","p":3100.5}]}`)) // missing timestamp

	if len(ticks) != 0 {
		t.Errorf("expected no ticks, got %d", len(ticks))
	}
	if malformed.Load() != 3 {
		t.Errorf("malformed = %d, want 3", malformed.Load())
	}
}
