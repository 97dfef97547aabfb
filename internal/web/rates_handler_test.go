package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ratestream/internal/rates/hub"
	"ratestream/internal/rates/store"

	"go.uber.org/zap"
)

func newTestServer() (*Server, *store.PairStore, *hub.Hub) {
	st := store.NewPairStore([]string{"ETH/BTC", "ETH/USDT"})
	h := hub.NewHub(st.ReadAll, 16, zap.NewNop())
	return NewServer(":0", st, h, zap.NewNop()), st, h
}

func TestCurrentRatesSnapshot(t *testing.T) {
	s, st, _ := newTestServer()

	now := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	st.ApplyTick(store.Tick{Pair: "ETH/USDT", Price: 100, Time: now})
	st.ApplyTick(store.Tick{Pair: "ETH/USDT", Price: 120, Time: now.Add(time.Minute)})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rates/current", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %s", ct)
	}

	var body RatesSnapshot
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(body.Pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(body.Pairs))
	}
	// Lexical order, untouched pair serialized with null fields
	if body.Pairs[0].Pair != "ETH/BTC" || body.Pairs[0].Price != nil {
		t.Errorf("unexpected first pair: %+v", body.Pairs[0])
	}
	if body.Pairs[1].Pair != "ETH/USDT" {
		t.Fatalf("unexpected second pair: %+v", body.Pairs[1])
	}
	if got := *body.Pairs[1].Price; got != 120 {
		t.Errorf("price = %v, want 120", got)
	}
	if got := *body.Pairs[1].HourlyAvg; got != 110 {
		t.Errorf("hourly_avg = %v, want 110", got)
	}
	if got := len(body.Pairs[1].History); got != 2 {
		t.Errorf("history length = %d, want 2", got)
	}
}

func TestCurrentRatesRejectsNonGet(t *testing.T) {
	s, _, _ := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rates/current", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
