package finnhub

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestBuildURL(t *testing.T) {
	got := BuildURL("wss://ws.finnhub.io", "secret")
	if got != "wss://ws.finnhub.io?token=secret" {
		t.Errorf("BuildURL = %s", got)
	}
}

func TestDialClassifiesAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c := NewWSClient(url, []string{"BINANCE:ETHUSDT"}, zap.NewNop())

	_, err := c.dialAndSubscribe(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestDialNetworkErrorIsNotAuthFailure(t *testing.T) {
	// Closed server: plain network error, should follow the backoff path
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	c := NewWSClient(url, nil, zap.NewNop())

	_, err := c.dialAndSubscribe(context.Background())
	if err == nil {
		t.Fatal("expected dial error")
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Error("network error misclassified as auth failure")
	}
}

func TestStateStartsDisconnected(t *testing.T) {
	c := NewWSClient("ws://localhost:1", nil, zap.NewNop())
	if got := c.State(); got != StateDisconnected {
		t.Errorf("initial state = %v, want disconnected", got)
	}
}
