package finnhub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrUnauthorized marks a handshake rejected for bad credentials. Credential
// failures rarely self-heal, so they retry at a fixed longer interval instead
// of the exponential schedule.
var ErrUnauthorized = errors.New("finnhub: unauthorized")

// ConnState is the connection state of a WSClient.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateStreaming
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	default:
		return "disconnected"
	}
}

// WSClient maintains the WebSocket connection to Finnhub and routes raw
// messages to the registered handler. It reconnects forever; upstream
// failure never terminates the process.
type WSClient struct {
	url     string
	symbols []string
	handler func([]byte)
	logger  *zap.Logger

	backoff     Backoff
	authRetry   time.Duration
	dialTimeout time.Duration

	state atomic.Int32
}

// BuildURL composes the connection URL from the base endpoint and API token.
func BuildURL(base, token string) string {
	return fmt.Sprintf("%s?token=%s", base, token)
}

// NewWSClient creates a client that subscribes to the given venue symbols on
// connect. Retry timing defaults: 1s exponential base capped at 30s, 1m for
// credential failures.
func NewWSClient(url string, symbols []string, logger *zap.Logger) *WSClient {
	return &WSClient{
		url:         url,
		symbols:     symbols,
		logger:      logger,
		backoff:     Backoff{Base: time.Second, Max: 30 * time.Second},
		authRetry:   time.Minute,
		dialTimeout: 10 * time.Second,
	}
}

// SetMessageHandler sets the function to handle incoming messages.
func (c *WSClient) SetMessageHandler(h func([]byte)) {
	c.handler = h
}

// SetRetryPolicy overrides the reconnect timing.
func (c *WSClient) SetRetryPolicy(b Backoff, authRetry, dialTimeout time.Duration) {
	c.backoff = b
	c.authRetry = authRetry
	c.dialTimeout = dialTimeout
}

// State returns the current connection state.
func (c *WSClient) State() ConnState {
	return ConnState(c.state.Load())
}

// Run drives the connection for the lifetime of ctx through the states
// disconnected -> connecting -> streaming and back to disconnected on any
// failure. All failures are retried; Run returns only when ctx is done.
func (c *WSClient) Run(ctx context.Context) {
	for ctx.Err() == nil {
		c.state.Store(int32(StateConnecting))

		conn, err := c.dialAndSubscribe(ctx)
		if err != nil {
			c.state.Store(int32(StateDisconnected))

			delay := c.backoff.Next()
			if errors.Is(err, ErrUnauthorized) {
				delay = c.authRetry
				c.logger.Error("Finnhub authentication failed",
					zap.Error(err), zap.Duration("retry_in", delay))
			} else {
				c.logger.Warn("Finnhub connect failed",
					zap.Error(err), zap.Duration("retry_in", delay))
			}

			if !sleepCtx(ctx, delay) {
				return
			}
			continue
		}

		c.backoff.Reset()
		c.state.Store(int32(StateStreaming))
		c.logger.Info("Finnhub connected", zap.Int("symbols", len(c.symbols)))

		c.listen(ctx, conn)
		conn.Close()
		c.state.Store(int32(StateDisconnected))
	}
}

func (c *WSClient) dialAndSubscribe(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.dialTimeout}

	conn, resp, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized ||
			resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: handshake status %d", ErrUnauthorized, resp.StatusCode)
		}
		return nil, err
	}

	for _, symbol := range c.symbols {
		sub := subscribeRequest{Type: "subscribe", Symbol: symbol}
		if err := conn.WriteJSON(sub); err != nil {
			conn.Close()
			return nil, fmt.Errorf("subscribe %s: %w", symbol, err)
		}
	}

	return conn, nil
}

// listen reads messages until the connection fails or ctx is cancelled.
func (c *WSClient) listen(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close() // unblocks ReadMessage
		case <-done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("Finnhub read error", zap.Error(err))
			}
			return
		}
		if c.handler != nil {
			c.handler(msg)
		}
	}
}

// sleepCtx waits d, reporting false when ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
