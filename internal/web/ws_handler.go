package web

import (
	"net/http"
	"time"

	"ratestream/internal/rates/hub"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleRatesWS upgrades the connection and attaches it to the broadcast
// hub. The subscriber first receives the full snapshot, then live updates.
func (s *Server) handleRatesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	session := &wsSession{
		conn:   conn,
		sub:    s.hub.Register(),
		hub:    s.hub,
		logger: s.logger,
	}
	go session.writePump()
	go session.readPump()
}

type wsSession struct {
	conn   *websocket.Conn
	sub    *hub.Subscriber
	hub    *hub.Hub
	logger *zap.Logger
}

// writePump drains the subscriber queue onto the socket and keeps the
// connection alive with pings. Each session suspends independently here;
// a stalled socket only ever backs up its own queue.
func (c *wsSession) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.sub.Events():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Unregistered: say goodbye and let readPump finish.
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only detects the client going away; no client messages are
// expected after connect.
func (c *wsSession) readPump() {
	defer func() {
		c.hub.Unregister(c.sub)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
