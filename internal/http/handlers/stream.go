// README: Websocket stream of live ride updates.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"londa/internal/http/response"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	// Mobile clients send no Origin; the bearer token authenticates.
	CheckOrigin: func(*http.Request) bool { return true },
}

// safeConn serialises writes; gorilla/websocket allows one concurrent writer.
type safeConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *safeConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(v)
}

func (c *safeConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

type streamMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// RideStream sends the ride's current state, then every transition until the
// client disconnects.
func (h *RideHandler) RideStream(c *gin.Context) {
	r, ok := h.visibleRide(c)
	if !ok {
		return
	}
	if h.updates == nil {
		response.Fail(c, http.StatusServiceUnavailable, response.CodeUpstreamUnavailable, "live ride updates are not enabled", nil)
		return
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	defer cancel()
	updates, err := h.updates.Subscribe(ctx, r.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.WarnContext(ctx, "websocket upgrade failed", "ride_id", r.ID, "err", err)
		return
	}
	conn := &safeConn{ws: ws}
	defer ws.Close()

	// The read loop only notices the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.writeJSON(streamMessage{Type: "snapshot", Data: toRideView(r)}); err != nil {
		return
	}
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		case rec, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.writeJSON(streamMessage{Type: "transition", Data: rec}); err != nil {
				slog.DebugContext(ctx, "websocket write failed", "ride_id", r.ID, "err", err)
				return
			}
		}
	}
}
