package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const wsWriteTimeout = 10 * time.Second

// wsSubscriber adapts one websocket connection to broadcast.Subscriber.
// gorilla connections allow a single concurrent writer, so sends are
// serialized under a mutex.
type wsSubscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *wsSubscriber) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// serveWS handles GET /ws?role=. The connection is subscribed to the given
// role's broadcast channel until the client goes away.
func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	if role == "" {
		writeError(w, r, "role query parameter is required", "MISSING_ROLE", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.log.Warn("websocket upgrade failed", zap.String("role", role), zap.Error(err))
		return
	}

	sub := &wsSubscriber{conn: conn}
	h.hub.Subscribe(role, sub)
	h.log.Info("websocket connected", zap.String("role", role))

	// Reads only service control frames; the first error means the peer is
	// gone and the subscription must be torn down.
	go func() {
		defer func() {
			h.hub.Unsubscribe(role, sub)
			_ = conn.Close()
			h.log.Info("websocket disconnected", zap.String("role", role))
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func newUpgrader(allowedOrigins string) websocket.Upgrader {
	origins := splitAndTrim(allowedOrigins)
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// Non-browser clients send no Origin header.
			if origin == "" {
				return true
			}
			if len(origins) == 0 {
				return false
			}
			return contains(origins, origin)
		},
	}
}
