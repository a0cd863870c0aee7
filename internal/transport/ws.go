package transport

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 45 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Browser clients connect from arbitrary origins; events are read-only.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWebSocket streams a session's events to one client until the
// debate ends or the client disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("session_id")
	session, ok := s.registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sub, err := session.Broadcaster.Subscribe()
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "session closed"),
			time.Now().Add(wsWriteWait))
		return
	}
	defer session.Broadcaster.Unsubscribe(sub.ID)

	logger := s.logger.With(
		zap.String("session_id", id),
		zap.String("subscriber_id", sub.ID),
	)
	logger.Info("websocket client connected", zap.String("remote", r.RemoteAddr))

	// Read pump: discard client frames, notice disconnects.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, open := <-sub.Events():
			if !open {
				// Debate over; say goodbye cleanly.
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "debate complete"),
					time.Now().Add(wsWriteWait))
				logger.Info("event stream ended")
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			logger.Info("websocket client disconnected")
			return
		}
	}
}
