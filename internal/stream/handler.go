package stream

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// SessionChecker reports whether a session is active
type SessionChecker interface {
	Exists(id string) bool
}

// Handler streams the snapshots of one session over a WebSocket. It is
// mounted on "GET /sessions/{id}/stream".
func Handler(hub *Hub, sessions SessionChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("id")
		if sessionID == "" || !sessions.Exists(sessionID) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("WebSocket upgrade failed")
			return
		}
		defer func() { _ = conn.Close() }()

		sub := hub.Subscribe(sessionID)
		log.Debug().Str("session_id", sessionID).Str("remote", r.RemoteAddr).Msg("Stream subscriber connected")

		done := make(chan struct{})
		go func() {
			defer close(done)
			writePump(conn, sub)
		}()

		readPump(conn)
		hub.Unsubscribe(sub)
		<-done
		log.Debug().Str("session_id", sessionID).Msg("Stream subscriber disconnected")
	}
}

// readPump discards client frames and returns once the peer goes away
func readPump(conn *websocket.Conn) {
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}
	}
}

// writePump writes each snapshot as a text frame until the subscriber is
// closed
func writePump(conn *websocket.Conn, sub *Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-sub.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
