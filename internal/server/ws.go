package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/synthline/synthline/internal/progress"
)

var errMissingConnectionID = errors.New("connection id is required")

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is consumed cross-origin by the web UI.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWebsocket streams a job's progress events to the client. The
// connection id doubles as the job id, so a dropped socket cancels the
// job it was watching.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	connID := r.PathValue("connection_id")
	if connID == "" {
		writeError(w, http.StatusBadRequest, errMissingConnectionID)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("websocket upgrade failed: %v", err)
		return
	}

	events := s.broker.Subscribe(connID)
	done := make(chan struct{})

	// Read pump: the client never sends application messages, but reading
	// is what surfaces close frames and pong replies.
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.writePump(conn, connID, events, done)
}

func (s *Server) writePump(conn *websocket.Conn, connID string, events <-chan progress.Event, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
		s.broker.Unsubscribe(connID)
		if s.jobs.Cancel(connID) {
			s.logger.Printf("connection %s closed, job cancelled", connID)
		}
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				// Subscription replaced or dropped elsewhere.
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
