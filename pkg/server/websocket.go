package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/padsync/padsync/pkg/middleware"
	"github.com/padsync/padsync/pkg/protocol"
	"github.com/padsync/padsync/pkg/room"
)

// wsConn adapts a gorilla connection to room.Conn. The write mutex
// serializes Send/Close; the write deadline is the relay's backpressure
// bound, so a stalled peer fails its send and gets evicted.
type wsConn struct {
	id           string
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu     sync.Mutex
	closed atomic.Bool
}

// newConnID generates a random identifier for one connection.
func newConnID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return websocket.ErrCloseSent
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (c *wsConn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Swap(true) {
		return nil
	}
	msg := websocket.FormatCloseMessage(code, reason)
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeTimeout))
	return c.conn.Close()
}

// newUpgrader builds the upgrader for the configured allowed origins.
// No origins configured means gorilla's same-origin default applies.
func (s *Server) newUpgrader() websocket.Upgrader {
	up := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
	if len(s.config.AllowedOrigins) > 0 {
		allowed := make(map[string]struct{}, len(s.config.AllowedOrigins))
		allowAny := false
		for _, o := range s.config.AllowedOrigins {
			if o == "*" {
				allowAny = true
			}
			allowed[o] = struct{}{}
		}
		up.CheckOrigin = func(r *http.Request) bool {
			if allowAny {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := allowed[origin]
			return ok
		}
	}
	return up
}

// handleWebSocket runs one connection's whole life: upgrade, session
// check, join with history replay, read loop, cleanup.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	upgrader := s.newUpgrader()
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		s.logger.Warn("websocket upgrade failed",
			"session_id", sessionID,
			"error", err)
		middleware.RecordWebSocketError("upgrade")
		return
	}

	conn := &wsConn{
		id:           newConnID(),
		conn:         raw,
		writeTimeout: s.config.WriteTimeout,
	}

	// Refuse unknown sessions after the upgrade so the client sees the
	// distinguishing close code rather than a bare HTTP error.
	if err := s.relay.OnConnect(sessionID); err != nil {
		conn.Close(room.CloseSessionNotFound, "Session not found")
		return
	}

	s.logger.Info("websocket connected",
		"session_id", sessionID,
		"conn_id", conn.id,
		"client_ip", clientIP(r))
	middleware.RecordConnect()

	// Cleanup must run on every termination path, clean close or not.
	defer func() {
		s.relay.OnDisconnect(sessionID, conn.id)
		conn.Close(websocket.CloseNormalClosure, "")
		middleware.RecordDisconnect()
		s.logger.Info("websocket disconnected",
			"session_id", sessionID,
			"conn_id", conn.id)
	}()

	s.relay.OnJoin(sessionID, conn)

	raw.SetReadLimit(s.config.MaxMessageSize)
	for {
		raw.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, data, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket read error",
					"session_id", sessionID,
					"conn_id", conn.id,
					"error", err)
				middleware.RecordWebSocketError("read")
			}
			return
		}

		middleware.RecordMessage(protocol.Describe(data))
		s.relay.OnFrame(sessionID, conn.id, data)
	}
}
