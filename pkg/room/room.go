package room

import (
	"log/slog"
	"sync"

	"github.com/padsync/padsync/pkg/protocol"
)

// Room holds the live relay state for one session: the set of joined
// connections and the bounded replay history.
//
// One mutex guards everything in the room. Join, Leave, HandleMessage,
// and CloseAll are mutually exclusive on a given room, which is what
// makes a joiner's replay snapshot causally consistent: a stored message
// is either in the replay or will arrive as a live broadcast, never both
// and never neither. Different rooms never contend.
type Room struct {
	sessionID string

	mu      sync.Mutex
	conns   map[string]Conn
	history *History

	logger *slog.Logger
}

// newRoom creates an empty room for the session.
func newRoom(sessionID string, historyCap, historyRetain int, logger *slog.Logger) *Room {
	return &Room{
		sessionID: sessionID,
		conns:     make(map[string]Conn),
		history:   NewHistory(historyCap, historyRetain),
		logger:    logger.With("session_id", sessionID),
	}
}

// SessionID returns the session this room relays for.
func (r *Room) SessionID() string {
	return r.sessionID
}

// Join registers the connection and replays the buffered history to it in
// recording order. Replay completes under the room lock, so no live
// broadcast can interleave with it; the joiner observes history strictly
// before anything fresh.
func (r *Room) Join(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[conn.ID()] = conn

	for _, msg := range r.history.Entries() {
		if err := conn.Send(msg); err != nil {
			r.logger.Warn("replay send failed, evicting connection",
				"conn_id", conn.ID(),
				"error", err)
			delete(r.conns, conn.ID())
			return
		}
	}

	r.logger.Info("connection joined room",
		"conn_id", conn.ID(),
		"connections", len(r.conns),
		"replayed", r.history.Len())
}

// Leave removes the connection from the room. History is untouched; it
// must survive for later joiners.
func (r *Room) Leave(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connID]; !ok {
		return
	}
	delete(r.conns, connID)

	r.logger.Info("connection left room",
		"conn_id", connID,
		"connections", len(r.conns))
}

// HandleMessage classifies one inbound frame and applies the routing
// decision: append to history, broadcast to everyone but the sender, or
// drop. A failed send evicts only the failed connection; delivery to the
// rest continues.
func (r *Room) HandleMessage(senderID string, data []byte) {
	route := protocol.Classify(data)
	if !route.Store && !route.Broadcast {
		if len(data) > 0 {
			r.logger.Warn("dropping unroutable frame",
				"conn_id", senderID,
				"kind", protocol.Describe(data),
				"size", len(data))
		}
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if route.Store {
		r.history.Append(data)
	}

	if !route.Broadcast {
		return
	}

	var failed []string
	for id, conn := range r.conns {
		if id == senderID {
			continue
		}
		if err := conn.Send(data); err != nil {
			r.logger.Warn("broadcast send failed, evicting connection",
				"conn_id", id,
				"error", err)
			failed = append(failed, id)
		}
	}
	for _, id := range failed {
		delete(r.conns, id)
	}
}

// CloseAll force-closes every connection with the given close code and
// empties the membership set. History is left alone; the caller decides
// whether the room itself goes away.
func (r *Room) CloseAll(code int, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, conn := range r.conns {
		if err := conn.Close(code, reason); err != nil {
			r.logger.Debug("close failed",
				"conn_id", id,
				"error", err)
		}
	}
	r.conns = make(map[string]Conn)
}

// ConnectionCount returns the number of currently joined connections.
func (r *Room) ConnectionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// HistoryLen returns the number of buffered replayable messages.
func (r *Room) HistoryLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.Len()
}
