package room

import (
	"log/slog"
	"sync"
)

// Manager owns one room per active session ID.
//
// Rooms are created lazily on first join and destroyed only when their
// session is deleted. An empty room is deliberately kept: its history
// must survive for the next joiner.
type Manager struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	historyCap    int
	historyRetain int

	logger *slog.Logger
}

// NewManager creates an empty room manager. historyCap and historyRetain
// bound each room's replay buffer; non-positive values use the defaults.
func NewManager(historyCap, historyRetain int, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		rooms:         make(map[string]*Room),
		historyCap:    historyCap,
		historyRetain: historyRetain,
		logger:        logger.With("component", "room_manager"),
	}
}

// GetOrCreate returns the room for the session, creating it if needed.
// The check-then-create sequence runs under the manager lock, so two
// racing first joins still observe the same single room.
func (m *Manager) GetOrCreate(sessionID string) *Room {
	m.mu.RLock()
	r, ok := m.rooms[sessionID]
	m.mu.RUnlock()
	if ok {
		return r
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[sessionID]; ok {
		return r
	}
	r = newRoom(sessionID, m.historyCap, m.historyRetain, m.logger)
	m.rooms[sessionID] = r

	m.logger.Info("room created",
		"session_id", sessionID,
		"rooms", len(m.rooms))
	return r
}

// Get returns the room for the session, if one exists.
func (m *Manager) Get(sessionID string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[sessionID]
	return r, ok
}

// Delete removes the room and force-closes every connection in it with
// CloseSessionDeleted. After Delete returns the room is no longer
// retrievable. Unknown sessions are a no-op.
func (m *Manager) Delete(sessionID string) {
	m.mu.Lock()
	r, ok := m.rooms[sessionID]
	if ok {
		delete(m.rooms, sessionID)
	}
	remaining := len(m.rooms)
	m.mu.Unlock()

	if !ok {
		return
	}

	r.CloseAll(CloseSessionDeleted, "Session deleted")

	m.logger.Info("room deleted",
		"session_id", sessionID,
		"rooms", remaining)
}

// Count returns the number of live rooms.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// Info is a read-only diagnostic snapshot of one room.
type Info struct {
	Exists      bool `json:"exists"`
	Connections int  `json:"connections"`
	HistoryLen  int  `json:"history_length"`
}

// Info returns a diagnostic snapshot for the session's room.
func (m *Manager) Info(sessionID string) Info {
	r, ok := m.Get(sessionID)
	if !ok {
		return Info{}
	}
	return Info{
		Exists:      true,
		Connections: r.ConnectionCount(),
		HistoryLen:  r.HistoryLen(),
	}
}
