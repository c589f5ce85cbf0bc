// Package relay wires the session registry and the room manager into the
// operations the transport layer calls on connect, on each inbound frame,
// and on disconnect.
//
// Lock ordering: when an operation needs both the session registry and a
// room, the registry is always touched first. The two locks are never
// held at the same time.
package relay

import (
	"errors"
	"log/slog"

	"github.com/padsync/padsync/pkg/registry"
	"github.com/padsync/padsync/pkg/room"
)

// ErrSessionNotFound is returned by OnConnect when the session ID is not
// in the registry. The transport maps it to connection refusal.
var ErrSessionNotFound = errors.New("relay: session not found")

// Relay composes the session registry and the room manager.
type Relay struct {
	sessions *registry.Registry
	rooms    *room.Manager
	logger   *slog.Logger
}

// New creates a relay over the given registry and room manager.
func New(sessions *registry.Registry, rooms *room.Manager, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		sessions: sessions,
		rooms:    rooms,
		logger:   logger.With("component", "relay"),
	}
}

// Sessions returns the underlying session registry.
func (r *Relay) Sessions() *registry.Registry {
	return r.sessions
}

// OnConnect validates that the session exists before the transport
// accepts a connection for it.
func (r *Relay) OnConnect(sessionID string) error {
	if _, ok := r.sessions.Get(sessionID); !ok {
		return ErrSessionNotFound
	}
	return nil
}

// OnJoin registers the connection as a session participant and joins it
// to the session's room, replaying buffered history to it.
func (r *Relay) OnJoin(sessionID string, conn room.Conn) {
	r.sessions.AddParticipant(sessionID, conn.ID())
	r.rooms.GetOrCreate(sessionID).Join(conn)
}

// OnFrame routes one inbound frame through the session's room. Frames
// for sessions without a room are dropped; the room only exists once
// someone has joined.
func (r *Relay) OnFrame(sessionID, senderID string, data []byte) {
	rm, ok := r.rooms.Get(sessionID)
	if !ok {
		return
	}
	rm.HandleMessage(senderID, data)
}

// OnDisconnect removes the connection from the session's participant set
// and from its room. It is safe to call on any termination path, clean
// or not, and repeatedly.
func (r *Relay) OnDisconnect(sessionID, connID string) {
	r.sessions.RemoveParticipant(sessionID, connID)
	if rm, ok := r.rooms.Get(sessionID); ok {
		rm.Leave(connID)
	}
}

// OnSessionDelete tears the session down: every connection in its room is
// force-closed with room.CloseSessionDeleted, the room is removed, and
// the session leaves the registry. Reports whether the session existed.
func (r *Relay) OnSessionDelete(sessionID string) bool {
	r.rooms.Delete(sessionID)
	existed := r.sessions.Delete(sessionID)
	if existed {
		r.logger.Info("session torn down", "session_id", sessionID)
	}
	return existed
}

// RoomInfo returns the diagnostic snapshot for the session's room.
func (r *Relay) RoomInfo(sessionID string) room.Info {
	return r.rooms.Info(sessionID)
}
