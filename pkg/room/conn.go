package room

// WebSocket close codes sent when the relay terminates a connection.
// 4xxx is the application-reserved range.
const (
	// CloseSessionDeleted is sent to every member of a room when its
	// session is deleted.
	CloseSessionDeleted = 4000

	// CloseSessionNotFound is sent when a client connects for a session
	// ID the registry does not know.
	CloseSessionNotFound = 4004
)

// Conn is one live duplex endpoint joined to a room. The transport layer
// supplies the implementation; the room only ever sends, closes, and
// compares by ID.
//
// Send and Close must be safe for concurrent use. A Send error is treated
// as an implicit disconnect: the room evicts the connection and carries on
// delivering to everyone else.
type Conn interface {
	// ID returns an identifier unique among live connections.
	ID() string

	// Send writes one binary message to the peer.
	Send(data []byte) error

	// Close terminates the connection with a close code and reason.
	Close(code int, reason string) error
}
