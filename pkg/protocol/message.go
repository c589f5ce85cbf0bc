package protocol

// MessageClass identifies the top-level class of a relay message.
// It is the first byte of every frame.
type MessageClass uint8

const (
	ClassSync      MessageClass = 0x00 // Document synchronization traffic
	ClassAwareness MessageClass = 0x01 // Ephemeral presence/cursor data
)

// String returns the string representation of the message class.
func (mc MessageClass) String() string {
	switch mc {
	case ClassSync:
		return "Sync"
	case ClassAwareness:
		return "Awareness"
	default:
		return "Unknown"
	}
}

// SyncType identifies the subtype of a sync message.
// It is the second byte of a frame whose class is ClassSync.
type SyncType uint8

const (
	SyncStep1  SyncType = 0x00 // State-vector probe
	SyncStep2  SyncType = 0x01 // Full state response
	SyncUpdate SyncType = 0x02 // Incremental update
)

// String returns the string representation of the sync subtype.
func (st SyncType) String() string {
	switch st {
	case SyncStep1:
		return "Step1"
	case SyncStep2:
		return "Step2"
	case SyncUpdate:
		return "Update"
	default:
		return "Unknown"
	}
}

// Route is the relay's decision for one inbound message.
type Route struct {
	// Store records the message in the room's replay history.
	Store bool

	// Broadcast forwards the message to every room member except the
	// sender.
	Broadcast bool
}

// drop is the zero Route: neither stored nor broadcast.
var drop = Route{}

// Classify maps a raw frame onto the routing table.
//
// The table is closed: every (class, subtype) pair outside the known set
// falls through to drop. Malformed frames (empty, or a sync frame without
// a subtype byte) also drop. Classify never fails; relay-level tolerance
// means a bad frame costs nothing but itself.
func Classify(data []byte) Route {
	if len(data) < 1 {
		return drop
	}

	switch MessageClass(data[0]) {
	case ClassSync:
		if len(data) < 2 {
			return drop
		}
		switch SyncType(data[1]) {
		case SyncStep1:
			// A probe is forwarded in the pure-relay model (the relay
			// holds no document state to answer it with) but never
			// replayed.
			return Route{Broadcast: true}
		case SyncStep2, SyncUpdate:
			return Route{Store: true, Broadcast: true}
		default:
			return drop
		}

	case ClassAwareness:
		return Route{Broadcast: true}

	default:
		return drop
	}
}

// Describe returns a short human-readable label for a frame, for logging.
// It never inspects past the classification bytes.
func Describe(data []byte) string {
	if len(data) < 1 {
		return "empty"
	}
	mc := MessageClass(data[0])
	if mc == ClassSync {
		if len(data) < 2 {
			return "Sync/truncated"
		}
		return "Sync/" + SyncType(data[1]).String()
	}
	return mc.String()
}
