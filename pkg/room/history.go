package room

// Default replay-history bounds. When the buffer grows to the cap it is
// cut back to the retain count, so truncation runs once per half-cap of
// stored messages instead of on every append.
const (
	DefaultHistoryCap    = 100
	DefaultHistoryRetain = 50
)

// History is the bounded, order-preserving record of storable messages
// replayed to late joiners. It is not safe for concurrent use; the owning
// room's lock guards it.
type History struct {
	cap     int
	retain  int
	entries [][]byte
}

// NewHistory creates a history with the given bounds. Non-positive or
// inconsistent bounds fall back to the defaults.
func NewHistory(cap, retain int) *History {
	if cap <= 0 {
		cap = DefaultHistoryCap
	}
	if retain <= 0 || retain > cap {
		retain = cap / 2
		if retain == 0 {
			retain = cap
		}
	}
	return &History{
		cap:     cap,
		retain:  retain,
		entries: make([][]byte, 0, cap),
	}
}

// Append records a message. When the buffer reaches the cap, only the
// most recent retain entries survive, oldest dropped first.
func (h *History) Append(msg []byte) {
	h.entries = append(h.entries, msg)
	if len(h.entries) >= h.cap {
		keep := h.entries[len(h.entries)-h.retain:]
		h.entries = append(make([][]byte, 0, h.cap), keep...)
	}
}

// Len returns the number of buffered messages.
func (h *History) Len() int {
	return len(h.entries)
}

// Entries returns the buffered messages in recording order. The returned
// slice is a copy; the payloads are shared and must not be mutated.
func (h *History) Entries() [][]byte {
	out := make([][]byte, len(h.entries))
	copy(out, h.entries)
	return out
}
