package registry

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// sessionIDLen is the length of generated session IDs.
const sessionIDLen = 10

// idAlphabet is the URL-safe alphabet for session IDs.
const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// record is the registry-owned state for one session.
type record struct {
	session      Session
	seq          uint64
	participants map[string]struct{}
}

// snapshot returns a copy of the session with the participant count
// filled in.
func (r *record) snapshot() Session {
	s := r.session
	s.Participants = len(r.participants)
	return s
}

// Registry is the in-memory session store.
//
// It owns all session records and guards them with a single mutex that is
// independent of any room lock. When an operation needs both the registry
// and a room, the registry is always touched first.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*record
	nextSeq  uint64

	logger *slog.Logger
}

// NewRegistry creates an empty session registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions: make(map[string]*record),
		logger:   logger.With("component", "session_registry"),
	}
}

// newSessionID generates a random URL-safe session ID.
func newSessionID() string {
	b := make([]byte, sessionIDLen)
	if _, err := rand.Read(b); err != nil {
		// Weak IDs would collide across sessions; refuse to run without
		// entropy.
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	for i := range b {
		b[i] = idAlphabet[int(b[i])%len(idAlphabet)]
	}
	return string(b)
}

// CreateOptions are the optional fields of Create. Zero values fall back
// to defaults; a nil InitialCode means "use the placeholder".
type CreateOptions struct {
	Language    Language
	InitialCode *string
	Title       string
}

// Create registers a new session and returns its snapshot.
// It always succeeds; the generated ID is collision-checked against every
// live session before insertion.
func (r *Registry) Create(opts CreateOptions) Session {
	lang := opts.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	code := DefaultInitialCode
	if opts.InitialCode != nil {
		code = *opts.InitialCode
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := newSessionID()
	for {
		if _, exists := r.sessions[id]; !exists {
			break
		}
		id = newSessionID()
	}

	r.nextSeq++
	rec := &record{
		session: Session{
			ID:          id,
			Language:    lang,
			Title:       opts.Title,
			Status:      StatusActive,
			CreatedAt:   time.Now().UTC(),
			InitialCode: code,
		},
		seq:          r.nextSeq,
		participants: make(map[string]struct{}),
	}
	r.sessions[id] = rec

	r.logger.Info("session created",
		"session_id", id,
		"language", string(lang),
		"total_sessions", len(r.sessions))

	return rec.snapshot()
}

// Get returns a snapshot of the session, if it exists.
func (r *Registry) Get(id string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.sessions[id]
	if !ok {
		return Session{}, false
	}
	return rec.snapshot(), true
}

// UpdateOptions are the mutable session fields. Nil fields are left
// untouched; ID and CreatedAt are immutable.
type UpdateOptions struct {
	Language *Language
	Title    *string
}

// Update applies the provided fields and returns the updated snapshot.
func (r *Registry) Update(id string, opts UpdateOptions) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[id]
	if !ok {
		return Session{}, false
	}
	if opts.Language != nil {
		rec.session.Language = *opts.Language
	}
	if opts.Title != nil {
		rec.session.Title = *opts.Title
	}
	return rec.snapshot(), true
}

// Delete removes the session and reports whether it existed.
//
// Delete does not touch the session's room; tearing down transport state
// is the caller's job so that registry and transport concerns stay
// decoupled.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)

	r.logger.Info("session deleted",
		"session_id", id,
		"total_sessions", len(r.sessions))
	return true
}

// List returns one page of sessions ordered by creation time, newest
// first, plus the unfiltered total.
func (r *Registry) List(limit, offset int) ([]Session, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recs := make([]*record, 0, len(r.sessions))
	for _, rec := range r.sessions {
		recs = append(recs, rec)
	}

	// seq increases monotonically with creation, so it doubles as a
	// stable tiebreak for identical timestamps.
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].session.CreatedAt.Equal(recs[j].session.CreatedAt) {
			return recs[i].seq > recs[j].seq
		}
		return recs[i].session.CreatedAt.After(recs[j].session.CreatedAt)
	})

	total := len(recs)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}

	page := make([]Session, 0, end-offset)
	for _, rec := range recs[offset:end] {
		page = append(page, rec.snapshot())
	}
	return page, total
}

// CountActive returns the number of sessions whose status is active.
func (r *Registry) CountActive() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, rec := range r.sessions {
		if rec.session.Status == StatusActive {
			n++
		}
	}
	return n
}

// AddParticipant records a connection ID against the session and marks it
// active. Unknown sessions are a no-op; participant bookkeeping can race
// against disconnect cleanup.
func (r *Registry) AddParticipant(id, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[id]
	if !ok {
		return
	}
	rec.participants[connID] = struct{}{}
	rec.session.Status = StatusActive
}

// RemoveParticipant discards a connection ID. When the last participant
// leaves, the session goes idle. Missing sessions or participants are
// no-ops.
func (r *Registry) RemoveParticipant(id, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[id]
	if !ok {
		return
	}
	delete(rec.participants, connID)
	if len(rec.participants) == 0 && rec.session.Status == StatusActive {
		rec.session.Status = StatusIdle
	}
}
