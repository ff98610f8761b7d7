package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Parley/internal/core"
	"github.com/dkeye/Parley/internal/domain"
)

type sessionEntry struct {
	conn core.Conn
	user *domain.User // nil until login succeeds
	room domain.RoomID
}

// Registry owns the session table and every room's membership roster.
// It is the only shared mutable state in the core; all mutation happens
// under one lock and never does network or storage I/O while held.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
	rooms    map[domain.RoomID]*core.Roster
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
		rooms:    make(map[domain.RoomID]*core.Roster),
	}
}

// Add binds a fresh unauthenticated session to its write path.
func (r *Registry) Add(sid core.SessionID, conn core.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{conn: conn}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("session added")
}

// Remove drops the session and, when joined, its roster entry in one
// step, so a concurrent broadcast sees it fully in or fully out.
func (r *Registry) Remove(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[sid]
	if !ok {
		return
	}
	if entry.room != 0 {
		if roster, ok := r.rooms[entry.room]; ok {
			roster.Remove(sid)
		}
	}
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("session removed")
}

// Authenticate marks the session as logged in.
func (r *Registry) Authenticate(sid core.SessionID, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[sid]
	if !ok {
		return core.ErrConnClosed
	}
	if entry.user != nil {
		return core.ErrAlreadyAuthenticated
	}
	entry.user = user
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("username", user.Username).Msg("session authenticated")
	return nil
}

// Join moves the session into a room, leaving its previous room if any.
// Re-joining the current room is a no-op that still succeeds.
func (r *Registry) Join(sid core.SessionID, roomID domain.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[sid]
	if !ok {
		return core.ErrConnClosed
	}
	if entry.user == nil {
		return core.ErrNotAuthenticated
	}
	if entry.room == roomID {
		return nil
	}
	if entry.room != 0 {
		if prev, ok := r.rooms[entry.room]; ok {
			prev.Remove(sid)
		}
	}
	roster, ok := r.rooms[roomID]
	if !ok {
		roster = core.NewRoster()
		r.rooms[roomID] = roster
	}
	roster.Add(sid, entry.conn)
	entry.room = roomID
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Int64("room", int64(roomID)).Int("members", roster.Len()).Msg("joined room")
	return nil
}

// UserOf returns the authenticated user bound to the session.
func (r *Registry) UserOf(sid core.SessionID) (*domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[sid]
	if !ok || entry.user == nil {
		return nil, false
	}
	return entry.user, true
}

// RoomOf returns the session's current room, if joined to one.
func (r *Registry) RoomOf(sid core.SessionID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[sid]
	if !ok || entry.room == 0 {
		return 0, false
	}
	return entry.room, true
}

// ConnOf returns the session's write path.
func (r *Registry) ConnOf(sid core.SessionID) (core.Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[sid]
	if !ok {
		return nil, false
	}
	return entry.conn, true
}

// MembersOf snapshots a room's membership for fan-out outside the lock.
func (r *Registry) MembersOf(roomID domain.RoomID) []core.Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roster, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	return roster.Snapshot()
}
