package core

// Roster is one room's membership set, keyed by session.
// Not threadsafe: the registry mutates it under its own lock
// and hands out snapshots for fan-out outside that lock.
type Roster struct {
	bySID map[SessionID]Conn
}

func NewRoster() *Roster {
	return &Roster{bySID: make(map[SessionID]Conn)}
}

func (r *Roster) Add(sid SessionID, conn Conn) {
	r.bySID[sid] = conn
}

func (r *Roster) Remove(sid SessionID) {
	delete(r.bySID, sid)
}

func (r *Roster) Len() int { return len(r.bySID) }

// Member pairs a session with its write path for one broadcast pass.
type Member struct {
	SID  SessionID
	Conn Conn
}

// Snapshot copies the membership so delivery can iterate without
// holding the registry lock while the set is concurrently mutated.
func (r *Roster) Snapshot() []Member {
	out := make([]Member, 0, len(r.bySID))
	for sid, conn := range r.bySID {
		out = append(out, Member{SID: sid, Conn: conn})
	}
	return out
}
