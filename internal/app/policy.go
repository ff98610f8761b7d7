package app

import (
	"github.com/dkeye/Parley/internal/core"
	"github.com/dkeye/Parley/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a member whose queue rejected a frame.
type Policy interface {
	OnBackpressure(roomID domain.RoomID, sid core.SessionID) BackpressureAction
}

// KickPolicy disconnects slow members: a full queue means the peer has
// stopped draining and would otherwise fall behind without bound.
type KickPolicy struct{}

func (KickPolicy) OnBackpressure(domain.RoomID, core.SessionID) BackpressureAction {
	return KickMember
}
