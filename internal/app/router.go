// Package app holds the session router: the process-wide table of
// authenticated sessions and room memberships, and the dispatch from
// decoded envelopes to their effects.
package app

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Parley/internal/core"
	"github.com/dkeye/Parley/internal/domain"
	"github.com/dkeye/Parley/internal/protocol"
)

// CredentialStore verifies and creates accounts.
type CredentialStore interface {
	Register(username, password string) error
	Verify(username, password string) (*domain.User, error)
}

// RoomCatalogue creates and lists rooms by unique name.
type RoomCatalogue interface {
	Create(name, description string) (domain.Room, error)
	Get(id domain.RoomID) (domain.Room, error)
	List() ([]domain.Room, error)
}

// MessageLog is the append-only per-room history.
type MessageLog interface {
	Append(msg domain.Message) error
	Recent(roomID domain.RoomID, limit int) ([]domain.Message, error)
}

const DefaultHistoryLimit = 50

// Router routes every inbound envelope to its effect and fans chat
// messages out to room members. Storage calls happen outside the
// registry lock; per-room order locks keep append order and delivery
// order identical within a room.
type Router struct {
	reg     *Registry
	creds   CredentialStore
	rooms   RoomCatalogue
	history MessageLog
	policy  Policy

	historyLimit int
	now          func() time.Time

	orderMu sync.Mutex
	order   map[domain.RoomID]*sync.Mutex
}

func NewRouter(creds CredentialStore, rooms RoomCatalogue, history MessageLog) *Router {
	return &Router{
		reg:          NewRegistry(),
		creds:        creds,
		rooms:        rooms,
		history:      history,
		policy:       KickPolicy{},
		historyLimit: DefaultHistoryLimit,
		now:          time.Now,
		order:        make(map[domain.RoomID]*sync.Mutex),
	}
}

// SetHistoryLimit caps how many rows one history query may return.
func (r *Router) SetHistoryLimit(n int) {
	if n > 0 {
		r.historyLimit = n
	}
}

// Attach registers a new connection and returns its session id.
// The session starts unauthenticated.
func (r *Router) Attach(conn core.Conn) core.SessionID {
	sid := core.SessionID(uuid.NewString())
	r.reg.Add(sid, conn)
	return sid
}

// Detach performs disconnect cleanup for a terminated connection.
// Safe to call more than once.
func (r *Router) Detach(sid core.SessionID) {
	r.reg.Remove(sid)
}

// Dispatch handles one decoded envelope from a connection. A returned
// error is fatal to that connection: the stream can no longer be
// trusted and the caller must drop it. Everything else is answered
// in-band, error envelopes included.
func (r *Router) Dispatch(sid core.SessionID, data []byte) error {
	msgType, err := protocol.PeekType(data)
	if err != nil {
		return fmt.Errorf("malformed envelope: %w", err)
	}
	if msgType == "" {
		return errors.New("missing envelope type")
	}

	switch msgType {
	case protocol.TypeRegister:
		return r.handleRegister(sid, data)
	case protocol.TypeLogin:
		return r.handleLogin(sid, data)
	case protocol.TypeGetRooms:
		return r.handleGetRooms(sid)
	case protocol.TypeCreateRoom:
		return r.handleCreateRoom(sid, data)
	case protocol.TypeJoinRoom:
		return r.handleJoinRoom(sid, data)
	case protocol.TypeGetHistory:
		return r.handleGetHistory(sid, data)
	case protocol.TypeChatMessage:
		return r.handleChat(sid, data)
	default:
		log.Warn().Str("module", "app.router").Str("sid", string(sid)).Str("type", msgType).Msg("unknown envelope type")
		r.send(sid, protocol.NewError("unknown_type"))
		return nil
	}
}

func (r *Router) handleRegister(sid core.SessionID, data []byte) error {
	var req protocol.RegisterRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	if domain.ValidateUsername(req.Username) != nil || domain.ValidatePassword(req.Password) != nil {
		r.send(sid, protocol.NewRegisterResult(false))
		return nil
	}

	err := r.creds.Register(req.Username, req.Password)
	switch {
	case err == nil:
		log.Info().Str("module", "app.router").Str("username", req.Username).Msg("registered user")
		r.send(sid, protocol.NewRegisterResult(true))
	case errors.Is(err, core.ErrDuplicate):
		r.send(sid, protocol.NewRegisterResult(false))
	default:
		log.Error().Err(err).Str("module", "app.router").Msg("register failed")
		r.send(sid, protocol.NewRegisterResult(false))
	}
	return nil
}

func (r *Router) handleLogin(sid core.SessionID, data []byte) error {
	var req protocol.LoginRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	if _, ok := r.reg.UserOf(sid); ok {
		r.send(sid, protocol.NewError("already_authenticated"))
		return nil
	}

	user, err := r.creds.Verify(req.Username, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrInvalidCredentials):
		r.send(sid, protocol.NewLoginFailed())
		return nil
	default:
		log.Error().Err(err).Str("module", "app.router").Msg("login failed")
		r.send(sid, protocol.NewLoginFailed())
		return nil
	}

	if err := r.reg.Authenticate(sid, user); err != nil {
		r.send(sid, protocol.NewError("already_authenticated"))
		return nil
	}
	r.send(sid, protocol.NewLoginSuccess(int64(user.ID)))
	return nil
}

func (r *Router) handleGetRooms(sid core.SessionID) error {
	if _, ok := r.requireUser(sid); !ok {
		return nil
	}
	rooms, err := r.rooms.List()
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Msg("list rooms failed")
		r.send(sid, protocol.NewError("internal_error"))
		return nil
	}
	infos := make([]protocol.RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		infos = append(infos, protocol.RoomInfo{ID: int64(room.ID), Name: room.Name, Description: room.Description})
	}
	r.send(sid, protocol.NewRoomsList(infos))
	return nil
}

func (r *Router) handleCreateRoom(sid core.SessionID, data []byte) error {
	var req protocol.CreateRoomRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	if _, ok := r.requireUser(sid); !ok {
		return nil
	}
	if domain.ValidateRoomName(req.Name) != nil {
		r.send(sid, protocol.NewRoomCreated(false))
		return nil
	}

	// Two concurrent creates for one name race at the storage layer;
	// the unique index picks the winner and the loser sees a conflict.
	room, err := r.rooms.Create(req.Name, req.Description)
	switch {
	case err == nil:
		log.Info().Str("module", "app.router").Int64("room", int64(room.ID)).Str("name", room.Name).Msg("room created")
		r.send(sid, protocol.NewRoomCreated(true))
	case errors.Is(err, core.ErrDuplicate):
		r.send(sid, protocol.NewRoomCreated(false))
	default:
		log.Error().Err(err).Str("module", "app.router").Msg("create room failed")
		r.send(sid, protocol.NewRoomCreated(false))
	}
	return nil
}

func (r *Router) handleJoinRoom(sid core.SessionID, data []byte) error {
	var req protocol.JoinRoomRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	if _, ok := r.requireUser(sid); !ok {
		return nil
	}

	room, err := r.rooms.Get(domain.RoomID(req.RoomID))
	switch {
	case err == nil:
	case errors.Is(err, core.ErrRoomNotFound):
		r.send(sid, protocol.NewError("room_not_found"))
		return nil
	default:
		log.Error().Err(err).Str("module", "app.router").Msg("join lookup failed")
		r.send(sid, protocol.NewError("internal_error"))
		return nil
	}

	if err := r.reg.Join(sid, room.ID); err != nil {
		r.send(sid, protocol.NewError("not_authenticated"))
		return nil
	}
	r.send(sid, protocol.NewRoomJoined(int64(room.ID)))
	return nil
}

func (r *Router) handleGetHistory(sid core.SessionID, data []byte) error {
	var req protocol.GetHistoryRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	if _, ok := r.requireUser(sid); !ok {
		return nil
	}

	limit := req.Limit
	if limit <= 0 || limit > r.historyLimit {
		limit = r.historyLimit
	}
	msgs, err := r.history.Recent(domain.RoomID(req.RoomID), limit)
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Msg("history failed")
		r.send(sid, protocol.NewError("internal_error"))
		return nil
	}
	entries := make([]protocol.HistoryEntry, 0, len(msgs))
	for _, m := range msgs {
		entries = append(entries, protocol.HistoryEntry{
			Username:    m.Username,
			Message:     m.Text,
			MessageType: string(m.Kind),
			Timestamp:   m.Timestamp.Format(domain.TimeFormat),
		})
	}
	r.send(sid, protocol.NewHistory(entries))
	return nil
}

func (r *Router) handleChat(sid core.SessionID, data []byte) error {
	var req protocol.ChatMessageRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	user, ok := r.requireUser(sid)
	if !ok {
		return nil
	}
	roomID, ok := r.reg.RoomOf(sid)
	if !ok {
		r.send(sid, protocol.NewError("not_in_room"))
		return nil
	}

	msg := domain.Message{
		RoomID:    roomID,
		Username:  user.Username,
		Text:      req.Message,
		Kind:      domain.NormalizeKind(req.MessageType),
		Timestamp: r.now(),
	}

	// The room's order lock serializes append+fan-out so every member
	// observes broadcasts in log append order. It stalls only senders
	// to the same room, never the registry.
	mu := r.roomOrder(roomID)
	mu.Lock()
	defer mu.Unlock()

	if err := r.history.Append(msg); err != nil {
		log.Error().Err(err).Str("module", "app.router").Msg("append failed")
		r.send(sid, protocol.NewError("internal_error"))
		return nil
	}
	r.broadcast(roomID, protocol.NewMessage{
		Type:        protocol.TypeNewMessage,
		Username:    msg.Username,
		Message:     msg.Text,
		MessageType: string(msg.Kind),
		Timestamp:   msg.Timestamp.Format(domain.TimeFormat),
	})
	return nil
}

// broadcast delivers one envelope to every member of a room, sender
// included. Delivery is fire-and-forget per member; a rejected send
// never aborts the rest of the pass.
func (r *Router) broadcast(roomID domain.RoomID, v any) {
	data, err := protocol.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Msg("broadcast encode")
		return
	}

	res := core.PublishResult{}
	for _, member := range r.reg.MembersOf(roomID) {
		if err := member.Conn.TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, member.SID)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "app.router").Int64("room", int64(roomID)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")

	for _, sid := range res.Dropped {
		if r.policy.OnBackpressure(roomID, sid) == KickMember {
			r.kick(sid)
		}
	}
}

// kick force-disconnects a session: registry cleanup first so no
// further broadcast can pick it up, then the transport is closed.
func (r *Router) kick(sid core.SessionID) {
	conn, ok := r.reg.ConnOf(sid)
	r.reg.Remove(sid)
	if ok {
		conn.Close()
	}
	log.Warn().Str("module", "app.router").Str("sid", string(sid)).Msg("kicked slow member")
}

func (r *Router) requireUser(sid core.SessionID) (*domain.User, bool) {
	user, ok := r.reg.UserOf(sid)
	if !ok {
		r.send(sid, protocol.NewError("not_authenticated"))
		return nil, false
	}
	return user, true
}

func (r *Router) send(sid core.SessionID, v any) {
	conn, ok := r.reg.ConnOf(sid)
	if !ok {
		return
	}
	data, err := protocol.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Msg("send encode")
		return
	}
	if err := conn.TrySend(data); err != nil {
		r.kick(sid)
	}
}

func (r *Router) roomOrder(roomID domain.RoomID) *sync.Mutex {
	r.orderMu.Lock()
	defer r.orderMu.Unlock()
	mu, ok := r.order[roomID]
	if !ok {
		mu = &sync.Mutex{}
		r.order[roomID] = mu
	}
	return mu
}

func decode(data []byte, v any) error {
	if err := protocol.Decode(data, v); err != nil {
		return fmt.Errorf("malformed envelope: %w", err)
	}
	return nil
}
