// Package protocol defines the wire envelopes and the framing that
// carries them. Every envelope is one JSON document with a mandatory
// "type" discriminator; the same envelopes travel over the TCP and
// WebSocket transports.
package protocol

import "encoding/json"

// Request types.
const (
	TypeRegister    = "register"
	TypeLogin       = "login"
	TypeGetRooms    = "get_rooms"
	TypeCreateRoom  = "create_room"
	TypeJoinRoom    = "join_room"
	TypeGetHistory  = "get_history"
	TypeChatMessage = "chat_message"
)

// Response and broadcast types.
const (
	TypeRegisterResult = "register_result"
	TypeLoginSuccess   = "login_success"
	TypeLoginFailed    = "login_failed"
	TypeRoomsList      = "rooms_list"
	TypeRoomCreated    = "room_created"
	TypeRoomJoined     = "room_joined"
	TypeHistory        = "history"
	TypeNewMessage     = "new_message"
	TypeError          = "error"
)

// PeekType extracts the discriminator without decoding the payload.
func PeekType(data []byte) (string, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return "", err
	}
	return env.Type, nil
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateRoomRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type JoinRoomRequest struct {
	RoomID int64 `json:"room_id"`
}

type GetHistoryRequest struct {
	RoomID int64 `json:"room_id"`
	Limit  int   `json:"limit,omitempty"`
}

type ChatMessageRequest struct {
	Message     string `json:"message"`
	MessageType string `json:"message_type,omitempty"`
}

type RegisterResult struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
}

type LoginSuccess struct {
	Type   string `json:"type"`
	UserID int64  `json:"user_id"`
}

type LoginFailed struct {
	Type string `json:"type"`
}

type RoomInfo struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type RoomsList struct {
	Type  string     `json:"type"`
	Rooms []RoomInfo `json:"rooms"`
}

type RoomCreated struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
}

type RoomJoined struct {
	Type   string `json:"type"`
	RoomID int64  `json:"room_id"`
}

type HistoryEntry struct {
	Username    string `json:"username"`
	Message     string `json:"message"`
	MessageType string `json:"message_type"`
	Timestamp   string `json:"timestamp"`
}

type History struct {
	Type string         `json:"type"`
	Data []HistoryEntry `json:"data"`
}

type NewMessage struct {
	Type        string `json:"type"`
	Username    string `json:"username"`
	Message     string `json:"message"`
	MessageType string `json:"message_type"`
	Timestamp   string `json:"timestamp"`
}

type ErrorResponse struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func NewRegisterResult(ok bool) RegisterResult { return RegisterResult{TypeRegisterResult, ok} }

func NewLoginSuccess(userID int64) LoginSuccess { return LoginSuccess{TypeLoginSuccess, userID} }

func NewLoginFailed() LoginFailed { return LoginFailed{TypeLoginFailed} }

func NewRoomsList(rooms []RoomInfo) RoomsList { return RoomsList{TypeRoomsList, rooms} }

func NewRoomCreated(ok bool) RoomCreated { return RoomCreated{TypeRoomCreated, ok} }

func NewRoomJoined(roomID int64) RoomJoined { return RoomJoined{TypeRoomJoined, roomID} }

func NewHistory(data []HistoryEntry) History { return History{TypeHistory, data} }

func NewError(reason string) ErrorResponse { return ErrorResponse{TypeError, reason} }

// Encode marshals one envelope. The framing layer owns the delimiter.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode unmarshals one envelope's payload into v.
func Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
