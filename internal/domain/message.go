package domain

import "time"

// TimeFormat is the wall-clock format messages carry on the wire.
const TimeFormat = "15:04:05"

type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindFile  MessageKind = "file"
)

// NormalizeKind maps an optional wire value to a known kind, defaulting to text.
func NormalizeKind(s string) MessageKind {
	switch MessageKind(s) {
	case KindImage:
		return KindImage
	case KindFile:
		return KindFile
	default:
		return KindText
	}
}

type Message struct {
	RoomID    RoomID
	Username  string
	Text      string
	Kind      MessageKind
	Timestamp time.Time
}
