package store

import "time"

// User is a registered account. Password holds the bcrypt hash.
type User struct {
	ID       int64  `gorm:"primaryKey"`
	Username string `gorm:"uniqueIndex;size:36;not null"`
	Password string `gorm:"not null"`
}

func (User) TableName() string { return "users" }

// Room is a catalogue entry; membership is in-memory state, not persisted.
type Room struct {
	ID          int64  `gorm:"primaryKey"`
	Name        string `gorm:"uniqueIndex;size:36;not null"`
	Description string `gorm:"size:200"`
}

func (Room) TableName() string { return "rooms" }

// Message is one appended history row. Append-only: no update or delete path.
type Message struct {
	ID        int64  `gorm:"primaryKey"`
	RoomID    int64  `gorm:"index;not null"`
	Username  string `gorm:"size:36;not null"`
	Message   string `gorm:"not null"`
	Kind      string `gorm:"size:8;default:text"`
	Timestamp time.Time
}

func (Message) TableName() string { return "messages" }
