package store

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/dkeye/Parley/internal/domain"
)

// Messages is the append-only per-room history log.
type Messages struct {
	db *gorm.DB
}

func NewMessages(db *gorm.DB) *Messages {
	return &Messages{db: db}
}

// Append persists one message row.
func (m *Messages) Append(msg domain.Message) error {
	row := Message{
		RoomID:    int64(msg.RoomID),
		Username:  msg.Username,
		Message:   msg.Text,
		Kind:      string(msg.Kind),
		Timestamp: msg.Timestamp,
	}
	if err := m.db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// Recent returns the last limit messages for a room in chronological
// (oldest-first) order. The query walks the log newest-first and the
// result is reversed before returning.
func (m *Messages) Recent(roomID domain.RoomID, limit int) ([]domain.Message, error) {
	var rows []Message
	err := m.db.Where("room_id = ?", int64(roomID)).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	out := make([]domain.Message, len(rows))
	for i, row := range rows {
		out[len(rows)-1-i] = domain.Message{
			RoomID:    domain.RoomID(row.RoomID),
			Username:  row.Username,
			Text:      row.Message,
			Kind:      domain.MessageKind(row.Kind),
			Timestamp: row.Timestamp,
		}
	}
	return out, nil
}
