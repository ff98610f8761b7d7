package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/dkeye/Parley/internal/core"
	"github.com/dkeye/Parley/internal/domain"
)

// Rooms is the room catalogue.
type Rooms struct {
	db *gorm.DB
}

func NewRooms(db *gorm.DB) *Rooms {
	return &Rooms{db: db}
}

// Create adds a room. Returns core.ErrDuplicate on a taken name.
func (r *Rooms) Create(name, description string) (domain.Room, error) {
	room := Room{Name: name, Description: description}
	if err := r.db.Create(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.Room{}, core.ErrDuplicate
		}
		return domain.Room{}, fmt.Errorf("failed to create room: %w", err)
	}
	return domain.Room{ID: domain.RoomID(room.ID), Name: room.Name, Description: room.Description}, nil
}

// Get returns one room by id, or core.ErrRoomNotFound.
func (r *Rooms) Get(id domain.RoomID) (domain.Room, error) {
	var room Room
	if err := r.db.First(&room, "id = ?", int64(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Room{}, core.ErrRoomNotFound
		}
		return domain.Room{}, fmt.Errorf("failed to find room: %w", err)
	}
	return domain.Room{ID: domain.RoomID(room.ID), Name: room.Name, Description: room.Description}, nil
}

// List returns all rooms ordered by id.
func (r *Rooms) List() ([]domain.Room, error) {
	var rooms []Room
	if err := r.db.Order("id").Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	out := make([]domain.Room, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, domain.Room{ID: domain.RoomID(room.ID), Name: room.Name, Description: room.Description})
	}
	return out, nil
}
