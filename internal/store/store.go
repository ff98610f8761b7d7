// Package store persists users, rooms and message history in sqlite.
// It is the only place that touches the database; the router consumes
// it through the narrow interfaces declared in internal/app.
package store

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens (creating if needed) the chat database and runs migrations.
// A "General" room is seeded so a fresh server has somewhere to talk.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&User{}, &Room{}, &Message{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	seed := Room{Name: "General", Description: "Main chat room"}
	if err := db.Where(Room{Name: seed.Name}).FirstOrCreate(&seed).Error; err != nil {
		return nil, fmt.Errorf("failed to seed default room: %w", err)
	}

	log.Info().Str("module", "store").Str("path", path).Msg("database ready")
	return db, nil
}
