package store

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/dkeye/Parley/internal/core"
	"github.com/dkeye/Parley/internal/domain"
)

// Credentials verifies and creates user accounts.
type Credentials struct {
	db   *gorm.DB
	cost int
}

func NewCredentials(db *gorm.DB) *Credentials {
	return &Credentials{db: db, cost: bcrypt.DefaultCost}
}

// Register creates an account. Returns core.ErrDuplicate when the
// username is taken; the unique index is the final arbiter under races.
func (c *Credentials) Register(username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := User{Username: username, Password: string(hash)}
	if err := c.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return core.ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Verify checks a username/password pair and returns the account on success.
// Unknown usernames and wrong passwords are indistinguishable to the caller.
func (c *Credentials) Verify(username, password string) (*domain.User, error) {
	var user User
	if err := c.db.First(&user, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, core.ErrInvalidCredentials
	}
	return &domain.User{ID: domain.UserID(user.ID), Username: user.Username}, nil
}
