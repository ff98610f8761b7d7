package core

import "errors"

var (
	ErrBackpressure         = errors.New("backpressure")
	ErrConnClosed           = errors.New("connection closed")
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrAlreadyAuthenticated = errors.New("already authenticated")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrNoRoom               = errors.New("not in a room")
	ErrRoomNotFound         = errors.New("room not found")
	ErrDuplicate            = errors.New("already exists")
)
