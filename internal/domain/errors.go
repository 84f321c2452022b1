package domain

import "errors"

var (
	// ErrBotNotFound is returned when a bot id is unknown
	ErrBotNotFound = errors.New("bot not found")

	// ErrUserNotFound is returned when a Telegram user is not registered
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateBot is returned when registering an id that already exists
	ErrDuplicateBot = errors.New("bot already registered")

	// ErrMalformedQR is returned when a QR payload cannot be decoded
	ErrMalformedQR = errors.New("invalid QR code format")

	// ErrVersionConflict is returned when a user state changed since it was read
	ErrVersionConflict = errors.New("user state version conflict")

	// ErrNoQR is returned when a bot has no pending QR payload
	ErrNoQR = errors.New("no QR code available")

	// ErrBotAuthed is returned when a QR is requested for an authenticated bot
	ErrBotAuthed = errors.New("bot is already authenticated")
)

// ErrNotAdmin is returned when a non-admin user calls an admin operation
var ErrNotAdmin = errors.New("admin rights required")
