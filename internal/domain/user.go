package domain

import "time"

// User represents a Telegram user of the watcher
type User struct {
	TgID      int64
	State     UserState
	Version   int64
	CreatedAt time.Time
}

// MessageRef identifies a message previously sent to a chat
type MessageRef struct {
	ChatID    int64     `json:"chat_id"`
	MessageID int       `json:"message_id"`
	SentAt    time.Time `json:"sent_at"`
}
