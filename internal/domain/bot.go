package domain

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// BotIDLength is the fixed length of a WhatsApp bot identifier
const BotIDLength = 32

// Bot represents a WhatsApp integration tracked by the watcher
type Bot struct {
	ID          string
	Name        string
	Description string
	CurrentQR   *string
	Authed      bool
	CreatedAt   time.Time
}

// HasQR reports whether the bot carries a pending QR payload
func (b *Bot) HasQR() bool {
	return b.CurrentQR != nil && *b.CurrentQR != ""
}

// ShortID returns the first characters of the bot id for display
func (b *Bot) ShortID() string {
	if len(b.ID) <= 6 {
		return b.ID
	}
	return b.ID[:6] + "..."
}

// ValidateBotID checks the bot id format
func ValidateBotID(id string) error {
	if len(id) != BotIDLength {
		return fmt.Errorf("bot_id must be exactly %d characters", BotIDLength)
	}
	return nil
}

// ValidateBotInfo checks registration fields
func ValidateBotInfo(id, name, description string) error {
	if err := ValidateBotID(id); err != nil {
		return err
	}
	if n := utf8.RuneCountInString(name); n < 1 || n > 50 {
		return fmt.Errorf("name must be between 1 and 50 characters")
	}
	if utf8.RuneCountInString(description) > 200 {
		return fmt.Errorf("description must be at most 200 characters")
	}
	return nil
}
