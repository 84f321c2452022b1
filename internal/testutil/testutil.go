package testutil

import (
	"sync"
	"time"

	"qrwatcher/internal/domain"

	"go.uber.org/zap"
)

// NewTestLogger creates a no-op logger for tests
func NewTestLogger() *zap.Logger {
	return zap.NewNop()
}

// NewTestBot creates a test bot
func NewTestBot(id, name string, authed bool, qr string) *domain.Bot {
	bot := &domain.Bot{
		ID:        id,
		Name:      name,
		Authed:    authed,
		CreatedAt: time.Now(),
	}
	if qr != "" {
		bot.CurrentQR = &qr
	}
	return bot
}

// NewTestUser creates a test user with default state
func NewTestUser(tgID int64) *domain.User {
	return &domain.User{
		TgID:      tgID,
		State:     domain.NewUserState(),
		CreatedAt: time.Now(),
	}
}

// BotID pads a short name into a valid 32 character bot id
func BotID(prefix string) string {
	id := prefix
	for len(id) < domain.BotIDLength {
		id += "0"
	}
	return id[:domain.BotIDLength]
}

// FakeRenderer returns the content itself as the image. Safe for concurrent use.
type FakeRenderer struct {
	Err error

	mu    sync.Mutex
	calls int
}

// Render implements qrimage.Renderer
func (r *FakeRenderer) Render(content string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.Err != nil {
		return nil, r.Err
	}
	return []byte("png:" + content), nil
}

// Calls returns how many times Render was called
func (r *FakeRenderer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
