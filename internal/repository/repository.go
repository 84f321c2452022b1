package repository

import (
	"context"

	"qrwatcher/internal/domain"
)

// BotRepository defines bot directory operations
type BotRepository interface {
	Create(ctx context.Context, id, name, description string) (*domain.Bot, error)
	Get(ctx context.Context, id string) (*domain.Bot, error)
	SetQR(ctx context.Context, id, qr string) (bool, error)
	SetAuthed(ctx context.Context, id string, authed bool) (bool, error)
	ClearQR(ctx context.Context, id string) (bool, error)
	ListUnlinked(ctx context.Context) ([]domain.Bot, error)
	ListAuthed(ctx context.Context) ([]domain.Bot, error)
}

// UserRepository defines user directory operations
type UserRepository interface {
	Create(ctx context.Context, tgID int64, state domain.UserState) (bool, error)
	GetOrCreate(ctx context.Context, tgID int64) (*domain.User, error)
	GetByTgID(ctx context.Context, tgID int64) (*domain.User, error)
	UpdateState(ctx context.Context, tgID int64, state domain.UserState, version int64) error
	ListLinkedTo(ctx context.Context, botID string) ([]domain.User, error)
	ListBotsOf(ctx context.Context, tgID int64) ([]domain.Bot, error)
}

// LinkRepository defines user-bot link operations
type LinkRepository interface {
	Link(ctx context.Context, userID int64, botID string) (bool, error)
	Unlink(ctx context.Context, userID int64, botID string) (bool, error)
}
