package testutil

import (
	"context"

	"qrwatcher/internal/domain"

	"github.com/stretchr/testify/mock"
)

// MockBotRepository is a mock for BotRepository
type MockBotRepository struct {
	mock.Mock
}

func (m *MockBotRepository) Create(ctx context.Context, id, name, description string) (*domain.Bot, error) {
	args := m.Called(ctx, id, name, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bot), args.Error(1)
}

func (m *MockBotRepository) Get(ctx context.Context, id string) (*domain.Bot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bot), args.Error(1)
}

func (m *MockBotRepository) SetQR(ctx context.Context, id, qr string) (bool, error) {
	args := m.Called(ctx, id, qr)
	return args.Bool(0), args.Error(1)
}

func (m *MockBotRepository) SetAuthed(ctx context.Context, id string, authed bool) (bool, error) {
	args := m.Called(ctx, id, authed)
	return args.Bool(0), args.Error(1)
}

func (m *MockBotRepository) ClearQR(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockBotRepository) ListUnlinked(ctx context.Context) ([]domain.Bot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Bot), args.Error(1)
}

func (m *MockBotRepository) ListAuthed(ctx context.Context) ([]domain.Bot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Bot), args.Error(1)
}

// MockUserRepository is a mock for UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, tgID int64, state domain.UserState) (bool, error) {
	args := m.Called(ctx, tgID, state)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) GetOrCreate(ctx context.Context, tgID int64) (*domain.User, error) {
	args := m.Called(ctx, tgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByTgID(ctx context.Context, tgID int64) (*domain.User, error) {
	args := m.Called(ctx, tgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) UpdateState(ctx context.Context, tgID int64, state domain.UserState, version int64) error {
	args := m.Called(ctx, tgID, state, version)
	return args.Error(0)
}

func (m *MockUserRepository) ListLinkedTo(ctx context.Context, botID string) ([]domain.User, error) {
	args := m.Called(ctx, botID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockUserRepository) ListBotsOf(ctx context.Context, tgID int64) ([]domain.Bot, error) {
	args := m.Called(ctx, tgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Bot), args.Error(1)
}

// MockLinkRepository is a mock for LinkRepository
type MockLinkRepository struct {
	mock.Mock
}

func (m *MockLinkRepository) Link(ctx context.Context, userID int64, botID string) (bool, error) {
	args := m.Called(ctx, userID, botID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLinkRepository) Unlink(ctx context.Context, userID int64, botID string) (bool, error) {
	args := m.Called(ctx, userID, botID)
	return args.Bool(0), args.Error(1)
}

// MockNotifier is a mock for the notification engine
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) OnRegister(ctx context.Context, botID, name, description string) (bool, error) {
	args := m.Called(ctx, botID, name, description)
	return args.Bool(0), args.Error(1)
}

func (m *MockNotifier) OnQRUpdate(ctx context.Context, botID string) error {
	return m.Called(ctx, botID).Error(0)
}

func (m *MockNotifier) OnAuthSuccess(ctx context.Context, botID string) error {
	return m.Called(ctx, botID).Error(0)
}

func (m *MockNotifier) OnAuthRevoked(ctx context.Context, botID string) error {
	return m.Called(ctx, botID).Error(0)
}

func (m *MockNotifier) OnCustomNotify(ctx context.Context, botID, senderName, message string) error {
	return m.Called(ctx, botID, senderName, message).Error(0)
}

func (m *MockNotifier) SendCurrentQR(ctx context.Context, tgID int64, botID string) error {
	return m.Called(ctx, tgID, botID).Error(0)
}

func (m *MockNotifier) Detach(ctx context.Context, tgID int64, botID string) error {
	return m.Called(ctx, tgID, botID).Error(0)
}

func (m *MockNotifier) Reconcile(ctx context.Context, botID string) error {
	return m.Called(ctx, botID).Error(0)
}
