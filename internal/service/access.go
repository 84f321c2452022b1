package service

import (
	"context"
	"fmt"
	"strconv"

	"qrwatcher/internal/domain"
	"qrwatcher/internal/repository"

	"go.uber.org/zap"
)

// AccessService decides who may use the Telegram bot
type AccessService struct {
	users  repository.UserRepository
	logger *zap.Logger
}

// NewAccessService creates a new access service
func NewAccessService(users repository.UserRepository, logger *zap.Logger) *AccessService {
	return &AccessService{
		users:  users,
		logger: logger,
	}
}

// IsMember checks if the user has been invited
func (s *AccessService) IsMember(ctx context.Context, tgID int64) (bool, error) {
	user, err := s.users.GetByTgID(ctx, tgID)
	if err != nil {
		return false, err
	}
	return user != nil, nil
}

// IsAdmin checks if the user may invite others
func (s *AccessService) IsAdmin(ctx context.Context, tgID int64) (bool, error) {
	user, err := s.users.GetByTgID(ctx, tgID)
	if err != nil {
		return false, err
	}
	return user != nil && user.State.IsAdmin, nil
}

// Invite adds a user on behalf of an admin.
// It returns false if the user was already a member.
func (s *AccessService) Invite(ctx context.Context, adminID, tgID int64) (bool, error) {
	admin, err := s.IsAdmin(ctx, adminID)
	if err != nil {
		return false, err
	}
	if !admin {
		s.logger.Warn("Invite attempted without admin rights", zap.Int64("user_id", adminID))
		return false, domain.ErrNotAdmin
	}

	state := domain.NewUserState()
	state.CreatedBy = strconv.FormatInt(adminID, 10)

	created, err := s.users.Create(ctx, tgID, state)
	if err != nil {
		return false, fmt.Errorf("create user %d: %w", tgID, err)
	}
	if created {
		s.logger.Info("User invited", zap.Int64("user_id", tgID), zap.Int64("admin_id", adminID))
	}
	return created, nil
}

// SeedAdmin makes sure the configured admin exists and has admin rights
func (s *AccessService) SeedAdmin(ctx context.Context, tgID int64) error {
	state := domain.NewUserState()
	state.IsAdmin = true
	state.CreatedBy = "seed"

	created, err := s.users.Create(ctx, tgID, state)
	if err != nil {
		return fmt.Errorf("create admin %d: %w", tgID, err)
	}
	if created {
		s.logger.Info("Admin user created", zap.Int64("user_id", tgID))
		return nil
	}

	user, err := s.users.GetByTgID(ctx, tgID)
	if err != nil {
		return err
	}
	if user == nil || user.State.IsAdmin {
		return nil
	}

	user.State.IsAdmin = true
	if err := s.users.UpdateState(ctx, tgID, user.State, user.Version); err != nil {
		return fmt.Errorf("promote admin %d: %w", tgID, err)
	}
	s.logger.Info("Existing user promoted to admin", zap.Int64("user_id", tgID))
	return nil
}
