package notify

import (
	"context"
	"errors"
	"fmt"

	"qrwatcher/internal/domain"
	"qrwatcher/internal/keylock"
	"qrwatcher/internal/repository"

	"go.uber.org/zap"
)

// maxUpdateAttempts bounds compare-and-swap retries of a state write
const maxUpdateAttempts = 5

// Mutation changes a user state in place and reports whether anything changed
type Mutation func(s *domain.UserState) bool

// StateStore serializes per-user state changes.
// In-process writers take the user lock; other processes are fenced by the row version.
type StateStore struct {
	users  repository.UserRepository
	locks  *keylock.Mutex[int64]
	logger *zap.Logger
}

// NewStateStore creates a state store over the user directory
func NewStateStore(users repository.UserRepository, logger *zap.Logger) *StateStore {
	return &StateStore{
		users:  users,
		locks:  keylock.New[int64](),
		logger: logger,
	}
}

// Lock acquires the in-process lock for the user
func (s *StateStore) Lock(tgID int64) func() {
	return s.locks.Lock(tgID)
}

// Load returns the current user record
func (s *StateStore) Load(ctx context.Context, tgID int64) (*domain.User, error) {
	user, err := s.users.GetByTgID(ctx, tgID)
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", tgID, err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// Update applies mutate to the user's state and writes it back.
// On a version conflict the state is reloaded and mutate is applied again.
// Nothing is written when mutate reports no change.
func (s *StateStore) Update(ctx context.Context, tgID int64, mutate Mutation) error {
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		user, err := s.Load(ctx, tgID)
		if err != nil {
			return err
		}

		state := user.State.Clone()
		if !mutate(&state) {
			return nil
		}

		err = s.users.UpdateState(ctx, tgID, state, user.Version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return fmt.Errorf("update user %d: %w", tgID, err)
		}

		s.logger.Debug("User state changed concurrently, retrying",
			zap.Int64("user_id", tgID),
			zap.Int("attempt", attempt),
		)
	}
	return fmt.Errorf("update user %d: %w after %d attempts", tgID, domain.ErrVersionConflict, maxUpdateAttempts)
}

// Combine merges mutations into one that reports a change if any of them did.
// Nil mutations are skipped; Combine returns nil when none are left.
func Combine(mutations ...Mutation) Mutation {
	var list []Mutation
	for _, m := range mutations {
		if m != nil {
			list = append(list, m)
		}
	}
	if len(list) == 0 {
		return nil
	}
	return func(s *domain.UserState) bool {
		changed := false
		for _, m := range list {
			if m(s) {
				changed = true
			}
		}
		return changed
	}
}
