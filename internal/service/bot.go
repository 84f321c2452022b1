package service

import (
	"context"
	"errors"
	"fmt"

	"qrwatcher/internal/domain"
	"qrwatcher/internal/keylock"
	"qrwatcher/internal/repository"

	"go.uber.org/zap"
)

// Notifier is the notification engine as seen by the ingestion layer
type Notifier interface {
	OnRegister(ctx context.Context, botID, name, description string) (bool, error)
	OnQRUpdate(ctx context.Context, botID string) error
	OnAuthSuccess(ctx context.Context, botID string) error
	OnAuthRevoked(ctx context.Context, botID string) error
	OnCustomNotify(ctx context.Context, botID, senderName, message string) error
	SendCurrentQR(ctx context.Context, tgID int64, botID string) error
	Detach(ctx context.Context, tgID int64, botID string) error
	Reconcile(ctx context.Context, botID string) error
}

// BotService handles bot events and user-bot links.
// Events for one bot are applied one at a time, in arrival order.
type BotService struct {
	bots     repository.BotRepository
	users    repository.UserRepository
	links    repository.LinkRepository
	notifier Notifier
	locks    *keylock.Mutex[string]
	logger   *zap.Logger
}

// NewBotService creates a new bot service
func NewBotService(
	bots repository.BotRepository,
	users repository.UserRepository,
	links repository.LinkRepository,
	notifier Notifier,
	logger *zap.Logger,
) *BotService {
	return &BotService{
		bots:     bots,
		users:    users,
		links:    links,
		notifier: notifier,
		locks:    keylock.New[string](),
		logger:   logger,
	}
}

// RegisterBot creates a bot if the id is new
func (s *BotService) RegisterBot(ctx context.Context, id, name, description string) (domain.Result, error) {
	if err := domain.ValidateBotInfo(id, name, description); err != nil {
		return failure(err.Error(), id), nil
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	created, err := s.notifier.OnRegister(ctx, id, name, description)
	if err != nil {
		return domain.Result{}, err
	}
	if !created {
		return failure("Bot already registered", id), nil
	}

	return domain.Result{
		Success: true,
		Message: "Bot registered successfully",
		Data:    map[string]any{"bot_id": id, "name": name},
	}, nil
}

// CheckRegistered reports whether the bot exists
func (s *BotService) CheckRegistered(ctx context.Context, botID string) (domain.Result, error) {
	if err := domain.ValidateBotID(botID); err != nil {
		return failure(err.Error(), botID), nil
	}

	bot, err := s.bots.Get(ctx, botID)
	if err != nil {
		return domain.Result{}, err
	}
	if bot == nil {
		return failure("Bot not registered", botID), nil
	}

	return domain.Result{
		Success: true,
		Message: "Bot is registered",
		Data: map[string]any{
			"bot_id":      bot.ID,
			"name":        bot.Name,
			"description": bot.Description,
			"authed":      bot.Authed,
		},
	}, nil
}

// UpdateQR stores a new QR payload and pushes it to linked users
func (s *BotService) UpdateQR(ctx context.Context, botID, raw string) (domain.Result, error) {
	if err := domain.ValidateBotID(botID); err != nil {
		return failure(err.Error(), botID), nil
	}

	payload, err := domain.ParseQRPayload(raw)
	if err != nil {
		s.logger.Warn("Rejected QR payload", zap.String("bot_id", botID), zap.Error(err))
		return failure("Invalid QR code format", botID), nil
	}

	unlock := s.locks.Lock(botID)
	defer unlock()
	ctx = detach(ctx)

	ok, err := s.bots.SetQR(ctx, botID, payload.Content())
	if err != nil {
		return domain.Result{}, fmt.Errorf("store QR of bot %s: %w", botID, err)
	}
	if !ok {
		return failure("Bot not found", botID), nil
	}

	if err := s.notifier.OnQRUpdate(ctx, botID); err != nil {
		if errors.Is(err, domain.ErrBotNotFound) {
			return failure("Bot not found", botID), nil
		}
		return domain.Result{}, err
	}

	s.logger.Info("QR updated",
		zap.String("bot_id", botID),
		zap.Stringer("kind", payload.Kind()),
	)
	return domain.Result{
		Success: true,
		Message: "QR code updated successfully",
		Data:    map[string]any{"bot_id": botID},
	}, nil
}

// SetAuthState records the bot's authentication state.
// Linked users are notified only when the state actually flips.
func (s *BotService) SetAuthState(ctx context.Context, botID, state string) (domain.Result, error) {
	if err := domain.ValidateBotID(botID); err != nil {
		return failure(err.Error(), botID), nil
	}
	authState := domain.AuthState(state)
	if !authState.Valid() {
		return failure("state must be one of: authed, not_authed", botID), nil
	}

	unlock := s.locks.Lock(botID)
	defer unlock()
	ctx = detach(ctx)

	bot, err := s.bots.Get(ctx, botID)
	if err != nil {
		return domain.Result{}, err
	}
	if bot == nil {
		return failure("Bot not found", botID), nil
	}

	authed := authState == domain.AuthStateAuthed
	result := domain.Result{
		Success: true,
		Message: fmt.Sprintf("Authentication state updated to %s", state),
		Data:    map[string]any{"bot_id": botID, "authed": authed},
	}
	if bot.Authed == authed {
		result.Message = fmt.Sprintf("Authentication state is already %s", state)
		return result, nil
	}

	if _, err := s.bots.SetAuthed(ctx, botID, authed); err != nil {
		return domain.Result{}, fmt.Errorf("store auth state of bot %s: %w", botID, err)
	}

	if authed {
		err = s.notifier.OnAuthSuccess(ctx, botID)
	} else {
		err = s.notifier.OnAuthRevoked(ctx, botID)
	}
	if err != nil {
		return domain.Result{}, err
	}

	s.logger.Info("Auth state updated", zap.String("bot_id", botID), zap.String("state", state))
	return result, nil
}

// CustomNotify relays a free-form message to the bot's linked users
func (s *BotService) CustomNotify(ctx context.Context, botID, senderName, message string) (domain.Result, error) {
	if err := domain.ValidateBotID(botID); err != nil {
		return failure(err.Error(), botID), nil
	}
	if message == "" {
		return failure("message is required", botID), nil
	}

	unlock := s.locks.Lock(botID)
	defer unlock()
	ctx = detach(ctx)

	if err := s.notifier.OnCustomNotify(ctx, botID, senderName, message); err != nil {
		if errors.Is(err, domain.ErrBotNotFound) {
			return failure("Bot not found", botID), nil
		}
		return domain.Result{}, err
	}

	return domain.Result{
		Success: true,
		Message: "Notification sent",
		Data:    map[string]any{"bot_id": botID},
	}, nil
}

// LinkBot links a user to a bot. It returns false if the link exists or the bot is unknown.
func (s *BotService) LinkBot(ctx context.Context, userID int64, botID string) (bool, error) {
	unlock := s.locks.Lock(botID)
	defer unlock()

	linked, err := s.links.Link(ctx, userID, botID)
	if err != nil {
		return false, fmt.Errorf("link bot %s to user %d: %w", botID, userID, err)
	}
	if linked {
		s.logger.Info("Bot linked", zap.Int64("user_id", userID), zap.String("bot_id", botID))
	}
	return linked, nil
}

// UnlinkBot removes a link and cleans up the user's QR message for the bot
func (s *BotService) UnlinkBot(ctx context.Context, userID int64, botID string) (bool, error) {
	unlock := s.locks.Lock(botID)
	defer unlock()

	removed, err := s.links.Unlink(ctx, userID, botID)
	if err != nil {
		return false, fmt.Errorf("unlink bot %s from user %d: %w", botID, userID, err)
	}
	if !removed {
		return false, nil
	}

	if err := s.notifier.Detach(ctx, userID, botID); err != nil {
		return true, err
	}

	s.logger.Info("Bot unlinked", zap.Int64("user_id", userID), zap.String("bot_id", botID))
	return true, nil
}

// SendAuthQR sends the bot's current QR to one user
func (s *BotService) SendAuthQR(ctx context.Context, userID int64, botID string) error {
	unlock := s.locks.Lock(botID)
	defer unlock()

	return s.notifier.SendCurrentQR(ctx, userID, botID)
}

// ListBotsOf returns the bots linked to the user
func (s *BotService) ListBotsOf(ctx context.Context, userID int64) ([]domain.Bot, error) {
	return s.users.ListBotsOf(ctx, userID)
}

// ListUnlinked returns bots nobody has linked yet
func (s *BotService) ListUnlinked(ctx context.Context) ([]domain.Bot, error) {
	return s.bots.ListUnlinked(ctx)
}

// Sweep reconciles every authenticated bot and returns how many were processed.
// A failing bot is logged and skipped.
func (s *BotService) Sweep(ctx context.Context) (int, error) {
	bots, err := s.bots.ListAuthed(ctx)
	if err != nil {
		return 0, fmt.Errorf("list authed bots: %w", err)
	}

	processed := 0
	for _, bot := range bots {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		if err := s.reconcile(ctx, bot.ID); err != nil {
			s.logger.Error("Failed to reconcile bot", zap.String("bot_id", bot.ID), zap.Error(err))
			continue
		}
		processed++
	}
	return processed, nil
}

func (s *BotService) reconcile(ctx context.Context, botID string) error {
	unlock := s.locks.Lock(botID)
	defer unlock()
	return s.notifier.Reconcile(ctx, botID)
}

// detach keeps an accepted event running after the caller goes away, so a
// stored state change is always followed by its notifications. Gateway calls
// stay bounded by the engine's delivery timeout.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func failure(message, botID string) domain.Result {
	return domain.Result{
		Success: false,
		Message: message,
		Data:    map[string]any{"bot_id": botID},
	}
}
