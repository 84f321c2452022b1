package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"qrwatcher/internal/delivery"
	"qrwatcher/internal/domain"
	"qrwatcher/internal/metrics"
	"qrwatcher/internal/qrimage"
	"qrwatcher/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Gateway actions, used as metric labels
const (
	actionAuthNotice = "auth_notice"
	actionEditPhoto  = "edit_photo"
	actionSendPhoto  = "send_photo"
	actionDelete     = "delete"
	actionAuthOK     = "auth_success"
	actionRevoked    = "auth_revoked"
	actionCustom     = "custom"
)

const (
	defaultDeliveryTimeout = 10 * time.Second
	defaultWorkers         = 4
)

// Config tunes delivery behaviour
type Config struct {
	DeliveryTimeout time.Duration
	Workers         int
}

// Engine decides which messages each linked user receives for a bot event
// and keeps the users' notification state in sync with what was delivered.
type Engine struct {
	bots     repository.BotRepository
	users    repository.UserRepository
	state    *StateStore
	gateway  delivery.Gateway
	renderer qrimage.Renderer
	metrics  *metrics.Metrics
	logger   *zap.Logger
	timeout  time.Duration
	workers  int
}

// NewEngine creates a notification engine
func NewEngine(
	bots repository.BotRepository,
	users repository.UserRepository,
	gateway delivery.Gateway,
	renderer qrimage.Renderer,
	m *metrics.Metrics,
	logger *zap.Logger,
	cfg Config,
) *Engine {
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = defaultDeliveryTimeout
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	return &Engine{
		bots:     bots,
		users:    users,
		state:    NewStateStore(users, logger),
		gateway:  gateway,
		renderer: renderer,
		metrics:  m,
		logger:   logger,
		timeout:  cfg.DeliveryTimeout,
		workers:  cfg.Workers,
	}
}

// OnRegister creates the bot unless it already exists.
// It reports whether the bot was created.
func (e *Engine) OnRegister(ctx context.Context, botID, name, description string) (bool, error) {
	existing, err := e.bots.Get(ctx, botID)
	if err != nil {
		return false, fmt.Errorf("load bot %s: %w", botID, err)
	}
	if existing != nil {
		return false, nil
	}

	if _, err := e.bots.Create(ctx, botID, name, description); err != nil {
		if errors.Is(err, domain.ErrDuplicateBot) {
			return false, nil
		}
		return false, fmt.Errorf("create bot %s: %w", botID, err)
	}

	e.metrics.Event("register")
	e.logger.Info("Bot registered", zap.String("bot_id", botID), zap.String("name", name))
	return true, nil
}

// OnQRUpdate pushes the bot's current QR to every linked user.
// While the bot is authenticated it only resets stale auth notice flags.
func (e *Engine) OnQRUpdate(ctx context.Context, botID string) error {
	bot, users, err := e.loadAudience(ctx, botID)
	if err != nil {
		return err
	}
	e.metrics.Event("qr_update")

	if bot.Authed {
		return e.fanOut(ctx, users, func(ctx context.Context, user *domain.User) Mutation {
			if !user.State.AuthNoticeSent(botID) {
				return nil
			}
			e.logger.Info("Reset auth notice flag",
				zap.Int64("user_id", user.TgID),
				zap.String("bot_id", botID),
			)
			return setAuthNotice(botID, false)
		})
	}

	var png []byte
	if bot.HasQR() {
		png, err = e.render(*bot.CurrentQR)
		if err != nil {
			e.logger.Error("Failed to render QR code", zap.String("bot_id", botID), zap.Error(err))
		}
	} else {
		e.logger.Warn("QR update for bot without QR payload", zap.String("bot_id", botID))
	}

	return e.fanOut(ctx, users, func(ctx context.Context, user *domain.User) Mutation {
		var muts []Mutation
		if !user.State.AuthNoticeSent(botID) {
			err := e.deliver(ctx, actionAuthNotice, func(ctx context.Context) error {
				return e.gateway.SendText(ctx, user.TgID, AuthRequiredText(bot.Name))
			})
			if err != nil {
				e.logDeliveryError("Failed to send auth notice", user.TgID, botID, err)
			} else {
				e.logger.Info("Sent auth notice", zap.Int64("user_id", user.TgID), zap.String("bot_id", botID))
				muts = append(muts, setAuthNotice(botID, true))
			}
		}

		if png != nil {
			m, _ := e.pushQR(ctx, user, bot, png)
			muts = append(muts, m)
		}
		return Combine(muts...)
	})
}

// OnAuthSuccess replaces every live QR message with a success notice and
// clears the bot's stored QR payload.
func (e *Engine) OnAuthSuccess(ctx context.Context, botID string) error {
	bot, users, err := e.loadAudience(ctx, botID)
	if err != nil {
		return err
	}
	e.metrics.Event("auth_success")

	err = e.fanOut(ctx, users, func(ctx context.Context, user *domain.User) Mutation {
		muts := []Mutation{e.dropQR(ctx, user, botID)}

		err := e.deliver(ctx, actionAuthOK, func(ctx context.Context) error {
			return e.gateway.SendText(ctx, user.TgID, AuthSuccessText(bot.Name))
		})
		if err != nil {
			e.logDeliveryError("Failed to send auth success notice", user.TgID, botID, err)
		}

		if user.State.AuthNoticeSent(botID) {
			muts = append(muts, setAuthNotice(botID, false))
		}
		return Combine(muts...)
	})
	if err != nil {
		return err
	}

	if _, err := e.bots.ClearQR(ctx, botID); err != nil {
		return fmt.Errorf("clear QR of bot %s: %w", botID, err)
	}
	return nil
}

// OnAuthRevoked removes live QR messages and tells users the bot lost its session
func (e *Engine) OnAuthRevoked(ctx context.Context, botID string) error {
	bot, users, err := e.loadAudience(ctx, botID)
	if err != nil {
		return err
	}
	e.metrics.Event("auth_revoked")

	return e.fanOut(ctx, users, func(ctx context.Context, user *domain.User) Mutation {
		muts := []Mutation{e.dropQR(ctx, user, botID)}

		err := e.deliver(ctx, actionRevoked, func(ctx context.Context) error {
			return e.gateway.SendText(ctx, user.TgID, AuthRevokedText(bot.Name))
		})
		if err != nil {
			e.logDeliveryError("Failed to send deauth notice", user.TgID, botID, err)
		}

		if user.State.DeauthNoticeSent(botID) {
			muts = append(muts, setDeauthNotice(botID, false))
		}
		if user.State.AuthNoticeSent(botID) {
			muts = append(muts, setAuthNotice(botID, false))
		}
		return Combine(muts...)
	})
}

// OnCustomNotify relays a free-form message to every linked user
func (e *Engine) OnCustomNotify(ctx context.Context, botID, senderName, message string) error {
	_, users, err := e.loadAudience(ctx, botID)
	if err != nil {
		return err
	}
	e.metrics.Event("custom")

	text := CustomText(senderName, message)
	return e.fanOut(ctx, users, func(ctx context.Context, user *domain.User) Mutation {
		err := e.deliver(ctx, actionCustom, func(ctx context.Context) error {
			return e.gateway.SendText(ctx, user.TgID, text)
		})
		if err != nil {
			e.logDeliveryError("Failed to send custom notification", user.TgID, botID, err)
		}
		return nil
	})
}

// SendCurrentQR pushes the bot's current QR to a single user.
// Unlike fan-out events, a failed delivery is returned to the caller.
func (e *Engine) SendCurrentQR(ctx context.Context, tgID int64, botID string) error {
	bot, err := e.loadBot(ctx, botID)
	if err != nil {
		return err
	}
	if bot.Authed {
		return domain.ErrBotAuthed
	}
	if !bot.HasQR() {
		return domain.ErrNoQR
	}

	png, err := e.render(*bot.CurrentQR)
	if err != nil {
		return fmt.Errorf("render QR of bot %s: %w", botID, err)
	}

	var deliveryErr error
	err = e.withUser(ctx, tgID, func(ctx context.Context, user *domain.User) Mutation {
		var m Mutation
		m, deliveryErr = e.pushQR(ctx, user, bot, png)
		return m
	})
	if err != nil {
		return err
	}
	return deliveryErr
}

// Detach removes the user's live QR message for the bot and forgets the bot in the user's state
func (e *Engine) Detach(ctx context.Context, tgID int64, botID string) error {
	return e.withUser(ctx, tgID, func(ctx context.Context, user *domain.User) Mutation {
		return Combine(e.dropQR(ctx, user, botID), func(s *domain.UserState) bool {
			return s.ForgetBot(botID)
		})
	})
}

// Reconcile deletes QR messages still tracked for an authenticated bot
func (e *Engine) Reconcile(ctx context.Context, botID string) error {
	bot, users, err := e.loadAudience(ctx, botID)
	if err != nil {
		return err
	}
	if !bot.Authed {
		return nil
	}

	return e.fanOut(ctx, users, func(ctx context.Context, user *domain.User) Mutation {
		muts := []Mutation{e.dropQR(ctx, user, botID)}
		if user.State.AuthNoticeSent(botID) {
			muts = append(muts, setAuthNotice(botID, false))
		}
		return Combine(muts...)
	})
}

// pushQR edits the user's live QR message or sends a new one.
// The returned error is the delivery failure, if any; the mutation records what was delivered.
func (e *Engine) pushQR(ctx context.Context, user *domain.User, bot *domain.Bot, png []byte) (Mutation, error) {
	caption := QRCaption(bot.Name)

	var muts []Mutation
	if ref, ok := user.State.QRMessage(bot.ID); ok {
		err := e.deliver(ctx, actionEditPhoto, func(ctx context.Context) error {
			return e.gateway.EditPhoto(ctx, ref, png, caption)
		})
		if err == nil {
			return nil, nil
		}
		if !delivery.IsMessageGone(err) {
			e.logDeliveryError("Failed to edit QR message", user.TgID, bot.ID, err)
			return nil, err
		}

		e.logger.Info("QR message is gone, sending a new one",
			zap.Int64("user_id", user.TgID),
			zap.String("bot_id", bot.ID),
			zap.Int("message_id", ref.MessageID),
		)
		muts = append(muts, clearQRMessage(bot.ID, ref))
	}

	var sent domain.MessageRef
	err := e.deliver(ctx, actionSendPhoto, func(ctx context.Context) error {
		var err error
		sent, err = e.gateway.SendPhoto(ctx, user.TgID, png, caption)
		return err
	})
	if err != nil {
		e.logDeliveryError("Failed to send QR message", user.TgID, bot.ID, err)
		return Combine(muts...), err
	}

	muts = append(muts, setQRMessage(bot.ID, sent))
	return Combine(muts...), nil
}

// dropQR deletes the user's live QR message for the bot.
// The reference is cleared even when deletion fails.
func (e *Engine) dropQR(ctx context.Context, user *domain.User, botID string) Mutation {
	ref, ok := user.State.QRMessage(botID)
	if !ok {
		return nil
	}

	err := e.deliver(ctx, actionDelete, func(ctx context.Context) error {
		return e.gateway.DeleteMessage(ctx, ref)
	})
	if err != nil && !delivery.IsMessageGone(err) {
		e.logDeliveryError("Failed to delete QR message", user.TgID, botID, err)
	}
	return clearQRMessage(botID, ref)
}

// fanOut runs step for every user with bounded parallelism.
// Delivery failures stay inside step; only persistence errors stop the event.
func (e *Engine) fanOut(ctx context.Context, users []domain.User, step func(ctx context.Context, user *domain.User) Mutation) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, u := range users {
		tgID := u.TgID
		g.Go(func() error {
			return e.withUser(gctx, tgID, step)
		})
	}
	return g.Wait()
}

// withUser runs step on the freshest state of the user while holding the user lock,
// then persists the mutation it returns.
func (e *Engine) withUser(ctx context.Context, tgID int64, step func(ctx context.Context, user *domain.User) Mutation) error {
	unlock := e.state.Lock(tgID)
	defer unlock()

	user, err := e.state.Load(ctx, tgID)
	if errors.Is(err, domain.ErrUserNotFound) {
		e.logger.Warn("User disappeared before delivery", zap.Int64("user_id", tgID))
		return nil
	}
	if err != nil {
		return err
	}

	mutation := step(ctx, user)
	if mutation == nil {
		return nil
	}
	// Persist what was delivered even if the event is being cancelled
	return e.state.Update(context.WithoutCancel(ctx), tgID, mutation)
}

// deliver runs a gateway call under the delivery timeout.
// An edit that changes nothing counts as delivered.
func (e *Engine) deliver(ctx context.Context, action string, call func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	err := call(ctx)
	if delivery.IsNotModified(err) {
		err = nil
	}
	e.metrics.Delivery(action, err)
	return err
}

func (e *Engine) loadBot(ctx context.Context, botID string) (*domain.Bot, error) {
	bot, err := e.bots.Get(ctx, botID)
	if err != nil {
		return nil, fmt.Errorf("load bot %s: %w", botID, err)
	}
	if bot == nil {
		e.logger.Error("Bot not found for notification", zap.String("bot_id", botID))
		return nil, domain.ErrBotNotFound
	}
	return bot, nil
}

func (e *Engine) loadAudience(ctx context.Context, botID string) (*domain.Bot, []domain.User, error) {
	bot, err := e.loadBot(ctx, botID)
	if err != nil {
		return nil, nil, err
	}
	users, err := e.users.ListLinkedTo(ctx, botID)
	if err != nil {
		return nil, nil, fmt.Errorf("list users of bot %s: %w", botID, err)
	}
	return bot, users, nil
}

func (e *Engine) render(raw string) ([]byte, error) {
	payload, err := domain.ParseQRPayload(raw)
	if err != nil {
		return nil, err
	}
	return e.renderer.Render(payload.Content())
}

func (e *Engine) logDeliveryError(msg string, tgID int64, botID string, err error) {
	e.logger.Warn(msg,
		zap.Int64("user_id", tgID),
		zap.String("bot_id", botID),
		zap.Error(err),
	)
}

func setAuthNotice(botID string, sent bool) Mutation {
	return func(s *domain.UserState) bool {
		return s.SetAuthNoticeSent(botID, sent)
	}
}

func setDeauthNotice(botID string, sent bool) Mutation {
	return func(s *domain.UserState) bool {
		return s.SetDeauthNoticeSent(botID, sent)
	}
}

func setQRMessage(botID string, ref domain.MessageRef) Mutation {
	return func(s *domain.UserState) bool {
		s.SetQRMessage(botID, ref)
		return true
	}
}

// clearQRMessage drops the reference only if it still points at the message we acted on
func clearQRMessage(botID string, ref domain.MessageRef) Mutation {
	return func(s *domain.UserState) bool {
		current, ok := s.QRMessage(botID)
		if !ok || current.ChatID != ref.ChatID || current.MessageID != ref.MessageID {
			return false
		}
		return s.ClearQRMessage(botID)
	}
}
