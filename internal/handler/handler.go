package handler

import (
	"context"
	"time"

	"qrwatcher/internal/delivery"
	"qrwatcher/internal/domain"
	"qrwatcher/internal/keylock"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// requestTimeout bounds the work done for a single update
const requestTimeout = 30 * time.Second

// BotManager lists and links WhatsApp bots for a Telegram user
type BotManager interface {
	ListBotsOf(ctx context.Context, userID int64) ([]domain.Bot, error)
	ListUnlinked(ctx context.Context) ([]domain.Bot, error)
	LinkBot(ctx context.Context, userID int64, botID string) (bool, error)
	UnlinkBot(ctx context.Context, userID int64, botID string) (bool, error)
	SendAuthQR(ctx context.Context, userID int64, botID string) error
}

// Inviter adds new users on behalf of an admin
type Inviter interface {
	Invite(ctx context.Context, adminID, tgID int64) (bool, error)
}

// Handler manages all bot interactions
type Handler struct {
	bot     *tele.Bot
	bots    BotManager
	access  Inviter
	gateway delivery.Gateway
	logger  *zap.Logger

	// Per-user locks so repeated button presses are handled one at a time
	callbackLocks *keylock.Mutex[int64]
}

// NewHandler creates a new handler instance
func NewHandler(
	bot *tele.Bot,
	bots BotManager,
	access Inviter,
	gateway delivery.Gateway,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		bot:           bot,
		bots:          bots,
		access:        access,
		gateway:       gateway,
		logger:        logger,
		callbackLocks: keylock.New[int64](),
	}
}

// RegisterHandlers registers all bot handlers
func (h *Handler) RegisterHandlers() {
	// Commands
	h.bot.Handle("/start", h.handleStart)
	h.bot.Handle("/help", h.handleHelp)
	h.bot.Handle("/list_bots", h.handleListBots)
	h.bot.Handle("/list_unlinked_bots", h.handleListUnlinked)
	h.bot.Handle("/invite", h.handleInvite)

	// Callback queries (inline buttons)
	h.bot.Handle(&btnLink, h.handleLink)
	h.bot.Handle(&btnUnlink, h.handleUnlink)
	h.bot.Handle(&btnAuthQR, h.handleAuthQR)

	// Generic callback handler for buttons sent in other formats
	h.bot.Handle(tele.OnCallback, h.handleCallback)
}

// Inline keyboard buttons. Each carries the bot id as data.
var (
	btnLink   = tele.Btn{Unique: "link"}
	btnUnlink = tele.Btn{Unique: "unlink"}
	btnAuthQR = tele.Btn{Unique: "auth_qr"}
)

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}
