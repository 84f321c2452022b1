package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const (
	checkTimeout = 5 * time.Second

	deniedText = "⛔ You don't have access to this bot. Ask an admin to invite you."
	errorText  = "❌ Something went wrong. Please try again later."
)

// MemberChecker reports whether a Telegram user was invited
type MemberChecker interface {
	IsMember(ctx context.Context, tgID int64) (bool, error)
}

// Access creates middleware that lets only invited users through
func Access(members MemberChecker, logger *zap.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return nil
			}

			ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
			defer cancel()

			ok, err := members.IsMember(ctx, sender.ID)
			if err != nil {
				logger.Error("Failed to check membership in middleware",
					zap.Int64("user_id", sender.ID),
					zap.Error(err),
				)
				return reject(c, errorText)
			}

			if !ok {
				logger.Info("Rejected update from non-member", zap.Int64("user_id", sender.ID))
				return reject(c, deniedText)
			}

			return next(c)
		}
	}
}

// Callbacks get an alert instead of a chat message
func reject(c tele.Context, text string) error {
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: text, ShowAlert: true})
	}
	return c.Send(text)
}
