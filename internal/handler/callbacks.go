package handler

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"qrwatcher/internal/domain"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// cleanCallbackData removes all non-printable characters from callback data
func cleanCallbackData(data string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, strings.TrimSpace(data))
}

// parseCallback splits "unique|data" or "unique:data" payloads that did not
// reach a button endpoint
func parseCallback(data string) (unique, payload string) {
	data = cleanCallbackData(data)
	if i := strings.IndexAny(data, "|:"); i >= 0 {
		return data[:i], data[i+1:]
	}
	return data, ""
}

// handleEditError handles errors from c.Edit(). It returns nil if the message
// already had the requested content, otherwise the error so the caller can send a new message.
func (h *Handler) handleEditError(err error, c tele.Context, userID int64) error {
	if err == nil {
		return nil
	}

	// Already edited by an earlier press of the same button
	if strings.Contains(err.Error(), "message is not modified") {
		h.logger.Debug("Message already modified by another callback",
			zap.Int64("user_id", userID),
		)
		return nil
	}

	h.logger.Warn("Failed to edit message, sending new",
		zap.Error(err),
		zap.Int64("user_id", userID),
	)
	return err
}

// replaceCard edits the card the button belongs to, or sends text as a new message
func (h *Handler) replaceCard(c tele.Context, userID int64, text string) error {
	if err := h.handleEditError(c.Edit(text), c, userID); err != nil {
		return c.Send(text)
	}
	return nil
}

func (h *Handler) lockUser(userID int64) func() {
	return h.callbackLocks.Lock(userID)
}

// handleCallback handles callbacks that no button endpoint matched
func (h *Handler) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		h.logger.Warn("handleCallback: callback is nil")
		return nil
	}

	unique, payload := callback.Unique, cleanCallbackData(callback.Data)
	if unique == "" {
		unique, payload = parseCallback(callback.Data)
	}

	h.logger.Info("handleCallback: processing callback",
		zap.String("unique", unique),
		zap.String("data", payload),
		zap.Int64("user_id", c.Sender().ID),
	)

	switch unique {
	case btnLink.Unique:
		return h.link(c, payload)
	case btnUnlink.Unique:
		return h.unlink(c, payload)
	case btnAuthQR.Unique:
		return h.authQR(c, payload)
	}

	h.logger.Warn("Unhandled callback",
		zap.String("data", callback.Data),
		zap.String("unique", callback.Unique),
	)
	return c.Respond()
}

// handleLink handles the Link button
func (h *Handler) handleLink(c tele.Context) error {
	return h.link(c, cleanCallbackData(c.Callback().Data))
}

// handleUnlink handles the Unlink button
func (h *Handler) handleUnlink(c tele.Context) error {
	return h.unlink(c, cleanCallbackData(c.Callback().Data))
}

// handleAuthQR handles the Auth QR button
func (h *Handler) handleAuthQR(c tele.Context) error {
	return h.authQR(c, cleanCallbackData(c.Callback().Data))
}

func (h *Handler) link(c tele.Context, botID string) error {
	userID := c.Sender().ID
	unlock := h.lockUser(userID)
	defer unlock()

	ctx, cancel := requestContext()
	defer cancel()

	linked, err := h.bots.LinkBot(ctx, userID, botID)
	if err != nil {
		h.logger.Error("Failed to link bot", zap.Int64("user_id", userID), zap.String("bot_id", botID), zap.Error(err))
	}
	if err != nil || !linked {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Failed to link bot", ShowAlert: true})
	}

	short := (&domain.Bot{ID: botID}).ShortID()
	if err := h.replaceCard(c, userID, fmt.Sprintf("✅ Bot %s has been linked to your account.", short)); err != nil {
		return err
	}
	return c.Respond(&tele.CallbackResponse{Text: "✅ Bot linked successfully!"})
}

func (h *Handler) unlink(c tele.Context, botID string) error {
	userID := c.Sender().ID
	unlock := h.lockUser(userID)
	defer unlock()

	ctx, cancel := requestContext()
	defer cancel()

	removed, err := h.bots.UnlinkBot(ctx, userID, botID)
	if err != nil {
		h.logger.Error("Failed to unlink bot", zap.Int64("user_id", userID), zap.String("bot_id", botID), zap.Error(err))
	}
	if !removed {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Failed to unlink bot", ShowAlert: true})
	}

	short := (&domain.Bot{ID: botID}).ShortID()
	if err := h.replaceCard(c, userID, fmt.Sprintf("✅ Bot %s has been unlinked from your account.", short)); err != nil {
		return err
	}
	return c.Respond(&tele.CallbackResponse{Text: "✅ Bot unlinked successfully!"})
}

func (h *Handler) authQR(c tele.Context, botID string) error {
	userID := c.Sender().ID
	unlock := h.lockUser(userID)
	defer unlock()

	ctx, cancel := requestContext()
	defer cancel()

	err := h.bots.SendAuthQR(ctx, userID, botID)
	switch {
	case err == nil:
		return c.Respond(&tele.CallbackResponse{Text: "✅ QR code sent!"})
	case errors.Is(err, domain.ErrBotNotFound):
		return c.Respond(&tele.CallbackResponse{Text: "❌ Bot not found", ShowAlert: true})
	case errors.Is(err, domain.ErrNoQR):
		return c.Respond(&tele.CallbackResponse{Text: "❌ No QR code available", ShowAlert: true})
	case errors.Is(err, domain.ErrBotAuthed):
		return c.Respond(&tele.CallbackResponse{Text: "✅ Bot is already authenticated", ShowAlert: true})
	default:
		h.logger.Error("Failed to send QR code", zap.Int64("user_id", userID), zap.String("bot_id", botID), zap.Error(err))
		return c.Respond(&tele.CallbackResponse{Text: "❌ Error sending QR code", ShowAlert: true})
	}
}
