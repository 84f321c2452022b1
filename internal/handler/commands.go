package handler

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"qrwatcher/internal/domain"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const (
	welcomeText = "👋 Welcome to GFP Watcher-QR!\n\n" +
		"I'll help you monitor WhatsApp QR codes for your bots.\n" +
		"Use /help to see available commands."

	helpText = "📚 Available commands:\n\n" +
		"/list_bots - Show your linked bots\n" +
		"/list_unlinked_bots - Show available bots to link\n" +
		"/help - Show this help message\n" +
		"/invite <user_id> - Add a user to the bot (Admin only)"

	linkedHeaderText = "📱 <b>Your Linked WhatsApp Bots</b>\n\n" +
		"Here are all your connected bots. You can:\n" +
		"• <b>Auth QR</b> - Get QR code for authentication\n" +
		"• <b>Unlink</b> - Remove bot from your account\n\n" +
		"Status indicators:\n" +
		"✅ Authenticated - Bot is ready to use\n" +
		"❌ Not authenticated - Needs QR code scan\n"

	invitationText = "👋 You have been invited to GFP Watcher-QR! Use /start to begin."
	errorText      = "❌ Something went wrong. Please try again later."
)

// handleStart handles /start command
func (h *Handler) handleStart(c tele.Context) error {
	h.logger.Info("User started bot",
		zap.Int64("user_id", c.Sender().ID),
		zap.String("username", c.Sender().Username),
	)
	return c.Send(welcomeText)
}

// handleHelp handles /help command
func (h *Handler) handleHelp(c tele.Context) error {
	return c.Send(helpText)
}

// handleListBots sends a card for every bot linked to the user
func (h *Handler) handleListBots(c tele.Context) error {
	userID := c.Sender().ID
	ctx, cancel := requestContext()
	defer cancel()

	bots, err := h.bots.ListBotsOf(ctx, userID)
	if err != nil {
		h.logger.Error("Failed to list linked bots", zap.Int64("user_id", userID), zap.Error(err))
		return c.Send(errorText)
	}
	if len(bots) == 0 {
		return c.Send("You don't have any linked bots yet.")
	}

	if err := c.Send(linkedHeaderText, tele.ModeHTML); err != nil {
		return err
	}
	for i := range bots {
		text, markup := linkedBotCard(&bots[i])
		if err := c.Send(text, markup, tele.ModeHTML); err != nil {
			return err
		}
	}
	return nil
}

// handleListUnlinked sends a card with a link button for every unlinked bot
func (h *Handler) handleListUnlinked(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	bots, err := h.bots.ListUnlinked(ctx)
	if err != nil {
		h.logger.Error("Failed to list unlinked bots", zap.Error(err))
		return c.Send(errorText)
	}
	if len(bots) == 0 {
		return c.Send("No unlinked bots available.")
	}

	for i := range bots {
		text, markup := unlinkedBotCard(&bots[i])
		if err := c.Send(text, markup, tele.ModeHTML); err != nil {
			return err
		}
	}
	return nil
}

// handleInvite handles /invite <tg_id>, admin only
func (h *Handler) handleInvite(c tele.Context) error {
	adminID := c.Sender().ID

	tgID, ok := parseInviteArg(c.Args())
	if !ok {
		return c.Send("Usage: /invite <telegram_user_id>")
	}

	ctx, cancel := requestContext()
	defer cancel()

	created, err := h.access.Invite(ctx, adminID, tgID)
	if errors.Is(err, domain.ErrNotAdmin) {
		return c.Send("❌ You are not authorized to use this command.")
	}
	if err != nil {
		h.logger.Error("Failed to invite user",
			zap.Int64("admin_id", adminID),
			zap.Int64("user_id", tgID),
			zap.Error(err),
		)
		return c.Send(fmt.Sprintf("❌ An error occurred while inviting user %d.", tgID))
	}
	if !created {
		return c.Send(fmt.Sprintf("ℹ️ User %d is already a member.", tgID))
	}

	if err := c.Send(fmt.Sprintf("✅ User %d has been successfully added to the bot.", tgID)); err != nil {
		return err
	}

	if err := h.gateway.SendText(ctx, tgID, invitationText); err != nil {
		h.logger.Warn("Failed to send invitation", zap.Int64("user_id", tgID), zap.Error(err))
		return c.Send(fmt.Sprintf("⚠️ Could not send invitation message to user %d. They might have blocked the bot or not started it yet.", tgID))
	}
	h.logger.Info("Sent invitation", zap.Int64("user_id", tgID))
	return nil
}

func parseInviteArg(args []string) (int64, bool) {
	if len(args) != 1 {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func statusLine(bot *domain.Bot) string {
	if bot.Authed {
		return "✅ <b>Status:</b> Authenticated"
	}
	return "❌ <b>Status:</b> Not authenticated"
}

// linkedBotCard renders a linked bot with its Auth QR and Unlink buttons
func linkedBotCard(bot *domain.Bot) (string, *tele.ReplyMarkup) {
	text := fmt.Sprintf("🤖 <b>%s</b>\n\n<code>ID: %s</code>\n📝 <i>%s</i>\n\n%s",
		html.EscapeString(bot.Name),
		bot.ID,
		html.EscapeString(bot.Description),
		statusLine(bot),
	)

	markup := &tele.ReplyMarkup{}
	row := tele.Row{}
	if !bot.Authed {
		row = append(row, markup.Data("🔐 Auth QR", btnAuthQR.Unique, bot.ID))
	}
	row = append(row, markup.Data("🔗 Unlink", btnUnlink.Unique, bot.ID))
	markup.Inline(row)
	return text, markup
}

// unlinkedBotCard renders a bot nobody has linked yet with a Link button
func unlinkedBotCard(bot *domain.Bot) (string, *tele.ReplyMarkup) {
	text := fmt.Sprintf("🤖 <b>%s</b>\n\nID: <code>%s</code>\n📝 <i>%s</i>\n%s",
		html.EscapeString(bot.Name),
		bot.ID,
		html.EscapeString(bot.Description),
		statusLine(bot),
	)

	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(markup.Data(fmt.Sprintf("Link %s ✅", bot.ShortID()), btnLink.Unique, bot.ID)))
	return text, markup
}
