package delivery

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"qrwatcher/internal/domain"

	tele "gopkg.in/telebot.v3"
)

// Sender is the part of *tele.Bot the gateway needs
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	EditMedia(msg tele.Editable, media tele.Inputtable, opts ...interface{}) (*tele.Message, error)
	Delete(msg tele.Editable) error
}

// TelegramGateway delivers messages through the Telegram Bot API
type TelegramGateway struct {
	bot Sender
	now func() time.Time
}

// NewTelegramGateway creates a gateway backed by a telebot instance
func NewTelegramGateway(bot Sender) *TelegramGateway {
	return &TelegramGateway{bot: bot, now: time.Now}
}

// SendText sends a plain text message
func (g *TelegramGateway) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := run(ctx, func() (*tele.Message, error) {
		return g.bot.Send(tele.ChatID(chatID), text)
	}, nil)
	return err
}

// SendPhoto sends a PNG with a caption and returns the reference of the new message.
// A photo that lands after ctx is done is deleted, since nobody can track it.
func (g *TelegramGateway) SendPhoto(ctx context.Context, chatID int64, png []byte, caption string) (domain.MessageRef, error) {
	photo := &tele.Photo{File: tele.FromReader(bytes.NewReader(png)), Caption: caption}
	msg, err := run(ctx, func() (*tele.Message, error) {
		return g.bot.Send(tele.ChatID(chatID), photo)
	}, func(late *tele.Message) {
		_ = g.bot.Delete(stored(domain.MessageRef{ChatID: chatID, MessageID: late.ID}))
	})
	if err != nil {
		return domain.MessageRef{}, err
	}
	return domain.MessageRef{ChatID: chatID, MessageID: msg.ID, SentAt: g.now()}, nil
}

// EditPhoto replaces the image and caption of an existing photo message
func (g *TelegramGateway) EditPhoto(ctx context.Context, ref domain.MessageRef, png []byte, caption string) error {
	photo := &tele.Photo{File: tele.FromReader(bytes.NewReader(png)), Caption: caption}
	_, err := run(ctx, func() (*tele.Message, error) {
		return g.bot.EditMedia(stored(ref), photo)
	}, nil)
	return err
}

// DeleteMessage removes a message from the chat
func (g *TelegramGateway) DeleteMessage(ctx context.Context, ref domain.MessageRef) error {
	_, err := run(ctx, func() (*tele.Message, error) {
		return nil, g.bot.Delete(stored(ref))
	}, nil)
	return err
}

func stored(ref domain.MessageRef) tele.StoredMessage {
	return tele.StoredMessage{MessageID: strconv.Itoa(ref.MessageID), ChatID: ref.ChatID}
}

type outcome struct {
	msg *tele.Message
	err error
}

// run executes a blocking telebot call and gives up when ctx is done.
// The call keeps running until the HTTP client timeout fires; if it still
// succeeds, late receives the message.
func run(ctx context.Context, call func() (*tele.Message, error), late func(*tele.Message)) (*tele.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan outcome, 1)
	go func() {
		msg, err := call()
		done <- outcome{msg: msg, err: err}
	}()

	select {
	case out := <-done:
		return out.msg, out.err
	case <-ctx.Done():
		if late != nil {
			go func() {
				if out := <-done; out.err == nil && out.msg != nil {
					late(out.msg)
				}
			}()
		}
		return nil, fmt.Errorf("telegram call abandoned: %w", ctx.Err())
	}
}
