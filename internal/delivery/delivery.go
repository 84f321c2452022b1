package delivery

import (
	"context"
	"errors"
	"strings"

	"qrwatcher/internal/domain"
)

// Gateway sends messages to Telegram chats
type Gateway interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendPhoto(ctx context.Context, chatID int64, png []byte, caption string) (domain.MessageRef, error)
	EditPhoto(ctx context.Context, ref domain.MessageRef, png []byte, caption string) error
	DeleteMessage(ctx context.Context, ref domain.MessageRef) error
}

// Telegram error fragments. Telegram reports these as plain 400 descriptions.
const (
	errNotModified    = "message is not modified"
	errEditNotFound   = "message to edit not found"
	errDeleteNotFound = "message to delete not found"
	errCantBeDeleted  = "message can't be deleted"
	errCantBeEdited   = "message can't be edited"
)

// ErrGone is returned by fake gateways for messages that no longer exist
var ErrGone = errors.New(errEditNotFound)

// IsNotModified reports whether an edit failed because the content was unchanged.
// Callers treat it as a successful edit.
func IsNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), errNotModified)
}

// IsMessageGone reports whether the target message no longer exists or can no longer be changed
func IsMessageGone(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrGone) {
		return true
	}
	msg := err.Error()
	for _, frag := range []string{errEditNotFound, errDeleteNotFound, errCantBeDeleted, errCantBeEdited} {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	return false
}
