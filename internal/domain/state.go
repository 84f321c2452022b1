package domain

import (
	"encoding/json"
	"fmt"
	"maps"
)

// State document keys
const (
	keyNotifications = "notifications"
	keyIsAdmin       = "is_admin"
	keyCreatedBy     = "created_by"
	keyAuthNotices   = "auth_notifications_sent"
	keyDeauthNotices = "deauth_notifications_sent"
	keyQRMessages    = "qr_messages"
)

// UserState is the per-user state document stored as JSON.
// Keys it does not know about are kept in Extra and written back unchanged.
type UserState struct {
	Notifications           bool
	IsAdmin                 bool
	CreatedBy               string
	AuthNotificationsSent   map[string]bool
	DeauthNotificationsSent map[string]bool
	QRMessages              map[string]MessageRef
	Extra                   map[string]json.RawMessage
}

// NewUserState returns the state assigned to freshly created users
func NewUserState() UserState {
	return UserState{Notifications: true}
}

// AuthNoticeSent reports whether the "requires authentication" notice was sent for the bot
func (s UserState) AuthNoticeSent(botID string) bool {
	return s.AuthNotificationsSent[botID]
}

// SetAuthNoticeSent sets the auth notice flag for the bot.
// It returns true if the stored value changed.
func (s *UserState) SetAuthNoticeSent(botID string, sent bool) bool {
	return setFlag(&s.AuthNotificationsSent, botID, sent)
}

// DeauthNoticeSent reports the deauthentication notice flag for the bot
func (s UserState) DeauthNoticeSent(botID string) bool {
	return s.DeauthNotificationsSent[botID]
}

// SetDeauthNoticeSent sets the deauth notice flag for the bot.
// It returns true if the stored value changed.
func (s *UserState) SetDeauthNoticeSent(botID string, sent bool) bool {
	return setFlag(&s.DeauthNotificationsSent, botID, sent)
}

// QRMessage returns the live QR message for the bot, if any
func (s UserState) QRMessage(botID string) (MessageRef, bool) {
	ref, ok := s.QRMessages[botID]
	return ref, ok
}

// SetQRMessage records the live QR message for the bot
func (s *UserState) SetQRMessage(botID string, ref MessageRef) {
	if s.QRMessages == nil {
		s.QRMessages = make(map[string]MessageRef)
	}
	s.QRMessages[botID] = ref
}

// ClearQRMessage drops the QR message reference for the bot.
// It returns true if a reference was present.
func (s *UserState) ClearQRMessage(botID string) bool {
	if _, ok := s.QRMessages[botID]; !ok {
		return false
	}
	delete(s.QRMessages, botID)
	return true
}

// ForgetBot removes every key the state holds for the bot.
// It returns true if anything was removed.
func (s *UserState) ForgetBot(botID string) bool {
	changed := s.ClearQRMessage(botID)
	if _, ok := s.AuthNotificationsSent[botID]; ok {
		delete(s.AuthNotificationsSent, botID)
		changed = true
	}
	if _, ok := s.DeauthNotificationsSent[botID]; ok {
		delete(s.DeauthNotificationsSent, botID)
		changed = true
	}
	return changed
}

// Clone returns a deep copy of the state
func (s UserState) Clone() UserState {
	c := s
	c.AuthNotificationsSent = maps.Clone(s.AuthNotificationsSent)
	c.DeauthNotificationsSent = maps.Clone(s.DeauthNotificationsSent)
	c.QRMessages = maps.Clone(s.QRMessages)
	c.Extra = maps.Clone(s.Extra)
	return c
}

func setFlag(m *map[string]bool, botID string, value bool) bool {
	if (*m)[botID] == value {
		return false
	}
	if *m == nil {
		*m = make(map[string]bool)
	}
	(*m)[botID] = value
	return true
}

// MarshalJSON encodes the known keys together with any preserved extra keys
func (s UserState) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(s.Extra)+6)
	for k, v := range s.Extra {
		doc[k] = v
	}
	doc[keyNotifications] = s.Notifications
	if s.IsAdmin {
		doc[keyIsAdmin] = true
	}
	if s.CreatedBy != "" {
		doc[keyCreatedBy] = s.CreatedBy
	}
	if len(s.AuthNotificationsSent) > 0 {
		doc[keyAuthNotices] = s.AuthNotificationsSent
	}
	if len(s.DeauthNotificationsSent) > 0 {
		doc[keyDeauthNotices] = s.DeauthNotificationsSent
	}
	if len(s.QRMessages) > 0 {
		doc[keyQRMessages] = s.QRMessages
	}
	return json.Marshal(doc)
}

// UnmarshalJSON decodes the state document. A null document yields an empty state.
func (s *UserState) UnmarshalJSON(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode user state: %w", err)
	}

	*s = UserState{}
	fields := []struct {
		key string
		dst any
	}{
		{keyNotifications, &s.Notifications},
		{keyIsAdmin, &s.IsAdmin},
		{keyCreatedBy, &s.CreatedBy},
		{keyAuthNotices, &s.AuthNotificationsSent},
		{keyDeauthNotices, &s.DeauthNotificationsSent},
		{keyQRMessages, &s.QRMessages},
	}
	for _, f := range fields {
		raw, ok := doc[f.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, f.dst); err != nil {
			return fmt.Errorf("decode user state key %q: %w", f.key, err)
		}
		delete(doc, f.key)
	}

	if len(doc) > 0 {
		s.Extra = doc
	}
	return nil
}
