package handler

import (
	"context"
	"errors"
	"testing"

	"qrwatcher/internal/domain"
	"qrwatcher/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"
)

var testBotID = testutil.BotID("e5")

type mockBotManager struct {
	mock.Mock
}

func (m *mockBotManager) ListBotsOf(ctx context.Context, userID int64) ([]domain.Bot, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Bot), args.Error(1)
}

func (m *mockBotManager) ListUnlinked(ctx context.Context) ([]domain.Bot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Bot), args.Error(1)
}

func (m *mockBotManager) LinkBot(ctx context.Context, userID int64, botID string) (bool, error) {
	args := m.Called(ctx, userID, botID)
	return args.Bool(0), args.Error(1)
}

func (m *mockBotManager) UnlinkBot(ctx context.Context, userID int64, botID string) (bool, error) {
	args := m.Called(ctx, userID, botID)
	return args.Bool(0), args.Error(1)
}

func (m *mockBotManager) SendAuthQR(ctx context.Context, userID int64, botID string) error {
	return m.Called(ctx, userID, botID).Error(0)
}

type mockInviter struct {
	mock.Mock
}

func (m *mockInviter) Invite(ctx context.Context, adminID, tgID int64) (bool, error) {
	args := m.Called(ctx, adminID, tgID)
	return args.Bool(0), args.Error(1)
}

func newTestHandler() (*Handler, *mockBotManager, *mockInviter, *testutil.FakeGateway) {
	bots := new(mockBotManager)
	inviter := new(mockInviter)
	gateway := testutil.NewFakeGateway()
	return NewHandler(nil, bots, inviter, gateway, testutil.NewTestLogger()), bots, inviter, gateway
}

func buttons(m *tele.ReplyMarkup) []tele.InlineButton {
	var all []tele.InlineButton
	for _, row := range m.InlineKeyboard {
		all = append(all, row...)
	}
	return all
}

func TestHandleListBots(t *testing.T) {
	h, bots, _, _ := newTestHandler()
	bots.On("ListBotsOf", mock.Anything, int64(1)).Return([]domain.Bot{
		*testutil.NewTestBot(testBotID, "Pending <one>", false, ""),
		*testutil.NewTestBot(testutil.BotID("f6"), "Ready", true, ""),
	}, nil)
	c := newFakeContext(1)

	require.NoError(t, h.handleListBots(c))

	require.Len(t, c.sent, 3)
	assert.Equal(t, linkedHeaderText, c.sent[0])
	assert.Contains(t, c.sent[1], "Pending &lt;one&gt;")
	assert.Contains(t, c.sent[1], "Not authenticated")

	require.Len(t, c.markups, 2)
	assert.Len(t, buttons(c.markups[0]), 2)
	assert.Len(t, buttons(c.markups[1]), 1)
	bots.AssertExpectations(t)
}

func TestHandleListBots_Empty(t *testing.T) {
	h, bots, _, _ := newTestHandler()
	bots.On("ListBotsOf", mock.Anything, int64(1)).Return(nil, nil)
	c := newFakeContext(1)

	require.NoError(t, h.handleListBots(c))

	assert.Equal(t, []string{"You don't have any linked bots yet."}, c.sent)
}

func TestHandleListUnlinked(t *testing.T) {
	h, bots, _, _ := newTestHandler()
	bots.On("ListUnlinked", mock.Anything).Return([]domain.Bot{
		*testutil.NewTestBot(testBotID, "Free", false, ""),
	}, nil)
	c := newFakeContext(1)

	require.NoError(t, h.handleListUnlinked(c))

	require.Len(t, c.markups, 1)
	btns := buttons(c.markups[0])
	require.Len(t, btns, 1)
	assert.Equal(t, "Link e50000... ✅", btns[0].Text)
	assert.Equal(t, btnLink.Unique, btns[0].Unique)
	assert.Equal(t, testBotID, btns[0].Data)
}

func TestHandleInvite(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		setup        func(m *mockInviter, g *testutil.FakeGateway)
		expectedText string
		invitations  int
	}{
		{
			name:         "missing argument",
			args:         nil,
			setup:        func(m *mockInviter, g *testutil.FakeGateway) {},
			expectedText: "Usage: /invite <telegram_user_id>",
		},
		{
			name:         "not a number",
			args:         []string{"bob"},
			setup:        func(m *mockInviter, g *testutil.FakeGateway) {},
			expectedText: "Usage: /invite <telegram_user_id>",
		},
		{
			name: "not admin",
			args: []string{"42"},
			setup: func(m *mockInviter, g *testutil.FakeGateway) {
				m.On("Invite", mock.Anything, int64(1), int64(42)).Return(false, domain.ErrNotAdmin)
			},
			expectedText: "❌ You are not authorized to use this command.",
		},
		{
			name: "new member",
			args: []string{"42"},
			setup: func(m *mockInviter, g *testutil.FakeGateway) {
				m.On("Invite", mock.Anything, int64(1), int64(42)).Return(true, nil)
			},
			expectedText: "✅ User 42 has been successfully added to the bot.",
			invitations:  1,
		},
		{
			name: "invitation undeliverable",
			args: []string{"42"},
			setup: func(m *mockInviter, g *testutil.FakeGateway) {
				m.On("Invite", mock.Anything, int64(1), int64(42)).Return(true, nil)
				g.FailChat(42, errors.New("chat not found"))
			},
			expectedText: "⚠️ Could not send invitation message to user 42. They might have blocked the bot or not started it yet.",
		},
		{
			name: "already member",
			args: []string{"42"},
			setup: func(m *mockInviter, g *testutil.FakeGateway) {
				m.On("Invite", mock.Anything, int64(1), int64(42)).Return(false, nil)
			},
			expectedText: "ℹ️ User 42 is already a member.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, inviter, gateway := newTestHandler()
			tt.setup(inviter, gateway)
			c := newFakeContext(1)
			c.args = tt.args

			require.NoError(t, h.handleInvite(c))

			require.NotEmpty(t, c.sent)
			assert.Equal(t, tt.expectedText, c.sent[len(c.sent)-1])
			assert.Equal(t, tt.invitations, gateway.Count(42, testutil.CallText))
			inviter.AssertExpectations(t)
		})
	}
}

func TestHandleLink(t *testing.T) {
	h, bots, _, _ := newTestHandler()
	bots.On("LinkBot", mock.Anything, int64(1), testBotID).Return(true, nil)
	c := newFakeContext(1)
	c.callback = &tele.Callback{Unique: btnLink.Unique, Data: testBotID}

	require.NoError(t, h.handleLink(c))

	assert.Equal(t, []string{"✅ Bot e50000... has been linked to your account."}, c.edits)
	require.Len(t, c.responses, 1)
	assert.Equal(t, "✅ Bot linked successfully!", c.responses[0].Text)
}

func TestHandleLink_EditFailsSendsNew(t *testing.T) {
	h, bots, _, _ := newTestHandler()
	bots.On("LinkBot", mock.Anything, int64(1), testBotID).Return(true, nil)
	c := newFakeContext(1)
	c.callback = &tele.Callback{Unique: btnLink.Unique, Data: testBotID}
	c.editErr = errors.New("message to edit not found")

	require.NoError(t, h.handleLink(c))

	assert.Equal(t, []string{"✅ Bot e50000... has been linked to your account."}, c.sent)
}

func TestHandleUnlink_NoLink(t *testing.T) {
	h, bots, _, _ := newTestHandler()
	bots.On("UnlinkBot", mock.Anything, int64(1), testBotID).Return(false, nil)
	c := newFakeContext(1)
	c.callback = &tele.Callback{Unique: btnUnlink.Unique, Data: testBotID}

	require.NoError(t, h.handleUnlink(c))

	require.Len(t, c.responses, 1)
	assert.True(t, c.responses[0].ShowAlert)
	assert.Empty(t, c.edits)
}

func TestHandleAuthQR(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "sent", err: nil, expected: "✅ QR code sent!"},
		{name: "no qr", err: domain.ErrNoQR, expected: "❌ No QR code available"},
		{name: "authed", err: domain.ErrBotAuthed, expected: "✅ Bot is already authenticated"},
		{name: "unknown bot", err: domain.ErrBotNotFound, expected: "❌ Bot not found"},
		{name: "delivery failure", err: errors.New("blocked"), expected: "❌ Error sending QR code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, bots, _, _ := newTestHandler()
			bots.On("SendAuthQR", mock.Anything, int64(1), testBotID).Return(tt.err)
			c := newFakeContext(1)
			c.callback = &tele.Callback{Unique: btnAuthQR.Unique, Data: testBotID}

			require.NoError(t, h.handleAuthQR(c))

			require.Len(t, c.responses, 1)
			assert.Equal(t, tt.expected, c.responses[0].Text)
		})
	}
}

func TestHandleCallback_LegacyFormat(t *testing.T) {
	h, bots, _, _ := newTestHandler()
	bots.On("SendAuthQR", mock.Anything, int64(1), testBotID).Return(nil)
	c := newFakeContext(1)
	c.callback = &tele.Callback{Data: "auth_qr:" + testBotID}

	require.NoError(t, h.handleCallback(c))

	bots.AssertExpectations(t)
}

func TestHandleCallback_Unknown(t *testing.T) {
	h, _, _, _ := newTestHandler()
	c := newFakeContext(1)
	c.callback = &tele.Callback{Data: "something"}

	require.NoError(t, h.handleCallback(c))

	assert.Len(t, c.responses, 1)
}

func TestParseInviteArg(t *testing.T) {
	id, ok := parseInviteArg([]string{"123"})
	assert.True(t, ok)
	assert.Equal(t, int64(123), id)

	_, ok = parseInviteArg([]string{"-5"})
	assert.False(t, ok)

	_, ok = parseInviteArg([]string{"1", "2"})
	assert.False(t, ok)
}
