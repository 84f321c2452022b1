package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateBotInfo(t *testing.T) {
	validID := strings.Repeat("a", BotIDLength)

	tests := []struct {
		name          string
		id            string
		botName       string
		description   string
		expectedError bool
	}{
		{
			name:        "valid",
			id:          validID,
			botName:     "Support",
			description: "Support line",
		},
		{
			name:          "short id",
			id:            "abc",
			botName:       "Support",
			expectedError: true,
		},
		{
			name:          "empty name",
			id:            validID,
			botName:       "",
			expectedError: true,
		},
		{
			name:          "long name",
			id:            validID,
			botName:       strings.Repeat("n", 51),
			expectedError: true,
		},
		{
			name:          "long description",
			id:            validID,
			botName:       "Support",
			description:   strings.Repeat("d", 201),
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBotInfo(tt.id, tt.botName, tt.description)
			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBot_HasQRAndShortID(t *testing.T) {
	qr := "QUFBQQ=="
	empty := ""

	assert.True(t, (&Bot{CurrentQR: &qr}).HasQR())
	assert.False(t, (&Bot{CurrentQR: &empty}).HasQR())
	assert.False(t, (&Bot{}).HasQR())

	assert.Equal(t, "abcdef...", (&Bot{ID: "abcdefghij"}).ShortID())
	assert.Equal(t, "abc", (&Bot{ID: "abc"}).ShortID())
}

func TestAuthState_Valid(t *testing.T) {
	assert.True(t, AuthStateAuthed.Valid())
	assert.True(t, AuthStateNotAuthed.Valid())
	assert.False(t, AuthState("maybe").Valid())
}
