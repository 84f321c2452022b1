package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQRPayload(t *testing.T) {
	tests := []struct {
		name            string
		raw             string
		expectedKind    QRKind
		expectedContent string
		expectedError   bool
	}{
		{
			name:            "base64 token",
			raw:             "QUFBQQ==",
			expectedKind:    QRToken,
			expectedContent: "QUFBQQ==",
		},
		{
			name:            "unpadded token",
			raw:             "QUFBQQ",
			expectedKind:    QRToken,
			expectedContent: "QUFBQQ",
		},
		{
			name:            "token with surrounding whitespace",
			raw:             "  QkJCQg==\n",
			expectedKind:    QRToken,
			expectedContent: "QkJCQg==",
		},
		{
			name:            "pairing string",
			raw:             "2@ref-value,bm9pc2U=,aWRlbnRpdHk=,c2VjcmV0",
			expectedKind:    QRPairing,
			expectedContent: "2@ref-value,bm9pc2U=,aWRlbnRpdHk=,c2VjcmV0",
		},
		{
			name:          "empty payload",
			raw:           "",
			expectedError: true,
		},
		{
			name:          "token not base64",
			raw:           "not base64!",
			expectedError: true,
		},
		{
			name:          "pairing with empty reference",
			raw:           ",bm9pc2U=",
			expectedError: true,
		},
		{
			name:          "pairing with invalid field",
			raw:           "2@ref,###",
			expectedError: true,
		},
		{
			name:          "pairing with trailing comma",
			raw:           "2@ref,bm9pc2U=,",
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := ParseQRPayload(tt.raw)

			if tt.expectedError {
				assert.ErrorIs(t, err, ErrMalformedQR)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedKind, payload.Kind())
			assert.Equal(t, tt.expectedContent, payload.Content())
		})
	}
}

func TestQRPayload_Ref(t *testing.T) {
	payload, err := ParseQRPayload("2@ref,bm9pc2U=")
	assert.NoError(t, err)
	assert.Equal(t, "2@ref", payload.Ref())
	assert.Equal(t, "pairing", payload.Kind().String())
}
