package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// QRKind tells which shape a QR payload has
type QRKind int

const (
	// QRToken is a single base64 token
	QRToken QRKind = iota + 1
	// QRPairing is a WhatsApp pairing string: ref,noiseKey,identityKey,advSecret
	QRPairing
)

func (k QRKind) String() string {
	switch k {
	case QRToken:
		return "token"
	case QRPairing:
		return "pairing"
	default:
		return "unknown"
	}
}

// QRPayload is a decoded QR payload. Build it with ParseQRPayload.
type QRPayload struct {
	kind  QRKind
	ref   string
	parts []string
}

// ParseQRPayload decodes the raw payload received from a bot.
// A payload with commas is a pairing string whose first field is the
// reference and whose remaining fields must be base64. Anything else must be
// a base64 token.
func ParseQRPayload(raw string) (QRPayload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return QRPayload{}, fmt.Errorf("%w: empty payload", ErrMalformedQR)
	}

	if !strings.Contains(raw, ",") {
		if !isBase64(raw) {
			return QRPayload{}, fmt.Errorf("%w: token is not base64", ErrMalformedQR)
		}
		return QRPayload{kind: QRToken, ref: raw}, nil
	}

	fields := strings.Split(raw, ",")
	if fields[0] == "" {
		return QRPayload{}, fmt.Errorf("%w: empty pairing reference", ErrMalformedQR)
	}
	for i, f := range fields[1:] {
		if f == "" || !isBase64(f) {
			return QRPayload{}, fmt.Errorf("%w: pairing field %d is not base64", ErrMalformedQR, i+2)
		}
	}
	return QRPayload{kind: QRPairing, ref: fields[0], parts: fields[1:]}, nil
}

// Kind returns the payload shape
func (p QRPayload) Kind() QRKind {
	return p.kind
}

// Ref returns the token, or the reference field of a pairing string
func (p QRPayload) Ref() string {
	return p.ref
}

// Content returns the text to encode into the QR image
func (p QRPayload) Content() string {
	if p.kind == QRPairing {
		return p.ref + "," + strings.Join(p.parts, ",")
	}
	return p.ref
}

func isBase64(s string) bool {
	if _, err := base64.StdEncoding.DecodeString(s); err == nil {
		return true
	}
	_, err := base64.RawStdEncoding.DecodeString(s)
	return err == nil
}
