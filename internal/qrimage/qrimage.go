package qrimage

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// Box size in pixels of a single QR module
const boxSize = 10

// Renderer turns QR content into a PNG image
type Renderer interface {
	Render(content string) ([]byte, error)
}

// PNGRenderer renders QR codes with go-qrcode
type PNGRenderer struct {
	level qrcode.RecoveryLevel
}

// NewPNGRenderer creates a renderer using the lowest error correction level
func NewPNGRenderer() *PNGRenderer {
	return &PNGRenderer{level: qrcode.Low}
}

// Render encodes content and returns PNG bytes
func (r *PNGRenderer) Render(content string) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("empty QR content")
	}

	code, err := qrcode.New(content, r.level)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR: %w", err)
	}

	// A negative size scales the image so each module is boxSize pixels
	png, err := code.PNG(-boxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR: %w", err)
	}
	return png, nil
}
