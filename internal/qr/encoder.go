// Package qr renders text as a PNG QR code.
package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// DefaultSize is the PNG width and height in pixels when Size is unset.
const DefaultSize = types.DefaultQRSize

// Encoder produces PNG QR codes. A non-positive Size falls back to
// DefaultSize.
type Encoder struct {
	Size  int
	Level qrcode.RecoveryLevel
}

// NewEncoder returns an Encoder producing size x size images with medium
// error correction.
func NewEncoder(size int) *Encoder {
	return &Encoder{Size: size, Level: qrcode.Medium}
}

// Encode returns the PNG bytes of a QR code carrying text. The output is a
// pure function of text, Size and Level for a given library version.
func (e *Encoder) Encode(text string) ([]byte, error) {
	size := e.Size
	if size <= 0 {
		size = DefaultSize
	}
	png, err := qrcode.Encode(text, e.Level, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrEncoding, err)
	}
	return png, nil
}
