// Package decode turns camera frames into QR payload strings.
package decode

import (
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// Decoder extracts a QR payload from a frame. Implementations report no
// result rather than an error; a frame without a readable code is the
// common case, not a failure.
type Decoder interface {
	Decode(img image.Image) (string, bool)
}

// QRDecoder wraps the zxing QR reader. Not safe for concurrent use; the
// capture loop owns exactly one.
type QRDecoder struct {
	reader gozxing.Reader
}

// NewQRDecoder builds a decoder for QR codes only.
func NewQRDecoder() *QRDecoder {
	return &QRDecoder{reader: qrcode.NewQRCodeReader()}
}

// Decode returns the payload text of a QR code in the frame. Reader
// failures, including internal panics on malformed frames, report no
// result.
func (d *QRDecoder) Decode(img image.Image) (text string, ok bool) {
	defer func() {
		if recover() != nil {
			text, ok = "", false
		}
	}()

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", false
	}
	result, err := d.reader.Decode(bmp, nil)
	if err != nil || result == nil {
		return "", false
	}
	text = result.GetText()
	return text, text != ""
}
