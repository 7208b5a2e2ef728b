package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/blackjack/webcam"
)

func decodeFrame(format webcam.PixelFormat, data []byte, width, height int) (image.Image, error) {
	switch format {
	case pixelFormatMJPEG:
		return jpeg.Decode(bytes.NewReader(data))
	case pixelFormatYUYV:
		return yuyvToRGBA(data, width, height)
	default:
		return nil, fmt.Errorf("unsupported pixel format 0x%08X", uint32(format))
	}
}

// yuyvToRGBA converts a packed YUYV 4:2:2 buffer. Each 4-byte group holds
// two horizontal pixels sharing one chroma pair: [Y0 U Y1 V].
func yuyvToRGBA(data []byte, width, height int) (*image.RGBA, error) {
	expected := width * height * 2
	if len(data) < expected {
		return nil, fmt.Errorf("short YUYV buffer: have %d bytes, need %d", len(data), expected)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x += 2 {
			base := (y*width + x) * 2
			y0 := data[base]
			u := data[base+1]
			y1 := data[base+2]
			v := data[base+3]

			r, g, b := color.YCbCrToRGB(y0, u, v)
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 0xFF})
			if x+1 < width {
				r, g, b = color.YCbCrToRGB(y1, u, v)
				img.SetRGBA(x+1, y, color.RGBA{R: r, G: g, B: b, A: 0xFF})
			}
		}
	}
	return img, nil
}
