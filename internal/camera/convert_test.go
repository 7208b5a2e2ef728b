package camera

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

func TestYUYVToRGBAGrayFrame(t *testing.T) {
	const width, height = 4, 2
	data := make([]byte, width*height*2)
	for i := 0; i < len(data); i += 2 {
		data[i] = 200   // luma
		data[i+1] = 128 // neutral chroma
	}

	img, err := yuyvToRGBA(data, width, height)
	if err != nil {
		t.Fatalf("yuyvToRGBA failed: %v", err)
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			got := img.RGBAAt(x, y)
			if got.R != 200 || got.G != 200 || got.B != 200 || got.A != 0xFF {
				t.Fatalf("pixel (%d,%d): expected gray 200, got %v", x, y, got)
			}
		}
	}
}

func TestYUYVToRGBAShortBuffer(t *testing.T) {
	if _, err := yuyvToRGBA(make([]byte, 10), 4, 2); err == nil {
		t.Fatal("expected error for short buffer")
	}
}

func TestDecodeFrameMJPEG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			src.SetRGBA(x, y, color.RGBA{R: 10, G: 20, B: 30, A: 0xFF})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, nil); err != nil {
		t.Fatalf("jpeg encode: %v", err)
	}

	img, err := decodeFrame(pixelFormatMJPEG, buf.Bytes(), 8, 8)
	if err != nil {
		t.Fatalf("decodeFrame failed: %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 8 {
		t.Fatalf("unexpected bounds: %v", img.Bounds())
	}
}

func TestDecodeFrameUnknownFormat(t *testing.T) {
	if _, err := decodeFrame(0, nil, 4, 4); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
