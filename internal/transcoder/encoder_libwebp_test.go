//go:build cgo

package transcoder

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	libwebp "github.com/chai2010/webp"
)

func TestLibWebPEncoderLayouts(t *testing.T) {
	tests := []struct {
		name   string
		layout PixelLayout
		alpha  uint8
	}{
		{"rgb", LayoutRGB, 0xff},
		{"rgba", LayoutRGBA, 0x80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := image.NewNRGBA(image.Rect(0, 0, 24, 16))
			for y := 0; y < 16; y++ {
				for x := 0; x < 24; x++ {
					img.Set(x, y, color.NRGBA{R: uint8(x * 10), G: uint8(y * 15), B: 60, A: tt.alpha})
				}
			}

			data, err := LibWebPEncoder{}.Encode(img, tt.layout, Quality)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if !bytes.HasPrefix(data, []byte("RIFF")) || string(data[8:12]) != "WEBP" {
				t.Fatalf("output is not a WebP container")
			}

			cfg, err := libwebp.DecodeConfig(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("DecodeConfig() error = %v", err)
			}
			if cfg.Width != 24 || cfg.Height != 16 {
				t.Errorf("decoded %dx%d, want 24x16", cfg.Width, cfg.Height)
			}
		})
	}

	if _, err := (LibWebPEncoder{}).Encode(image.NewNRGBA(image.Rect(0, 0, 2, 2)), LayoutUnknown, Quality); err == nil {
		t.Error("Encode() with unknown layout should fail")
	}
}
