package transcoder

import (
	"bytes"
	"fmt"
	"image"

	"github.com/gen2brain/webp"
	"github.com/sirupsen/logrus"

	"tophat-webp/internal/config"
)

// Encoder turns a normalized pixel buffer into WebP bytes.
type Encoder interface {
	// Name identifies the backend in logs and reports.
	Name() string

	// Encode compresses img using the given layout at quality (0-100, lossy).
	Encode(img *image.NRGBA, layout PixelLayout, quality int) ([]byte, error)
}

// NewEncoder returns the backend selected by name. Requesting libwebp in a
// build without cgo falls back to the WebAssembly encoder.
func NewEncoder(name string, logger logrus.FieldLogger) (Encoder, error) {
	switch name {
	case "", config.EncoderWASM:
		return WASMEncoder{}, nil
	case config.EncoderLibWebP:
		if enc, ok := newLibWebPEncoder(); ok {
			return enc, nil
		}
		logger.Warnf("libwebp encoder unavailable in this build, using %s", config.EncoderWASM)
		return WASMEncoder{}, nil
	default:
		return nil, fmt.Errorf("unknown encoder: %s", name)
	}
}

// WASMEncoder encodes with libwebp compiled to WebAssembly, so it needs
// neither cgo nor a system library.
type WASMEncoder struct{}

func (WASMEncoder) Name() string { return config.EncoderWASM }

func (WASMEncoder) Encode(img *image.NRGBA, layout PixelLayout, quality int) ([]byte, error) {
	var buf bytes.Buffer
	err := webp.Encode(&buf, img, webp.Options{
		Quality:  quality,
		Lossless: false,
		Method:   4,
		Exact:    false,
	})
	if err != nil {
		return nil, fmt.Errorf("webp encode (%s): %w", layout, err)
	}
	return buf.Bytes(), nil
}
