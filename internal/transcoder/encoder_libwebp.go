//go:build cgo

package transcoder

import (
	"fmt"
	"image"

	libwebp "github.com/chai2010/webp"

	"tophat-webp/internal/config"
)

// LibWebPEncoder encodes through the cgo libwebp binding, which exposes
// separate RGB and RGBA entry points.
type LibWebPEncoder struct{}

func newLibWebPEncoder() (Encoder, bool) {
	return LibWebPEncoder{}, true
}

func (LibWebPEncoder) Name() string { return config.EncoderLibWebP }

func (LibWebPEncoder) Encode(img *image.NRGBA, layout PixelLayout, quality int) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch layout {
	case LayoutRGB:
		data, err = libwebp.EncodeRGB(img, float32(quality))
	case LayoutRGBA:
		data, err = libwebp.EncodeRGBA(img, float32(quality))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLayout, layout)
	}
	if err != nil {
		return nil, fmt.Errorf("libwebp encode (%s): %w", layout, err)
	}
	return data, nil
}
