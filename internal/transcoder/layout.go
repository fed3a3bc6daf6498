package transcoder

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// PixelLayout is the channel arrangement handed to the encoder.
type PixelLayout int

const (
	LayoutUnknown PixelLayout = iota
	LayoutRGB
	LayoutRGBA
)

func (l PixelLayout) String() string {
	switch l {
	case LayoutRGB:
		return "rgb"
	case LayoutRGBA:
		return "rgba"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l PixelLayout) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// PNG IHDR color types that carry no RGB channels.
const (
	pngColorGray      = 0
	pngColorPaletted  = 3
	pngColorGrayAlpha = 4
)

// ClassifySource classifies img, decoded from data in the given format.
// image/png expands gray+alpha and transparent gray sources to NRGBA, so for
// PNG the color type recorded in the header decides first.
func ClassifySource(img image.Image, format string, data []byte) (PixelLayout, error) {
	if format == "png" {
		if ct, ok := pngColorType(data); ok {
			switch ct {
			case pngColorGray, pngColorPaletted, pngColorGrayAlpha:
				return LayoutUnknown, fmt.Errorf("%w: png color type %d", ErrUnsupportedLayout, ct)
			}
		}
	}
	return ClassifyLayout(img)
}

// pngColorType reads the color type byte of the IHDR chunk, which always
// follows the signature.
func pngColorType(data []byte) (byte, bool) {
	if len(data) < 26 || !bytes.HasPrefix(data, pngSignature) || string(data[12:16]) != "IHDR" {
		return 0, false
	}
	return data[25], true
}

// ClassifyLayout maps the decoded color model to an encoding layout.
// Three-channel sources map to RGB, alpha-capable sources to RGBA unless
// every pixel is opaque. Grayscale, paletted and unknown models are rejected.
func ClassifyLayout(img image.Image) (PixelLayout, error) {
	switch img.(type) {
	case *image.YCbCr, *image.CMYK:
		return LayoutRGB, nil
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64, *image.NYCbCrA:
		if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
			return LayoutRGB, nil
		}
		return LayoutRGBA, nil
	default:
		return LayoutUnknown, fmt.Errorf("%w: %T", ErrUnsupportedLayout, img)
	}
}

// Normalize returns an 8-bit NRGBA buffer for img anchored at the origin.
// For the RGB layout the alpha channel is forced opaque.
func Normalize(img image.Image, layout PixelLayout) *image.NRGBA {
	dst, ok := img.(*image.NRGBA)
	if !ok || dst.Bounds().Min != (image.Point{}) {
		dst = imaging.Clone(img)
	}
	if layout == LayoutRGB {
		for i := 3; i < len(dst.Pix); i += 4 {
			dst.Pix[i] = 0xff
		}
	}
	return dst
}

// TargetSize returns the dimensions an image of w x h is stored at when
// resizing is enabled, matching imaging.Fit. Images within MaxWidth x
// MaxHeight keep their size.
func TargetSize(w, h int) (int, int) {
	if w <= 0 || h <= 0 || (w <= MaxWidth && h <= MaxHeight) {
		return w, h
	}
	srcRatio := float64(w) / float64(h)
	maxRatio := float64(MaxWidth) / float64(MaxHeight)
	if srcRatio > maxRatio {
		return MaxWidth, int(float64(MaxWidth) / srcRatio)
	}
	return int(float64(MaxHeight) * srcRatio), MaxHeight
}
