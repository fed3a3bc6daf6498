package extractor

import (
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// OrientationExtractor reads the stored orientation of an encoded image.
type OrientationExtractor interface {
	ExtractOrientation(r io.Reader) (Orientation, error)
	SupportsFile(filePath string) bool
}

// Orientation is the EXIF Orientation tag value (1-8).
type Orientation int

const (
	OrientationUnknown Orientation = iota
	OrientationNormal
	OrientationFlipH
	OrientationRotate180
	OrientationFlipV
	OrientationTranspose
	OrientationRotate90
	OrientationTransverse
	OrientationRotate270
)

// String returns a human-readable description of the orientation.
func (o Orientation) String() string {
	switch o {
	case OrientationNormal:
		return "normal"
	case OrientationFlipH:
		return "flip horizontal"
	case OrientationRotate180:
		return "rotate 180"
	case OrientationFlipV:
		return "flip vertical"
	case OrientationTranspose:
		return "transpose"
	case OrientationRotate90:
		return "rotate 90 CW"
	case OrientationTransverse:
		return "transverse"
	case OrientationRotate270:
		return "rotate 270 CW"
	default:
		return "unknown"
	}
}

// SwapsDimensions reports whether applying o exchanges width and height.
func (o Orientation) SwapsDimensions() bool {
	switch o {
	case OrientationTranspose, OrientationRotate90, OrientationTransverse, OrientationRotate270:
		return true
	default:
		return false
	}
}

// Apply returns img transformed so that it displays upright. Normal and
// unknown orientations return img unchanged.
func (o Orientation) Apply(img image.Image) image.Image {
	switch o {
	case OrientationFlipH:
		return imaging.FlipH(img)
	case OrientationRotate180:
		return imaging.Rotate180(img)
	case OrientationFlipV:
		return imaging.FlipV(img)
	case OrientationTranspose:
		return imaging.Transpose(img)
	case OrientationRotate90:
		return imaging.Rotate270(img)
	case OrientationTransverse:
		return imaging.Transverse(img)
	case OrientationRotate270:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
