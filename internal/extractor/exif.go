package extractor

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/sirupsen/logrus"
)

// EXIFExtractor reads orientation from EXIF metadata.
type EXIFExtractor struct {
	logger logrus.FieldLogger
}

// NewEXIFExtractor returns a new EXIFExtractor.
func NewEXIFExtractor(logger logrus.FieldLogger) *EXIFExtractor {
	return &EXIFExtractor{logger: logger}
}

// ExtractOrientation decodes EXIF from r and returns its Orientation tag.
func (e *EXIFExtractor) ExtractOrientation(r io.Reader) (Orientation, error) {
	x, err := exif.Decode(r)
	if err != nil {
		return OrientationUnknown, fmt.Errorf("failed to decode EXIF: %w", err)
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return OrientationUnknown, fmt.Errorf("no orientation tag: %w", err)
	}

	v, err := tag.Int(0)
	if err != nil {
		return OrientationUnknown, fmt.Errorf("invalid orientation tag: %w", err)
	}
	if v < int(OrientationNormal) || v > int(OrientationRotate270) {
		return OrientationUnknown, fmt.Errorf("orientation out of range: %d", v)
	}

	o := Orientation(v)
	e.logger.Debugf("Extracted orientation from EXIF: %s", o)
	return o, nil
}

// SupportsFile reports whether the file type can carry EXIF readable by goexif.
func (e *EXIFExtractor) SupportsFile(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	return slices.Contains([]string{".jpg", ".jpeg", ".tiff", ".tif"}, ext)
}
