package transcoder

import (
	"errors"
	"time"
)

// Fixed conversion parameters.
const (
	MaxWidth  = 1920
	MaxHeight = 1080
	Quality   = 80
	Extension = ".webp"
)

var (
	// ErrNoStem is reported for inputs whose path has no usable file name.
	ErrNoStem = errors.New("input path has no file stem")
	// ErrUnsupportedLayout is reported for decoded images that are neither RGB nor RGBA.
	ErrUnsupportedLayout = errors.New("unsupported color type")
)

// Status tags the outcome of transcoding one input.
type Status string

const (
	StatusConverted         Status = "converted"
	StatusSkipped           Status = "skipped"
	StatusDecodeError       Status = "decode_error"
	StatusUnsupportedFormat Status = "unsupported_format"
	StatusWriteError        Status = "write_error"
)

// Fatal reports whether the status belongs to the class of failures that
// abort a strict batch.
func (s Status) Fatal() bool {
	return s == StatusDecodeError || s == StatusUnsupportedFormat
}

// Result describes the result of transcoding a single file.
type Result struct {
	InputPath    string      `json:"input"`
	OutputPath   string      `json:"output,omitempty"`
	Status       Status      `json:"status"`
	Layout       PixelLayout `json:"layout,omitempty"`
	SourceWidth  int         `json:"source_width,omitempty"`
	SourceHeight int         `json:"source_height,omitempty"`
	Width        int         `json:"width,omitempty"`
	Height       int         `json:"height,omitempty"`
	OriginalSize int64       `json:"original_size,omitempty"`
	EncodedSize  int64       `json:"encoded_size,omitempty"`
	Message      string      `json:"message,omitempty"`
	Error        error       `json:"-"`
	StartedAt    time.Time   `json:"started_at"`
	FinishedAt   time.Time   `json:"finished_at"`
}

// Success reports whether a WebP file was written.
func (r Result) Success() bool {
	return r.Status == StatusConverted
}

// Transcoder converts one input image into a WebP file inside outputDir.
type Transcoder interface {
	Transcode(inputPath, outputDir string) Result
}
