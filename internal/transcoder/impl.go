package transcoder

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"tophat-webp/internal/extractor"
	"tophat-webp/internal/logger"
)

// Options toggles the optional processing steps.
type Options struct {
	Resize     bool
	AutoOrient bool
}

// DefaultOptions enables resizing and orientation correction.
func DefaultOptions() Options {
	return Options{Resize: true, AutoOrient: true}
}

// DefaultTranscoder is the default implementation of the Transcoder interface.
type DefaultTranscoder struct {
	fs      afero.Fs
	encoder Encoder
	orient  extractor.OrientationExtractor
	opts    Options
	logger  logrus.FieldLogger
}

// NewDefaultTranscoder creates a new DefaultTranscoder. orient may be nil,
// which disables orientation correction.
func NewDefaultTranscoder(
	fs afero.Fs,
	encoder Encoder,
	orient extractor.OrientationExtractor,
	opts Options,
	log logrus.FieldLogger,
) *DefaultTranscoder {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if encoder == nil {
		encoder = WASMEncoder{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &DefaultTranscoder{
		fs:      fs,
		encoder: encoder,
		orient:  orient,
		opts:    opts,
		logger:  log,
	}
}

// Stem returns the file name of path without its final extension, or ""
// when path names no file. A name whose only dot is leading is kept whole.
func Stem(path string) string {
	if path == "" {
		return ""
	}
	base := filepath.Base(path)
	if base == "." || base == ".." || base == string(filepath.Separator) {
		return ""
	}
	ext := filepath.Ext(base)
	if ext == base {
		return base
	}
	return strings.TrimSuffix(base, ext)
}

// Transcode converts inputPath to <outputDir>/<stem>.webp.
func (t *DefaultTranscoder) Transcode(inputPath, outputDir string) Result {
	res := Result{
		InputPath: inputPath,
		StartedAt: time.Now(),
	}
	log := logger.WithFileOperation(t.logger, inputPath, "transcode")

	stem := Stem(inputPath)
	if stem == "" {
		return t.finish(log, res, StatusSkipped, ErrNoStem)
	}

	dest := filepath.Join(outputDir, stem+Extension)
	tmp, err := afero.TempFile(t.fs, outputDir, "."+stem+".*.tmp")
	if err != nil {
		return t.finish(log, res, StatusSkipped, fmt.Errorf("create %s: %w", dest, err))
	}
	tmpName := tmp.Name()

	status, err := t.convert(&res, tmp)
	if cerr := tmp.Close(); cerr != nil && err == nil {
		status, err = StatusWriteError, fmt.Errorf("close %s: %w", tmpName, cerr)
	}
	if err == nil {
		err = t.publish(tmpName, dest)
		if err != nil {
			status = StatusWriteError
		}
	}
	if err != nil {
		if rerr := t.fs.Remove(tmpName); rerr != nil {
			log.WithError(rerr).Warn("Could not remove partial output")
		}
		return t.finish(log, res, status, err)
	}
	res.OutputPath = dest
	res.Status = StatusConverted
	res.Message = "Image converted"
	res.FinishedAt = time.Now()
	log.WithFields(logrus.Fields{
		"output": dest,
		"layout": res.Layout.String(),
		"width":  res.Width,
		"height": res.Height,
		"bytes":  res.EncodedSize,
	}).Info("Converted image")
	return res
}

// publish moves a finished temp file to dest, replacing any earlier output
// with the same name.
func (t *DefaultTranscoder) publish(tmpName, dest string) error {
	if err := t.fs.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := t.fs.Rename(tmpName, dest); err != nil {
		return fmt.Errorf("rename to %s: %w", dest, err)
	}
	return nil
}

// convert decodes, processes, encodes and writes one image into out.
func (t *DefaultTranscoder) convert(res *Result, out io.Writer) (Status, error) {
	data, err := afero.ReadFile(t.fs, res.InputPath)
	if err != nil {
		return StatusDecodeError, fmt.Errorf("open error: %w", err)
	}
	res.OriginalSize = int64(len(data))

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return StatusDecodeError, fmt.Errorf("decode error: %w", err)
	}
	b := img.Bounds()
	res.SourceWidth, res.SourceHeight = b.Dx(), b.Dy()

	layout, err := ClassifySource(img, format, data)
	if err != nil {
		return StatusUnsupportedFormat, err
	}
	res.Layout = layout

	if t.opts.AutoOrient && t.orient != nil && t.orient.SupportsFile(res.InputPath) {
		if o, err := t.orient.ExtractOrientation(bytes.NewReader(data)); err == nil {
			img = o.Apply(img)
		}
	}

	if t.opts.Resize {
		img = imaging.Fit(img, MaxWidth, MaxHeight, imaging.Gaussian)
	}

	buf := Normalize(img, layout)
	res.Width, res.Height = buf.Bounds().Dx(), buf.Bounds().Dy()

	encoded, err := t.encoder.Encode(buf, layout, Quality)
	if err != nil {
		return StatusWriteError, err
	}

	n, err := out.Write(encoded)
	if err == nil && n < len(encoded) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return StatusWriteError, fmt.Errorf("write error: %w", err)
	}
	res.EncodedSize = int64(n)

	logger.WithFile(t.logger, res.InputPath).WithField("format", format).Debug("Read image data")
	return StatusConverted, nil
}

func (t *DefaultTranscoder) finish(log *logrus.Entry, res Result, status Status, err error) Result {
	res.Status = status
	res.Error = err
	res.Message = err.Error()
	res.FinishedAt = time.Now()

	if status == StatusSkipped {
		log.WithError(err).Warn("Skipped file")
	} else {
		log.WithError(err).WithField("status", string(status)).Error("Transcode failed")
	}
	return res
}
