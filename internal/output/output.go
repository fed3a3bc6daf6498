// Package output resolves the per-batch output directory under the user's
// downloads folder.
package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const (
	// DirPrefix starts every batch directory name.
	DirPrefix = "TOP_HAT_Images_"
	// TimestampLayout renders as DD-MM-YYYY_HH-MM-SS.
	TimestampLayout = "02-01-2006_15-04-05"
)

// ErrNoDownloadsDir is returned when no downloads directory can be determined.
var ErrNoDownloadsDir = errors.New("downloads directory not found")

// Clock supplies the wall-clock time used for directory names.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reports local time.
var SystemClock Clock = ClockFunc(time.Now)

// DownloadsLocator returns the directory batch directories are created in.
type DownloadsLocator func() (string, error)

// UserDownloads locates the platform downloads directory. It fails when the
// process has no home/profile context.
func UserDownloads() (string, error) {
	if _, err := os.UserHomeDir(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoDownloadsDir, err)
	}
	if xdg.UserDirs.Download == "" {
		return "", ErrNoDownloadsDir
	}
	return xdg.UserDirs.Download, nil
}

// StaticDownloads returns a locator that always yields dir.
func StaticDownloads(dir string) DownloadsLocator {
	return func() (string, error) {
		if dir == "" {
			return "", ErrNoDownloadsDir
		}
		return dir, nil
	}
}

// DirName returns the batch directory name for t.
func DirName(t time.Time) string {
	return DirPrefix + t.Format(TimestampLayout)
}

// Resolver creates one fresh output directory per call to Resolve.
type Resolver struct {
	fs     afero.Fs
	clock  Clock
	locate DownloadsLocator
	logger logrus.FieldLogger
}

// NewResolver returns a Resolver. Nil arguments fall back to the OS
// filesystem, the system clock and UserDownloads.
func NewResolver(fs afero.Fs, clock Clock, locate DownloadsLocator, logger logrus.FieldLogger) *Resolver {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if clock == nil {
		clock = SystemClock
	}
	if locate == nil {
		locate = UserDownloads
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Resolver{fs: fs, clock: clock, locate: locate, logger: logger}
}

// Resolve creates <downloads>/TOP_HAT_Images_<timestamp> and returns its path.
// The directory is created exactly once; an existing directory of the same
// name is an error and no alternate name is tried.
func (r *Resolver) Resolve() (string, error) {
	downloads, err := r.locate()
	if err != nil {
		r.logger.WithError(err).Error("Could not locate downloads directory")
		return "", err
	}

	dir := filepath.Join(downloads, DirName(r.clock.Now()))
	if err := r.fs.Mkdir(dir, 0755); err != nil {
		r.logger.WithError(err).WithField("directory", dir).Error("Error creating directory")
		return "", fmt.Errorf("create output directory: %w", err)
	}

	r.logger.WithField("directory", dir).Debug("Created output directory")
	return dir, nil
}
