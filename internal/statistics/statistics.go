package statistics

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"tophat-webp/internal/transcoder"
)

// Statistics contains counters for one conversion batch. Counters are safe
// to read while the batch runs.
type Statistics struct {
	TotalFiles         int64
	FilesConverted     int64
	FilesSkipped       int64
	DecodeErrors       int64
	UnsupportedFormats int64
	WriteErrors        int64

	// Sizes of converted inputs and their outputs.
	BytesRead    int64
	BytesWritten int64

	DirectoriesCreated int64

	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	FilesPerSecond float64

	Errors []StatError

	LayoutStats map[string]int64

	mutex sync.RWMutex
}

// StatError represents an error that occurred during processing.
type StatError struct {
	FilePath  string    `json:"file"`
	Status    string    `json:"status"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is a point-in-time copy suitable for JSON encoding.
type Snapshot struct {
	TotalFiles         int64   `json:"total_files"`
	Converted          int64   `json:"converted"`
	Skipped            int64   `json:"skipped"`
	DecodeErrors       int64   `json:"decode_errors"`
	UnsupportedFormats int64   `json:"unsupported_formats"`
	WriteErrors        int64   `json:"write_errors"`
	BytesRead          int64   `json:"bytes_read"`
	BytesWritten       int64   `json:"bytes_written"`
	DirectoriesCreated int64   `json:"directories_created"`
	DurationSeconds    float64 `json:"duration_seconds"`
	FilesPerSecond     float64 `json:"files_per_second"`
	SavedPercent       float64 `json:"saved_percent"`
}

// NewStatistics returns a new Statistics instance.
func NewStatistics() *Statistics {
	return &Statistics{
		StartTime:   time.Now(),
		Errors:      make([]StatError, 0),
		LayoutStats: make(map[string]int64),
	}
}

// IncrementDirectoriesCreated increases the count of created directories by 1.
func (s *Statistics) IncrementDirectoriesCreated() {
	atomic.AddInt64(&s.DirectoriesCreated, 1)
}

// Record folds one transcode result into the counters.
func (s *Statistics) Record(res transcoder.Result) {
	atomic.AddInt64(&s.TotalFiles, 1)

	switch res.Status {
	case transcoder.StatusConverted:
		atomic.AddInt64(&s.FilesConverted, 1)
		atomic.AddInt64(&s.BytesRead, res.OriginalSize)
		atomic.AddInt64(&s.BytesWritten, res.EncodedSize)
		s.mutex.Lock()
		s.LayoutStats[res.Layout.String()]++
		s.mutex.Unlock()
		return
	case transcoder.StatusSkipped:
		atomic.AddInt64(&s.FilesSkipped, 1)
	case transcoder.StatusDecodeError:
		atomic.AddInt64(&s.DecodeErrors, 1)
	case transcoder.StatusUnsupportedFormat:
		atomic.AddInt64(&s.UnsupportedFormats, 1)
	case transcoder.StatusWriteError:
		atomic.AddInt64(&s.WriteErrors, 1)
	}

	s.AddError(res.InputPath, string(res.Status), res.Message)
}

// AddError records an error that occurred during processing.
func (s *Statistics) AddError(filePath, status, errorMsg string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.Errors = append(s.Errors, StatError{
		FilePath:  filePath,
		Status:    status,
		Error:     errorMsg,
		Timestamp: time.Now(),
	})
}

// Finalize calculates duration and throughput.
func (s *Statistics) Finalize() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)

	if s.Duration.Seconds() > 0 {
		s.FilesPerSecond = float64(atomic.LoadInt64(&s.TotalFiles)) / s.Duration.Seconds()
	}
}

// Snapshot returns the current counters.
func (s *Statistics) Snapshot() Snapshot {
	s.mutex.RLock()
	duration := s.Duration
	fps := s.FilesPerSecond
	s.mutex.RUnlock()

	return Snapshot{
		TotalFiles:         atomic.LoadInt64(&s.TotalFiles),
		Converted:          atomic.LoadInt64(&s.FilesConverted),
		Skipped:            atomic.LoadInt64(&s.FilesSkipped),
		DecodeErrors:       atomic.LoadInt64(&s.DecodeErrors),
		UnsupportedFormats: atomic.LoadInt64(&s.UnsupportedFormats),
		WriteErrors:        atomic.LoadInt64(&s.WriteErrors),
		BytesRead:          atomic.LoadInt64(&s.BytesRead),
		BytesWritten:       atomic.LoadInt64(&s.BytesWritten),
		DirectoriesCreated: atomic.LoadInt64(&s.DirectoriesCreated),
		DurationSeconds:    duration.Seconds(),
		FilesPerSecond:     fps,
		SavedPercent:       s.savedPercent(),
	}
}

// savedPercent compares output size against input size of converted files.
func (s *Statistics) savedPercent() float64 {
	read := atomic.LoadInt64(&s.BytesRead)
	written := atomic.LoadInt64(&s.BytesWritten)
	if read == 0 || written == 0 {
		return 0
	}
	return float64(read-written) * 100 / float64(read)
}

// GetSummary returns a formatted summary of all statistics.
func (s *Statistics) GetSummary() string {
	snap := s.Snapshot()
	return fmt.Sprintf(`TOP HAT Conversion Summary:

Files:
		Total: %d
		Converted: %d
		Skipped: %d
		Decode Errors: %d
		Unsupported Formats: %d
		Write Errors: %d

Performance:
		Duration: %v
		Files/Second: %.2f
		Bytes Read: %s
		Bytes Written: %s

Directories:
		Created: %d`,
		snap.TotalFiles,
		snap.Converted,
		snap.Skipped,
		snap.DecodeErrors,
		snap.UnsupportedFormats,
		snap.WriteErrors,
		time.Duration(snap.DurationSeconds*float64(time.Second)).Round(time.Millisecond),
		snap.FilesPerSecond,
		formatBytes(snap.BytesRead),
		formatBytes(snap.BytesWritten),
		snap.DirectoriesCreated)
}

// GetLayoutBreakdown returns a formatted breakdown of converted layouts.
func (s *Statistics) GetLayoutBreakdown() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if len(s.LayoutStats) == 0 {
		return "No layout statistics available"
	}

	layouts := make([]string, 0, len(s.LayoutStats))
	for layout := range s.LayoutStats {
		layouts = append(layouts, layout)
	}
	sort.Strings(layouts)

	result := "Layout Breakdown:\n"
	for _, layout := range layouts {
		result += fmt.Sprintf("  %s: %d\n", layout, s.LayoutStats[layout])
	}
	return result
}

// GetErrorSummary returns a summary of errors that occurred during processing.
func (s *Statistics) GetErrorSummary() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if len(s.Errors) == 0 {
		return "No errors occurred during processing"
	}

	result := fmt.Sprintf("Errors (%d total):\n", len(s.Errors))
	for i, err := range s.Errors {
		if i >= 10 {
			result += fmt.Sprintf("  ... and %d more errors\n", len(s.Errors)-10)
			break
		}
		result += fmt.Sprintf("  [%s] %s: %s - %s\n",
			err.Timestamp.Format("15:04:05"),
			err.Status,
			err.FilePath,
			err.Error)
	}
	return result
}

// GetErrors returns a copy of the recorded errors.
func (s *Statistics) GetErrors() []StatError {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return append([]StatError(nil), s.Errors...)
}

// formatBytes returns a human-readable string for a byte count.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
