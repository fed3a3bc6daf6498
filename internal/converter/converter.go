package converter

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"tophat-webp/internal/logger"
	"tophat-webp/internal/statistics"
	"tophat-webp/internal/transcoder"
)

// ErrBatchAborted is returned when fail-fast mode stops a batch.
var ErrBatchAborted = errors.New("batch aborted")

// OutputResolver creates the directory a batch writes into.
type OutputResolver interface {
	Resolve() (string, error)
}

// Options controls batch behavior.
type Options struct {
	// FailFast stops the batch at the first decode or unsupported-format failure.
	FailFast bool
}

// Report is the outcome of one batch. Results are in input order.
type Report struct {
	OutputDirectory string              `json:"output_directory"`
	Results         []transcoder.Result `json:"files"`
	Aborted         bool                `json:"aborted,omitempty"`
	StartedAt       time.Time           `json:"started_at"`
	FinishedAt      time.Time           `json:"finished_at"`
}

// Converted returns the number of files written.
func (r *Report) Converted() int {
	n := 0
	for _, res := range r.Results {
		if res.Success() {
			n++
		}
	}
	return n
}

// Failed returns the results that did not produce a file.
func (r *Report) Failed() []transcoder.Result {
	var failed []transcoder.Result
	for _, res := range r.Results {
		if !res.Success() {
			failed = append(failed, res)
		}
	}
	return failed
}

// Converter runs conversion batches.
type Converter struct {
	resolver   OutputResolver
	transcoder transcoder.Transcoder
	stats      *statistics.Statistics
	logger     logrus.FieldLogger
	opts       Options
}

// NewConverter returns a new Converter. A nil stats gets a fresh Statistics.
func NewConverter(
	resolver OutputResolver,
	tc transcoder.Transcoder,
	stats *statistics.Statistics,
	logger logrus.FieldLogger,
	opts Options,
) *Converter {
	if stats == nil {
		stats = statistics.NewStatistics()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Converter{
		resolver:   resolver,
		transcoder: tc,
		stats:      stats,
		logger:     logger,
		opts:       opts,
	}
}

// Stats returns the statistics the converter records into.
func (c *Converter) Stats() *statistics.Statistics {
	return c.stats
}

// Convert resolves the output directory once and transcodes every path into
// it, one after another. If the directory cannot be created no file is
// processed and the report's OutputDirectory is empty. Individual file
// failures are recorded in the report and do not stop the batch unless
// FailFast is set.
func (c *Converter) Convert(paths []string) (*Report, error) {
	report := &Report{
		Results:   make([]transcoder.Result, 0, len(paths)),
		StartedAt: time.Now(),
	}
	defer func() {
		report.FinishedAt = time.Now()
		c.stats.Finalize()
	}()

	log := logger.WithOperation(c.logger, "convert")
	log.Infof("Starting conversion of %d files", len(paths))

	dir, err := c.resolver.Resolve()
	if err != nil {
		return report, fmt.Errorf("resolve output location: %w", err)
	}
	report.OutputDirectory = dir
	c.stats.IncrementDirectoriesCreated()

	for _, path := range paths {
		res := c.transcoder.Transcode(path, dir)
		report.Results = append(report.Results, res)
		c.stats.Record(res)

		if c.opts.FailFast && res.Status.Fatal() {
			report.Aborted = true
			log.WithField("file", path).Error("Stopping batch after fatal file error")
			return report, fmt.Errorf("%w: %s: %v", ErrBatchAborted, path, res.Error)
		}
	}

	log.WithFields(logrus.Fields{
		"directory": dir,
		"converted": report.Converted(),
		"failed":    len(report.Results) - report.Converted(),
	}).Info("Conversion completed")
	return report, nil
}

// ConvertPaths runs Convert and returns only the output directory, or ""
// when the batch could not start.
func (c *Converter) ConvertPaths(paths []string) string {
	report, err := c.Convert(paths)
	if err != nil && report.OutputDirectory == "" {
		return ""
	}
	return report.OutputDirectory
}
