package statistics

import (
	"errors"
	"strings"
	"testing"

	"tophat-webp/internal/transcoder"
)

func TestRecord(t *testing.T) {
	s := NewStatistics()

	s.Record(transcoder.Result{InputPath: "a.jpg", Status: transcoder.StatusConverted, Layout: transcoder.LayoutRGB, OriginalSize: 1000, EncodedSize: 250})
	s.Record(transcoder.Result{InputPath: "b.png", Status: transcoder.StatusConverted, Layout: transcoder.LayoutRGBA, OriginalSize: 1000, EncodedSize: 250})
	s.Record(transcoder.Result{InputPath: "c.gif", Status: transcoder.StatusUnsupportedFormat, Message: "unsupported color type", Error: errors.New("x")})
	s.Record(transcoder.Result{InputPath: "d.txt", Status: transcoder.StatusDecodeError, OriginalSize: 5, Message: "decode error"})
	s.Record(transcoder.Result{InputPath: "/", Status: transcoder.StatusSkipped, Message: "no stem"})
	s.Record(transcoder.Result{InputPath: "e.jpg", Status: transcoder.StatusWriteError, Message: "disk full"})
	s.IncrementDirectoriesCreated()
	s.Finalize()

	snap := s.Snapshot()
	want := Snapshot{
		TotalFiles:         6,
		Converted:          2,
		Skipped:            1,
		DecodeErrors:       1,
		UnsupportedFormats: 1,
		WriteErrors:        1,
		BytesRead:          2000,
		BytesWritten:       500,
		DirectoriesCreated: 1,
		SavedPercent:       75,
	}
	snap.DurationSeconds, snap.FilesPerSecond = 0, 0
	if snap != want {
		t.Errorf("Snapshot() = %+v, want %+v", snap, want)
	}

	if got := len(s.GetErrors()); got != 4 {
		t.Errorf("errors recorded = %d, want 4", got)
	}
	if s.LayoutStats["rgb"] != 1 || s.LayoutStats["rgba"] != 1 {
		t.Errorf("LayoutStats = %v", s.LayoutStats)
	}
	if got, want := s.GetLayoutBreakdown(), "Layout Breakdown:\n  rgb: 1\n  rgba: 1\n"; got != want {
		t.Errorf("GetLayoutBreakdown() = %q, want %q", got, want)
	}
}

func TestSummaries(t *testing.T) {
	s := NewStatistics()
	if !strings.Contains(s.GetErrorSummary(), "No errors") {
		t.Error("empty statistics should report no errors")
	}
	if !strings.Contains(s.GetLayoutBreakdown(), "No layout") {
		t.Error("empty statistics should report no layouts")
	}

	for i := 0; i < 12; i++ {
		s.Record(transcoder.Result{InputPath: "bad.txt", Status: transcoder.StatusDecodeError, Message: "decode error"})
	}
	s.Finalize()

	summary := s.GetSummary()
	for _, want := range []string{"Total: 12", "Decode Errors: 12", "Converted: 0"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}

	errs := s.GetErrorSummary()
	if !strings.Contains(errs, "Errors (12 total)") || !strings.Contains(errs, "and 2 more errors") {
		t.Errorf("unexpected error summary:\n%s", errs)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:       "0 B",
		1023:    "1023 B",
		1024:    "1.0 KB",
		1536:    "1.5 KB",
		5242880: "5.0 MB",
	}
	for in, want := range tests {
		if got := formatBytes(in); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}
