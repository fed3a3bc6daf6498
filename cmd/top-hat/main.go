package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"tophat-webp/internal/config"
	"tophat-webp/internal/converter"
	"tophat-webp/internal/extractor"
	"tophat-webp/internal/logger"
	"tophat-webp/internal/output"
	"tophat-webp/internal/statistics"
	"tophat-webp/internal/transcoder"
	"tophat-webp/internal/web"
)

// clock names batch folders.
var clock = output.SystemClock

var (
	cfgFile      string
	downloadsDir string
	jsonOutput   bool
	noResize     bool
	failFast     bool
	verbose      bool
	quiet        bool
	port         int
)

// rootCmd converts the files given as arguments.
var rootCmd = &cobra.Command{
	Use:   "top-hat [files...]",
	Short: "Convert images to WebP in a fresh downloads folder",
	Long: `TOP HAT converts a batch of images to lossy WebP.

Every run creates a new folder named TOP_HAT_Images_<DD-MM-YYYY_HH-MM-SS>
inside the user's downloads directory. Each image is decoded, rotated
according to its EXIF orientation, shrunk to fit 1920x1080 and written as
<name>.webp at quality 80. Files that cannot be converted are reported and
the rest of the batch continues.

The path of the created folder is printed on stdout, or an empty line when
no folder could be created.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(args, cmd.OutOrStdout())
	},
}

// convertCmd is an explicit alias for the root command.
var convertCmd = &cobra.Command{
	Use:           "convert [files...]",
	Short:         "Convert images to WebP",
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(args, cmd.OutOrStdout())
	},
}

// inspectCmd shows how a single file would be processed.
var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show format, layout, orientation and target size of an image",
	Long: `Decodes a single image and prints what a conversion would do with it:
detected format, dimensions, pixel layout, EXIF orientation and the size it
would be resized to. Nothing is written.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(args[0], cmd.OutOrStdout())
	},
}

// serveCmd starts the local HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local conversion API",
	Long: `Starts an HTTP server on 127.0.0.1 that accepts conversion batches.

Endpoints:
  POST /api/convert     {"files": [...]} runs a batch and returns its report
  GET  /api/status      reports whether a batch is running
  GET  /api/statistics  counters of the current or last batch
  GET  /api/report      report of the last batch
  GET  /ws              batch events over WebSocket`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress non-error output")

	for _, cmd := range []*cobra.Command{rootCmd, convertCmd} {
		cmd.Flags().StringVar(&downloadsDir, "downloads-dir", "", "directory to create the batch folder in (default: user downloads)")
		cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the batch report as JSON instead of the folder path")
		cmd.Flags().BoolVar(&noResize, "no-resize", false, "keep original dimensions")
		cmd.Flags().BoolVar(&failFast, "fail-fast", false, "stop at the first file that cannot be decoded")
	}

	serveCmd.Flags().IntVar(&port, "port", 0, "port to run the API on (default from config, 8080)")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(serveCmd)
}

// runConvert executes one batch and prints its output directory. A batch
// that never got a directory prints an empty line.
func runConvert(args []string, stdout io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(stdout)
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg)
	stats := statistics.NewStatistics()
	conv, err := newConverter(cfg, log, stats)
	if err != nil {
		fmt.Fprintln(stdout)
		return err
	}

	report, err := conv.Convert(args)
	if err != nil && report.OutputDirectory == "" {
		fmt.Fprintln(stdout)
		return fmt.Errorf("conversion failed: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(report); encErr != nil {
			return encErr
		}
	} else {
		fmt.Fprintln(stdout, report.OutputDirectory)
	}

	if !quiet {
		fmt.Fprintln(os.Stderr, "\n"+stats.GetSummary())
		fmt.Fprintln(os.Stderr, "\n"+stats.GetLayoutBreakdown())
		if len(report.Failed()) > 0 {
			fmt.Fprintln(os.Stderr, "\n"+stats.GetErrorSummary())
		}
	}

	return err
}

// runInspect prints decoding details for a single file.
func runInspect(filePath string, stdout io.Writer) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("file does not exist: %s", filePath)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("cannot decode %s: %w", filePath, err)
	}

	bounds := img.Bounds()
	fmt.Fprintf(stdout, "File:        %s\n", filePath)
	fmt.Fprintf(stdout, "Format:      %s\n", format)
	fmt.Fprintf(stdout, "Dimensions:  %dx%d\n", bounds.Dx(), bounds.Dy())

	layout, layoutErr := transcoder.ClassifySource(img, format, data)
	if layoutErr != nil {
		fmt.Fprintf(stdout, "Layout:      unsupported (%v)\n", layoutErr)
	} else {
		fmt.Fprintf(stdout, "Layout:      %s\n", layout)
	}

	orientation := extractor.OrientationUnknown
	exifExtractor := extractor.NewEXIFExtractor(logger.Discard())
	if exifExtractor.SupportsFile(filePath) {
		if o, err := exifExtractor.ExtractOrientation(bytes.NewReader(data)); err == nil {
			orientation = o
		}
	}
	fmt.Fprintf(stdout, "Orientation: %s\n", orientation)

	w, h := bounds.Dx(), bounds.Dy()
	if orientation.SwapsDimensions() {
		w, h = h, w
	}
	tw, th := transcoder.TargetSize(w, h)
	fmt.Fprintf(stdout, "Output:      %dx%d\n", tw, th)
	return nil
}

// runServe starts the web server and handles graceful shutdown.
func runServe(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "CONFIG LOAD ERROR: %v\n", err)
		cfg = config.DefaultConfig()
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = port
	}

	log := setupLogger(cfg)
	factory := func(stats *statistics.Statistics) *converter.Converter {
		conv, err := newConverter(cfg, log, stats)
		if err != nil {
			// Config validation rejects unknown encoders before we get here.
			log.Fatalf("Failed to build converter: %v", err)
		}
		return conv
	}
	server := web.NewServer(log, factory)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.Start(cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	fmt.Fprintf(os.Stderr, "TOP HAT API listening on http://127.0.0.1:%d\n", cfg.Server.Port)
	fmt.Fprintf(os.Stderr, "Press Ctrl+C to stop the server\n\n")

	<-sigChan
	fmt.Fprintln(os.Stderr, "\nShutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	fmt.Fprintln(os.Stderr, "Server stopped gracefully")
	return nil
}

// loadConfig loads configuration and applies CLI overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}

	if downloadsDir != "" {
		cfg.Output.DownloadsDir = downloadsDir
	}
	if noResize {
		cfg.Transcode.Resize = false
	}
	if failFast {
		cfg.Converter.FailFast = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newConverter wires the batch pipeline from cfg.
func newConverter(cfg *config.Config, log *logrus.Logger, stats *statistics.Statistics) (*converter.Converter, error) {
	fs := afero.NewOsFs()

	locate := output.UserDownloads
	if cfg.Output.DownloadsDir != "" {
		locate = output.StaticDownloads(cfg.Output.DownloadsDir)
	}
	resolver := output.NewResolver(fs, clock, locate, log)

	encoder, err := transcoder.NewEncoder(cfg.Transcode.Encoder, log)
	if err != nil {
		return nil, err
	}

	var orient extractor.OrientationExtractor
	if cfg.Transcode.AutoOrient {
		orient = extractor.NewEXIFExtractor(log)
	}

	tc := transcoder.NewDefaultTranscoder(fs, encoder, orient, transcoder.Options{
		Resize:     cfg.Transcode.Resize,
		AutoOrient: cfg.Transcode.AutoOrient,
	}, log)

	return converter.NewConverter(resolver, tc, stats, log, converter.Options{
		FailFast: cfg.Converter.FailFast,
	}), nil
}

// setupLogger configures and returns a logger.
func setupLogger(cfg *config.Config) *logrus.Logger {
	loggerCfg := logger.LoggerConfig{
		Level:      cfg.Logging.Level,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
		Console:    !quiet,
	}

	if verbose {
		loggerCfg.Level = "debug"
	}
	if quiet {
		loggerCfg.Level = "error"
	}

	log, err := logger.NewLogger(loggerCfg)
	if err != nil {
		log = logrus.New()
		log.SetOutput(os.Stderr)
		log.SetLevel(logrus.InfoLevel)
	}

	return log
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
