// Package main provides the CLI entry point for vidsprite.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/ideamans/go-l10n"

	"github.com/user/vidsprite/pkg/adapters/codecdetect"
	"github.com/user/vidsprite/pkg/adapters/filesink"
	"github.com/user/vidsprite/pkg/adapters/ggrenderer"
	"github.com/user/vidsprite/pkg/adapters/h264decoder"
	"github.com/user/vidsprite/pkg/adapters/logger"
	"github.com/user/vidsprite/pkg/adapters/mp4source"
	"github.com/user/vidsprite/pkg/adapters/nullsink"
	"github.com/user/vidsprite/pkg/adapters/osfilesystem"
	"github.com/user/vidsprite/pkg/adapters/s3filesystem"
	"github.com/user/vidsprite/pkg/config"
	"github.com/user/vidsprite/pkg/metrics"
	"github.com/user/vidsprite/pkg/orchestrator"
	"github.com/user/vidsprite/pkg/ports"
	"github.com/user/vidsprite/pkg/streammeta"
	"github.com/user/vidsprite/pkg/summarizer"
)

// CLI defines the command-line interface with subcommands.
type CLI struct {
	Generate GenerateCmd `cmd:"" help:"Generate a spritesheet, WebVTT track and timelens from a video."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`
}

// GenerateCmd defines the generate subcommand.
type GenerateCmd struct {
	// Required arguments
	Input  string `arg:"" help:"Input MP4 file."`
	Output string `short:"o" help:"Output directory or s3://bucket/prefix."`

	// Config file
	Config string  `type:"existingfile" help:"YAML or TOML config file. Flags override its values."`
	Name   *string `short:"n" help:"Base name of the output files (default: preview)."`

	// Spritesheet options
	NoSpritesheet bool           `help:"Do not generate the spritesheet and WebVTT track."`
	Interval      *time.Duration `short:"i" help:"Minimum time between spritesheet tiles, 0 for every frame (default: 2s)."`
	Columns       *int           `short:"c" help:"Tiles per page row (default: 5)."`
	Rows          *int           `short:"r" help:"Tile rows per page (default: 5)."`
	MaxSize       *int           `help:"Maximum tile width or height in pixels (default: 160)."`

	// Timelens options
	Timelens         bool           `short:"t" help:"Generate a timelens strip."`
	TimelensInterval *time.Duration `help:"Minimum time between timelens columns (default: 1s)."`
	TimelensWidth    *int           `help:"Timelens width in pixels (default: 1000)."`
	TimelensHeight   *int           `help:"Timelens height in pixels (default: 90)."`

	// Encoding options
	Format  *string `short:"f" enum:"jpeg,jpg,png,bmp" help:"Image format (jpeg, png, bmp)."`
	Quality *int    `short:"q" help:"JPEG quality 1-100 (default: 90)."`
	Scaler  *string `help:"Scaler (nearest, approx-bilinear, bilinear, catmull-rom)."`

	// Source options
	AllFrames          bool   `help:"Decode every frame instead of keyframes only."`
	FFmpeg             string `help:"Path to ffmpeg (default: search PATH)."`
	TolerateTruncation bool   `help:"Succeed when the input ends early, keeping what was decoded."`

	// Reporting options
	NoMetadata  bool   `help:"Do not write metadata.json."`
	Summary     string `help:"Write a Markdown summary to this file."`
	MetricsFile string `help:"Write Prometheus metrics in textfile format to this file."`

	// Debug options
	Debug    bool   `short:"d" help:"Enable debug output."`
	DebugDir string `help:"Directory for debug output (default: ./debug)."`

	// Logging options
	LogLevel string `short:"l" help:"Log level (debug, info, warn, error; default: info)."`
	Quiet    bool   `short:"Q" help:"Suppress all log output."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

var version = "dev"

func main() {
	cli := CLI{}

	ctx := kong.Parse(&cli,
		kong.Name("vidsprite"),
		kong.Description("Generate seek-preview spritesheets, WebVTT tracks and timelens strips from videos."),
		kong.UsageOnError(),
	)

	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

// Run executes the generate command.
func (cmd *GenerateCmd) Run() error {
	cfg, err := cmd.buildConfig()
	if err != nil {
		return err
	}
	if cfg.Output == "" {
		return errors.New(l10n.T("output directory is required (-o or output in the config file)"))
	}

	// Create logger
	var log ports.Logger
	if cmd.Quiet {
		log = logger.NewNoop()
	} else {
		log = logger.NewConsole(ports.ParseLogLevel(cfg.LogLevel))
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Warn(l10n.T("Interrupted, shutting down..."))
		cancel()
	}()

	if cfg.FFmpegPath != "" {
		h264decoder.SetFFmpegPath(cfg.FFmpegPath)
	}
	if !h264decoder.IsAvailable() {
		return h264decoder.ErrFFmpegNotFound
	}
	// Other open errors are reported by Run.
	if codec, err := codecdetect.DetectFromFile(cmd.Input); err == nil && codec != codecdetect.CodecH264 {
		return fmt.Errorf("%w: %s", mp4source.ErrUnsupportedCodec, codec)
	}

	// Create adapters
	local := osfilesystem.New()
	outFS, err := filesystemFor(ctx, cfg.Output, local)
	if err != nil {
		return err
	}
	renderer := ggrenderer.New()
	opener := mp4source.New(cfg.KeyframesOnly, log)
	opener.FFmpegPath = cfg.FFmpegPath

	// Create debug sink
	var sink ports.DebugSink
	if cfg.Debug {
		if err := local.MkdirAll(cfg.DebugDir); err != nil {
			return fmt.Errorf("create debug directory: %w", err)
		}
		sink = filesink.New(cfg.DebugDir, local, renderer)
	} else {
		sink = nullsink.New()
	}

	var recorder *metrics.Recorder
	if cfg.MetricsFile != "" {
		recorder = metrics.New()
	}

	// Create orchestrator
	orch := orchestrator.New(
		opener,
		renderer,
		outFS,
		sink,
		streammeta.NewStage(outFS, log),
		recorder,
		log,
	)

	orchConfig, err := cfg.ToOrchestratorConfig(cmd.Input)
	if err != nil {
		return err
	}

	// Run
	result, runErr := orch.Run(ctx, orchConfig)

	if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
		log.Warn(l10n.F("Failed to write metrics to %s: %s", cfg.MetricsFile, err))
	}
	if cfg.Summary != "" && result.State != orchestrator.StateIdle {
		if err := writeSummary(ctx, cfg.Summary, local, result, orchConfig); err != nil {
			log.Warn(l10n.F("Failed to write summary to %s: %s", cfg.Summary, err))
		}
	}

	if runErr != nil {
		return runErr
	}
	if failed := result.FailedOutputs(); len(failed) > 0 {
		for _, o := range failed {
			fmt.Fprintln(os.Stderr, l10n.F("%s: %s", o.Kind, o.Err))
		}
		return errors.New(l10n.F("%d of %d outputs failed", len(failed), len(result.Outputs)))
	}

	log.Info(l10n.F("Output saved to %s", cfg.Output))
	return nil
}

// buildConfig starts from the config file, or defaults, and applies CLI overrides.
func (cmd *GenerateCmd) buildConfig() (config.Config, error) {
	cfg := config.Defaults()
	if cmd.Config != "" {
		var err error
		if cfg, err = config.LoadFromFile(cmd.Config); err != nil {
			return cfg, err
		}
	}

	if cmd.Output != "" {
		cfg.Output = cmd.Output
	}
	if cmd.Name != nil {
		cfg.Name = *cmd.Name
	}

	// Spritesheet
	if cmd.NoSpritesheet {
		cfg.Spritesheet = false
	}
	if cmd.Interval != nil {
		cfg.Interval = config.Duration(*cmd.Interval)
	}
	if cmd.Columns != nil {
		cfg.Columns = *cmd.Columns
	}
	if cmd.Rows != nil {
		cfg.Rows = *cmd.Rows
	}
	if cmd.MaxSize != nil {
		cfg.MaxTileSize = *cmd.MaxSize
	}

	// Timelens
	if cmd.Timelens {
		cfg.Timelens = true
	}
	if cmd.TimelensInterval != nil {
		cfg.TimelensInterval = config.Duration(*cmd.TimelensInterval)
	}
	if cmd.TimelensWidth != nil {
		cfg.TimelensWidth = *cmd.TimelensWidth
	}
	if cmd.TimelensHeight != nil {
		cfg.TimelensHeight = *cmd.TimelensHeight
	}

	// Encoding
	if cmd.Format != nil {
		cfg.Format = *cmd.Format
	}
	if cmd.Quality != nil {
		cfg.Quality = *cmd.Quality
	}
	if cmd.Scaler != nil {
		cfg.Scaler = *cmd.Scaler
	}

	// Source
	if cmd.AllFrames {
		cfg.KeyframesOnly = false
	}
	if cmd.FFmpeg != "" {
		cfg.FFmpegPath = cmd.FFmpeg
	}
	if cmd.TolerateTruncation {
		cfg.TolerateTruncation = true
	}

	// Reporting
	if cmd.NoMetadata {
		cfg.Metadata = false
	}
	if cmd.Summary != "" {
		cfg.Summary = cmd.Summary
	}
	if cmd.MetricsFile != "" {
		cfg.MetricsFile = cmd.MetricsFile
	}

	// Debug
	if cmd.Debug {
		cfg.Debug = true
	}
	if cmd.DebugDir != "" {
		cfg.DebugDir = cmd.DebugDir
	}

	// Logging
	if cmd.LogLevel != "" {
		cfg.LogLevel = cmd.LogLevel
	}

	return cfg, nil
}

// filesystemFor returns the S3 filesystem for s3:// paths and local otherwise.
func filesystemFor(ctx context.Context, path string, local ports.FileSystem) (ports.FileSystem, error) {
	if !s3filesystem.IsS3Path(path) {
		return local, nil
	}
	return s3filesystem.NewFromDefaultConfig(ctx)
}

func writeSummary(ctx context.Context, path string, local ports.FileSystem, result orchestrator.RunResult, cfg orchestrator.Config) error {
	fs, err := filesystemFor(ctx, path, local)
	if err != nil {
		return err
	}
	formatter := summarizer.NewMarkdownFormatter(
		summarizer.WithTranslator(l10n.T),
		summarizer.WithVersion(version),
	)
	return summarizer.NewWriter(formatter, fs).Write(path, summarizer.FromRun(result, cfg))
}

// Run executes the version command.
func (cmd *VersionCmd) Run() error {
	fmt.Println(l10n.F("vidsprite version %s", version))
	return nil
}
