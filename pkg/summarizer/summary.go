// Package summarizer provides summary generation for preview runs.
package summarizer

import (
	"time"

	"github.com/user/vidsprite/pkg/orchestrator"
)

// Summary contains everything reported about one run.
type Summary struct {
	// Metadata
	GeneratedAt time.Time

	// Input information
	Input InputInfo

	// Run counters
	Run RunInfo

	// Generation settings
	Settings Settings

	// One entry per output
	Outputs []OutputInfo
}

// InputInfo describes the input file and its video stream.
type InputInfo struct {
	Path       string
	Container  string
	Codec      string
	Width      int
	Height     int
	DurationMs int64
	Size       int64
	Bitrate    int64 // bit/s
}

// RunInfo contains the counters of a run.
type RunInfo struct {
	RunID        string
	State        string
	Packets      int
	Decoded      int
	DecodeErrors int
	Truncated    bool
	ElapsedMs    int64
}

// Settings contains the generation configuration.
type Settings struct {
	Format  string
	Quality int
	Scaler  string

	// Spritesheet (interval 0 = every frame)
	SpritesheetIntervalMs int64
	Columns               int
	Rows                  int
	MaxTileSize           int

	// Timelens (width 0 = disabled)
	TimelensIntervalMs int64
	TimelensWidth      int
	TimelensHeight     int
}

// OutputInfo describes one output.
type OutputInfo struct {
	Kind   string
	Frames int
	Files  []string
	Error  string
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithInput sets input information.
func (b *Builder) WithInput(input InputInfo) *Builder {
	b.summary.Input = input
	return b
}

// WithRun sets run counters.
func (b *Builder) WithRun(run RunInfo) *Builder {
	b.summary.Run = run
	return b
}

// WithSettings sets generation settings.
func (b *Builder) WithSettings(settings Settings) *Builder {
	b.summary.Settings = settings
	return b
}

// WithOutput appends an output.
func (b *Builder) WithOutput(output OutputInfo) *Builder {
	b.summary.Outputs = append(b.summary.Outputs, output)
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}

// FromRun builds a Summary from a finished run and the config it ran with.
func FromRun(result orchestrator.RunResult, cfg orchestrator.Config) *Summary {
	b := NewBuilder().
		WithInput(InputInfo{
			Path:       result.Input,
			Container:  result.Source.Container,
			Codec:      result.Stream.Codec,
			Width:      result.Native.Width,
			Height:     result.Native.Height,
			DurationMs: result.Duration.Milliseconds(),
			Size:       result.Source.Size,
			Bitrate:    result.Source.Bitrate,
		}).
		WithRun(RunInfo{
			RunID:        result.RunID,
			State:        result.State.String(),
			Packets:      result.Packets,
			Decoded:      result.Decoded,
			DecodeErrors: result.DecodeErrors,
			Truncated:    result.Truncated,
			ElapsedMs:    result.Elapsed.Milliseconds(),
		})

	s := Settings{
		Format:  cfg.Format.String(),
		Quality: cfg.Quality,
		Scaler:  cfg.Scaler.String(),
	}
	if cfg.Spritesheet {
		s.SpritesheetIntervalMs = cfg.SpritesheetInterval.Milliseconds()
		s.Columns = cfg.Columns
		s.Rows = cfg.Rows
		s.MaxTileSize = cfg.MaxTileSize
	}
	if cfg.Timelens {
		s.TimelensIntervalMs = cfg.TimelensInterval.Milliseconds()
		s.TimelensWidth = cfg.TimelensWidth
		s.TimelensHeight = cfg.TimelensHeight
	}
	b.WithSettings(s)

	for _, o := range result.Outputs {
		info := OutputInfo{Kind: string(o.Kind), Frames: o.Frames, Files: o.Files}
		if o.Err != nil {
			info.Error = o.Err.Error()
		}
		b.WithOutput(info)
	}
	return b.Build()
}
