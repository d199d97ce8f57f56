// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/user/vidsprite/pkg/mediatime"
	"github.com/user/vidsprite/pkg/orchestrator"
	"github.com/user/vidsprite/pkg/ports"
)

// ErrUnsupportedFormat is returned for config files that are neither YAML nor TOML.
var ErrUnsupportedFormat = errors.New("config: unsupported file format")

// Duration is a time.Duration written as "2s" or "500ms" in config files.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config represents the full configuration for vidsprite.
type Config struct {
	// Output
	Output string `yaml:"output" toml:"output"`
	Name   string `yaml:"name" toml:"name"`

	// Spritesheet
	Spritesheet bool     `yaml:"spritesheet" toml:"spritesheet"`
	Interval    Duration `yaml:"interval" toml:"interval"`
	Columns     int      `yaml:"columns" toml:"columns"`
	Rows        int      `yaml:"rows" toml:"rows"`
	MaxTileSize int      `yaml:"max_tile_size" toml:"max_tile_size"`

	// Timelens
	Timelens         bool     `yaml:"timelens" toml:"timelens"`
	TimelensInterval Duration `yaml:"timelens_interval" toml:"timelens_interval"`
	TimelensWidth    int      `yaml:"timelens_width" toml:"timelens_width"`
	TimelensHeight   int      `yaml:"timelens_height" toml:"timelens_height"`

	// Encoding
	Format  string `yaml:"format" toml:"format"`
	Quality int    `yaml:"quality" toml:"quality"`
	Scaler  string `yaml:"scaler" toml:"scaler"`

	// Source
	KeyframesOnly      bool   `yaml:"keyframes_only" toml:"keyframes_only"`
	FFmpegPath         string `yaml:"ffmpeg_path" toml:"ffmpeg_path"`
	TolerateTruncation bool   `yaml:"tolerate_truncation" toml:"tolerate_truncation"`

	// Reporting
	Metadata    bool   `yaml:"metadata" toml:"metadata"`
	Summary     string `yaml:"summary" toml:"summary"`
	MetricsFile string `yaml:"metrics_file" toml:"metrics_file"`
	LogLevel    string `yaml:"log_level" toml:"log_level"`

	// Debug
	Debug    bool   `yaml:"debug" toml:"debug"`
	DebugDir string `yaml:"debug_dir" toml:"debug_dir"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	d := orchestrator.DefaultConfig()
	return Config{
		Name: d.Name,

		// Spritesheet
		Spritesheet: d.Spritesheet,
		Interval:    Duration(d.SpritesheetInterval.Duration()),
		Columns:     d.Columns,
		Rows:        d.Rows,
		MaxTileSize: d.MaxTileSize,

		// Timelens
		Timelens:         d.Timelens,
		TimelensInterval: Duration(d.TimelensInterval.Duration()),
		TimelensWidth:    d.TimelensWidth,
		TimelensHeight:   d.TimelensHeight,

		// Encoding
		Format:  d.Format.String(),
		Quality: d.Quality,
		Scaler:  d.Scaler.String(),

		// Source
		KeyframesOnly: true,

		// Reporting
		Metadata: d.Metadata,
		LogLevel: "info",

		// Debug
		DebugDir: "./debug",
	}
}

// LoadFromFile loads configuration from a YAML (.yaml, .yml) or TOML (.toml)
// file on top of Defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		return cfg, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// ToOrchestratorConfig converts Config to orchestrator.Config for input.
func (c Config) ToOrchestratorConfig(input string) (orchestrator.Config, error) {
	format, err := ports.ParseImageFormat(c.Format)
	if err != nil {
		return orchestrator.Config{}, err
	}
	scaler, err := ports.ParseScaler(c.Scaler)
	if err != nil {
		return orchestrator.Config{}, err
	}

	return orchestrator.Config{
		Input:     input,
		OutputDir: c.Output,
		Name:      c.Name,

		Spritesheet:         c.Spritesheet,
		SpritesheetInterval: mediatime.FromDuration(time.Duration(c.Interval)),
		Columns:             c.Columns,
		Rows:                c.Rows,
		MaxTileSize:         c.MaxTileSize,

		Timelens:         c.Timelens,
		TimelensInterval: mediatime.FromDuration(time.Duration(c.TimelensInterval)),
		TimelensWidth:    c.TimelensWidth,
		TimelensHeight:   c.TimelensHeight,

		Format:  format,
		Quality: c.Quality,
		Scaler:  scaler,

		Metadata:           c.Metadata,
		TolerateTruncation: c.TolerateTruncation,
	}, nil
}
