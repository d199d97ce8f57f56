package orchestrator

import (
	"errors"
	"fmt"

	"github.com/user/vidsprite/pkg/mediatime"
	"github.com/user/vidsprite/pkg/ports"
	"github.com/user/vidsprite/pkg/spritesheet"
	"github.com/user/vidsprite/pkg/timelens"
)

// ErrInvalidConfig is returned by Run for a configuration that cannot produce output.
var ErrInvalidConfig = errors.New("orchestrator: invalid config")

// Config contains all configuration for a run.
type Config struct {
	// Input
	Input     string
	OutputDir string
	Name      string // base name of every artifact

	// Spritesheet
	Spritesheet         bool
	SpritesheetInterval mediatime.Time
	Columns             int
	Rows                int
	MaxTileSize         int

	// Timelens
	Timelens         bool
	TimelensInterval mediatime.Time
	TimelensWidth    int
	TimelensHeight   int

	// Encoding
	Format  ports.ImageFormat
	Quality int
	Scaler  ports.Scaler

	// Metadata writes metadata.json describing the input.
	Metadata bool

	// TolerateTruncation makes Run succeed when the source ends with a read error.
	TolerateTruncation bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	ss := spritesheet.DefaultOptions()
	tl := timelens.DefaultOptions()
	return Config{
		Name: ss.Name,

		Spritesheet:         true,
		SpritesheetInterval: mediatime.FromSeconds(2),
		Columns:             ss.Columns,
		Rows:                ss.Rows,
		MaxTileSize:         ss.MaxTileSize,

		Timelens:         false,
		TimelensInterval: tl.Interval,
		TimelensWidth:    tl.Width,
		TimelensHeight:   tl.Height,

		Format:  ports.FormatJPEG,
		Quality: 90,
		Scaler:  ports.ScalerBiLinear,

		Metadata: true,
	}
}

// Validate checks the settings the orchestrator itself depends on.
// Assembler options are validated by their constructors.
func (c Config) Validate() error {
	switch {
	case c.Input == "":
		return fmt.Errorf("%w: no input", ErrInvalidConfig)
	case !c.Spritesheet && !c.Timelens && !c.Metadata:
		return fmt.Errorf("%w: no output selected", ErrInvalidConfig)
	case c.Spritesheet && c.SpritesheetInterval < 0:
		return fmt.Errorf("%w: spritesheet interval %s", ErrInvalidConfig, c.SpritesheetInterval)
	case c.Timelens && c.TimelensInterval <= 0:
		return fmt.Errorf("%w: timelens interval %s", ErrInvalidConfig, c.TimelensInterval)
	}
	return nil
}

func (c Config) spritesheetOptions() spritesheet.Options {
	return spritesheet.Options{
		Dir:         c.OutputDir,
		Name:        c.Name,
		MaxTileSize: c.MaxTileSize,
		Columns:     c.Columns,
		Rows:        c.Rows,
		Format:      c.Format,
		Quality:     c.Quality,
	}
}

func (c Config) timelensOptions() timelens.Options {
	return timelens.Options{
		Dir:      c.OutputDir,
		Name:     c.Name,
		Width:    c.TimelensWidth,
		Height:   c.TimelensHeight,
		Interval: c.TimelensInterval,
		Format:   c.Format,
		Quality:  c.Quality,
	}
}
