// Package timelens builds a single filmstrip image from one-pixel-wide frame columns.
package timelens

import (
	"errors"
	"fmt"
	"image"

	"github.com/ideamans/go-l10n"

	"github.com/user/vidsprite/pkg/mediatime"
	"github.com/user/vidsprite/pkg/pipeline"
	"github.com/user/vidsprite/pkg/ports"
	"github.com/user/vidsprite/pkg/rgb"
)

// maxStripBytes bounds the strip buffer.
const maxStripBytes = 1 << 30

var (
	// ErrNotInitialized is returned when columns arrive before Initialize.
	ErrNotInitialized = errors.New("timelens: not initialized")

	// ErrAlreadyInitialized is returned by a second Initialize call.
	ErrAlreadyInitialized = errors.New("timelens: already initialized")

	// ErrInvalidOptions is returned by New for unusable options.
	ErrInvalidOptions = errors.New("timelens: invalid options")
)

// Options configures a timelens strip.
type Options struct {
	Dir      string            // output directory
	Name     string            // base file name
	Width    int               // final image width
	Height   int               // final image height, also the column height
	Interval mediatime.Time    // sampling interval; one column per interval
	Format   ports.ImageFormat // strip image format
	Quality  int               // JPEG quality
}

// DefaultOptions returns Options with default values.
func DefaultOptions() Options {
	return Options{
		Name:     "preview",
		Width:    1000,
		Height:   90,
		Interval: mediatime.FromSeconds(1),
		Format:   ports.FormatJPEG,
		Quality:  90,
	}
}

func (o Options) validate() error {
	switch {
	case o.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidOptions)
	case o.Width <= 0 || o.Height <= 0:
		return fmt.Errorf("%w: target %dx%d", ErrInvalidOptions, o.Width, o.Height)
	case o.Interval <= 0:
		return fmt.Errorf("%w: interval %s", ErrInvalidOptions, o.Interval)
	}
	return nil
}

// Assembler collects one column per accepted frame into a pre-sized strip.
// It is not safe for concurrent use.
type Assembler struct {
	opts     Options
	renderer ports.Renderer
	fs       ports.FileSystem
	logger   ports.Logger

	capacity int
	strip    *rgb.Image
	count    int
	dropped  int

	path  string
	saved bool
}

// New creates an Assembler for a stream of the given duration.
// The strip holds ceil(duration/interval) columns, at least one.
func New(opts Options, duration mediatime.Time, renderer ports.Renderer, fs ports.FileSystem, logger ports.Logger) (*Assembler, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	columns := max(duration.CeilDiv(opts.Interval), 1)
	if opts.Height > maxStripBytes/rgb.BytesPerPixel || columns > int64(maxStripBytes/rgb.BytesPerPixel/opts.Height) {
		return nil, fmt.Errorf("%w: strip %dx%d", pipeline.ErrAllocation, columns, opts.Height)
	}
	capacity := int(columns)
	return &Assembler{
		opts:     opts,
		renderer: renderer,
		fs:       fs,
		logger:   logger.WithComponent("timelens"),
		capacity: capacity,
	}, nil
}

// Initialize allocates the strip buffer.
func (a *Assembler) Initialize() error {
	if a.strip != nil {
		return ErrAlreadyInitialized
	}
	a.strip = rgb.New(image.Rect(0, 0, a.capacity, a.opts.Height))
	a.logger.Debug(l10n.F("Strip buffer %dx%d", a.capacity, a.opts.Height))
	return nil
}

// Initialized reports whether Initialize succeeded.
func (a *Assembler) Initialized() bool {
	return a.strip != nil
}

// ColumnSize returns the size every added column must have.
func (a *Assembler) ColumnSize() (int, int) {
	return 1, a.opts.Height
}

// Capacity returns the number of columns the strip can hold.
func (a *Assembler) Capacity() int {
	return a.capacity
}

// Frames returns the number of columns written.
func (a *Assembler) Frames() int {
	return a.count
}

// Dropped returns the number of columns discarded because the strip was full.
func (a *Assembler) Dropped() int {
	return a.dropped
}

// AddFrame writes a 1xHeight column at the next x position.
func (a *Assembler) AddFrame(ts mediatime.Time, column *rgb.Image) error {
	if a.strip == nil {
		return ErrNotInitialized
	}
	if b := column.Bounds(); b.Dx() != 1 || b.Dy() != a.opts.Height {
		return fmt.Errorf("%w: got %dx%d, want 1x%d", pipeline.ErrDimensionMismatch, b.Dx(), b.Dy(), a.opts.Height)
	}
	if a.count >= a.capacity {
		a.dropped++
		a.logger.Debug(l10n.F("Dropped column at %s, strip full", ts))
		return nil
	}
	a.strip.Overlay(column, a.count, 0)
	a.count++
	return nil
}

// Save crops the strip to the written columns, resizes it to the target size
// with point sampling and writes <name>_timelens.<ext>. Later calls return the
// same path without writing.
func (a *Assembler) Save() ([]string, error) {
	if a.saved {
		return []string{a.path}, nil
	}
	if a.count == 0 {
		return nil, fmt.Errorf("timelens: %w", pipeline.ErrEmptyStream)
	}
	if a.dropped > 0 {
		a.logger.Warn(l10n.F("Timelens dropped %d columns beyond strip width %d", a.dropped, a.capacity))
	}

	cropped := a.strip.Crop(image.Rect(0, 0, a.count, a.opts.Height))
	scaled := a.renderer.ScaleImage(cropped, a.opts.Width, a.opts.Height, ports.ScalerNearest)

	data, err := a.renderer.EncodeImage(scaled, a.opts.Format, a.opts.Quality)
	if err != nil {
		return nil, fmt.Errorf("%w: timelens: %v", pipeline.ErrEncode, err)
	}

	path := a.fs.Join(a.opts.Dir, fmt.Sprintf("%s_timelens.%s", a.opts.Name, a.opts.Format.Ext()))
	if err := a.fs.WriteFile(path, data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", pipeline.ErrIO, path, err)
	}
	a.path = path
	a.saved = true
	a.logger.Debug(l10n.F("Wrote %s from %d columns", path, a.count))
	return []string{path}, nil
}
