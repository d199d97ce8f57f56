// Package spritesheet tiles sampled frames into paged thumbnail grids and
// produces a WebVTT track addressing each tile by page and rectangle.
package spritesheet

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/ideamans/go-l10n"

	"github.com/user/vidsprite/pkg/mediatime"
	"github.com/user/vidsprite/pkg/pipeline"
	"github.com/user/vidsprite/pkg/ports"
	"github.com/user/vidsprite/pkg/rgb"
	"github.com/user/vidsprite/pkg/webvtt"
)

// maxPageBytes bounds a single page buffer.
const maxPageBytes = 1 << 30

// maxPagePixels is the pixel count of the largest page. Every tile holds at
// least one pixel, so it also bounds the grid and the tile side.
const maxPagePixels = maxPageBytes / rgb.BytesPerPixel

var (
	// ErrNotInitialized is returned when frames arrive before Initialize.
	ErrNotInitialized = errors.New("spritesheet: not initialized")

	// ErrAlreadyInitialized is returned by a second Initialize call.
	ErrAlreadyInitialized = errors.New("spritesheet: already initialized")

	// ErrInvalidDimensions is returned for a non-positive native frame size.
	ErrInvalidDimensions = errors.New("spritesheet: invalid frame dimensions")

	// ErrInvalidOptions is returned by New for unusable options.
	ErrInvalidOptions = errors.New("spritesheet: invalid options")
)

// Options configures a spritesheet.
type Options struct {
	Dir         string            // output directory
	Name        string            // base file name
	MaxTileSize int               // length of the longer tile side
	Columns     int               // tiles per row
	Rows        int               // rows per page
	Format      ports.ImageFormat // page image format
	Quality     int               // JPEG quality
}

// DefaultOptions returns Options with default values.
func DefaultOptions() Options {
	return Options{
		Name:        "preview",
		MaxTileSize: 160,
		Columns:     5,
		Rows:        5,
		Format:      ports.FormatJPEG,
		Quality:     90,
	}
}

// Capacity returns the number of tiles on one page.
func (o Options) Capacity() int {
	return o.Columns * o.Rows
}

func (o Options) validate() error {
	switch {
	case o.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidOptions)
	case o.MaxTileSize <= 0 || o.MaxTileSize > maxPagePixels:
		return fmt.Errorf("%w: max tile size %d", ErrInvalidOptions, o.MaxTileSize)
	case o.Columns <= 0 || o.Rows <= 0 || o.Columns > maxPagePixels/o.Rows:
		return fmt.Errorf("%w: grid %dx%d", ErrInvalidOptions, o.Columns, o.Rows)
	}
	return nil
}

// TileSize scales a native frame so its longer side equals maxSide, keeping
// the aspect ratio. Integer division; each side is at least 1.
func TileSize(nativeW, nativeH, maxSide int) (int, int) {
	var w, h int
	if nativeW >= nativeH {
		w = maxSide
		h = maxSide * nativeH / nativeW
	} else {
		h = maxSide
		w = maxSide * nativeW / nativeH
	}
	return max(w, 1), max(h, 1)
}

type pendingCue struct {
	start   mediatime.Time
	payload string
}

// Assembler accumulates tiles into pages and cues into a track.
// It is not safe for concurrent use.
type Assembler struct {
	opts     Options
	renderer ports.Renderer
	fs       ports.FileSystem
	sink     ports.DebugSink
	logger   ports.Logger

	tileW, tileH int
	page         *rgb.Image
	pageIndex    int
	dirty        bool
	pageStarts   []mediatime.Time

	index   int
	prevTS  mediatime.Time
	pending *pendingCue
	track   *webvtt.Track

	files []string
	saved bool
}

// New creates an Assembler. Pages and the track are written through fs.
func New(opts Options, renderer ports.Renderer, fs ports.FileSystem, sink ports.DebugSink, logger ports.Logger) (*Assembler, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Assembler{
		opts:     opts,
		renderer: renderer,
		fs:       fs,
		sink:     sink,
		logger:   logger.WithComponent("spritesheet"),
		track:    webvtt.NewTrack(),
	}, nil
}

// Initialize derives the tile size from the native frame size and allocates the first page.
func (a *Assembler) Initialize(nativeW, nativeH int) error {
	if a.page != nil {
		return ErrAlreadyInitialized
	}
	if nativeW <= 0 || nativeH <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, nativeW, nativeH)
	}

	tw, th := TileSize(nativeW, nativeH, a.opts.MaxTileSize)
	if a.opts.Columns > maxPagePixels/tw || a.opts.Rows > maxPagePixels/th {
		return fmt.Errorf("%w: page %dx%d tiles of %dx%d", pipeline.ErrAllocation, a.opts.Columns, a.opts.Rows, tw, th)
	}
	pw, ph := tw*a.opts.Columns, th*a.opts.Rows
	if pw > maxPagePixels/ph {
		return fmt.Errorf("%w: page %dx%d", pipeline.ErrAllocation, pw, ph)
	}

	a.tileW, a.tileH = tw, th
	a.page = rgb.New(image.Rect(0, 0, pw, ph))
	a.logger.Debug(l10n.F("Tile size %dx%d, page %dx%d", tw, th, pw, ph))
	return nil
}

// Initialized reports whether Initialize succeeded.
func (a *Assembler) Initialized() bool {
	return a.page != nil
}

// TileSize returns the tile dimensions chosen by Initialize.
func (a *Assembler) TileSize() (int, int) {
	return a.tileW, a.tileH
}

// Frames returns the number of accepted tiles.
func (a *Assembler) Frames() int {
	return a.index
}

// Track returns the cue track built so far.
func (a *Assembler) Track() *webvtt.Track {
	return a.track
}

// Files returns the paths written so far.
func (a *Assembler) Files() []string {
	return append([]string(nil), a.files...)
}

// placement returns the page and pixel origin of tile k.
func (a *Assembler) placement(k int) (page, x, y int) {
	c := a.opts.Capacity()
	slot := k % c
	return k / c, (slot % a.opts.Columns) * a.tileW, ((slot / a.opts.Columns) % a.opts.Rows) * a.tileH
}

func (a *Assembler) pageName(page int) string {
	return fmt.Sprintf("%s_%d.%s", a.opts.Name, page, a.opts.Format.Ext())
}

// AddFrame places a tile-sized frame at the next grid slot and closes the previous cue.
func (a *Assembler) AddFrame(ts mediatime.Time, img *rgb.Image) error {
	if a.page == nil {
		return ErrNotInitialized
	}
	if b := img.Bounds(); b.Dx() != a.tileW || b.Dy() != a.tileH {
		return fmt.Errorf("%w: got %dx%d, want %dx%d", pipeline.ErrDimensionMismatch, b.Dx(), b.Dy(), a.tileW, a.tileH)
	}
	if a.index > 0 && ts.Before(a.prevTS) {
		return fmt.Errorf("spritesheet: frame at %s: %w", ts, webvtt.ErrOutOfOrder)
	}

	k := a.index
	page, x, y := a.placement(k)
	a.page.Overlay(img, x, y)
	a.dirty = true
	a.pageStarts = append(a.pageStarts, ts)

	if k > 0 {
		if err := a.closePending(ts); err != nil {
			return err
		}
	}
	a.pending = &pendingCue{
		start:   ts,
		payload: fmt.Sprintf("%s#xywh=%d,%d,%d,%d", a.pageName(page), x, y, a.tileW, a.tileH),
	}

	a.index++
	a.prevTS = ts

	if a.index%a.opts.Capacity() == 0 {
		return a.flush()
	}
	return nil
}

// EndFrame closes the last cue at total, the stream duration.
// An end before the cue start is clamped to the start.
func (a *Assembler) EndFrame(total mediatime.Time) error {
	if a.pending == nil {
		return nil
	}
	if total.Before(a.pending.start) {
		total = a.pending.start
	}
	return a.closePending(total)
}

func (a *Assembler) closePending(end mediatime.Time) error {
	p := a.pending
	a.pending = nil
	return a.track.Add(webvtt.Cue{Start: p.start, End: end, Payload: p.payload})
}

// Save flushes the partially filled page, if any, and writes <name>.vtt.
// It returns the files written over the assembler's lifetime. Calling Save
// again returns the same files without writing.
func (a *Assembler) Save() ([]string, error) {
	if a.saved {
		return a.Files(), nil
	}

	if a.pending != nil {
		if err := a.closePending(a.pending.start); err != nil {
			return a.Files(), err
		}
	}
	if a.dirty {
		if err := a.flush(); err != nil {
			return a.Files(), err
		}
	}

	path := a.fs.Join(a.opts.Dir, a.opts.Name+".vtt")
	if err := a.track.Save(a.fs, path); err != nil {
		return a.Files(), fmt.Errorf("%w: %s: %v", pipeline.ErrIO, path, err)
	}
	a.files = append(a.files, path)
	a.saved = true
	a.logger.Debug(l10n.F("Wrote %s with %d cues", path, a.track.Len()))

	if a.index == 0 {
		return a.Files(), fmt.Errorf("spritesheet: %w", pipeline.ErrEmptyStream)
	}
	return a.Files(), nil
}

// flush encodes and writes the current page, then clears it for reuse.
func (a *Assembler) flush() error {
	data, err := a.renderer.EncodeImage(a.page, a.opts.Format, a.opts.Quality)
	if err != nil {
		return fmt.Errorf("%w: page %d: %v", pipeline.ErrEncode, a.pageIndex, err)
	}

	path := a.fs.Join(a.opts.Dir, a.pageName(a.pageIndex))
	if err := a.fs.WriteFile(path, data); err != nil {
		return fmt.Errorf("%w: %s: %v", pipeline.ErrIO, path, err)
	}
	a.files = append(a.files, path)
	a.logger.Debug(l10n.F("Flushed page %d with %d tiles", a.pageIndex, len(a.pageStarts)))

	if a.sink != nil && a.sink.Enabled() {
		if err := a.sink.SaveAnnotatedPage(a.pageIndex, a.annotate()); err != nil {
			a.logger.Warn(l10n.F("Failed to save debug page %d: %s", a.pageIndex, err))
		}
	}

	a.pageIndex++
	a.pageStarts = a.pageStarts[:0]
	a.dirty = false
	a.page.Clear()
	return nil
}

// annotate draws tile outlines and cue start times over a copy of the current page.
func (a *Assembler) annotate() image.Image {
	b := a.page.Bounds()
	canvas := a.renderer.CreateCanvas(b.Dx(), b.Dy(), color.Black)
	canvas.DrawImage(a.page, 0, 0)

	outline := color.RGBA{R: 0xff, G: 0xd7, A: 0xff}
	style := ports.TextStyle{FontSize: 10, Color: color.White, Align: ports.AlignLeft}
	first := a.pageIndex * a.opts.Capacity()
	for i, ts := range a.pageStarts {
		_, x, y := a.placement(first + i)
		canvas.DrawRectStroke(x, y, a.tileW, a.tileH, outline, 1)
		canvas.DrawText(ts.String(), x+2, y+a.tileH-6, style)
	}
	return canvas.ToImage()
}
