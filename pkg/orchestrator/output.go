package orchestrator

import (
	"github.com/user/vidsprite/pkg/mediatime"
	"github.com/user/vidsprite/pkg/pipeline"
	"github.com/user/vidsprite/pkg/rgb"
	"github.com/user/vidsprite/pkg/sampler"
	"github.com/user/vidsprite/pkg/spritesheet"
	"github.com/user/vidsprite/pkg/timelens"
)

// assembler is the part of an output the streaming loop drives.
type assembler interface {
	Initialized() bool
	Initialize(nativeW, nativeH int) error
	TargetSize() (int, int)
	AddFrame(ts mediatime.Time, img *rgb.Image) error
	Finish(total mediatime.Time) ([]string, error)
}

// consumer pairs an assembler with its own sampler.
type consumer struct {
	kind     pipeline.OutputKind
	sampler  *sampler.Sampler
	asm      assembler
	err      error
	accepted int
}

func (c *consumer) active() bool {
	return c.err == nil
}

func (c *consumer) due(ts mediatime.Time) bool {
	return c.active() && c.sampler.Due(ts)
}

type spritesheetAssembler struct {
	*spritesheet.Assembler
}

func (s spritesheetAssembler) TargetSize() (int, int) {
	return s.TileSize()
}

func (s spritesheetAssembler) Finish(total mediatime.Time) ([]string, error) {
	if err := s.EndFrame(total); err != nil {
		return s.Files(), err
	}
	return s.Save()
}

type timelensAssembler struct {
	*timelens.Assembler
}

// Initialize ignores the native size; columns are always 1 x Height.
func (t timelensAssembler) Initialize(_, _ int) error {
	return t.Assembler.Initialize()
}

func (t timelensAssembler) TargetSize() (int, int) {
	return t.ColumnSize()
}

func (t timelensAssembler) Finish(mediatime.Time) ([]string, error) {
	return t.Save()
}
