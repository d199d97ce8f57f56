package ports

import (
	"image"
)

// DebugSink abstracts debug output for intermediate results.
// It allows saving sampled frames and annotated pages for inspection.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SaveSampledFrame saves a frame accepted by an output, at its tile size.
	SaveSampledFrame(output string, index int, img image.Image) error

	// SaveAnnotatedPage saves a spritesheet page with tile outlines and cue labels.
	SaveAnnotatedPage(page int, img image.Image) error

	// SaveRunJSON saves the run result as JSON.
	SaveRunJSON(data []byte) error
}
