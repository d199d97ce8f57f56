package pipeline

import (
	"github.com/user/vidsprite/pkg/mediatime"
	"github.com/user/vidsprite/pkg/ports"
)

// =============================================================================
// Common Types
// =============================================================================

// Dimension represents width and height.
type Dimension struct {
	Width  int
	Height int
}

// OutputKind names an artifact family produced by a run.
type OutputKind string

const (
	OutputSpritesheet OutputKind = "spritesheet"
	OutputTimelens    OutputKind = "timelens"
	OutputMetadata    OutputKind = "metadata"
)

// =============================================================================
// Metadata Stage Types
// =============================================================================

// MetadataInput contains what is known about the input once streaming ends.
type MetadataInput struct {
	Dir      string
	Source   ports.SourceInfo
	Stream   ports.StreamInfo
	Duration mediatime.Time
	// Native is the size of the first decoded frame; zero when nothing decoded.
	Native Dimension
}

// MetadataResult contains the written metadata document.
type MetadataResult struct {
	Path string
	JSON []byte
}
