// Package nullsink provides a debug sink that discards everything.
package nullsink

import (
	"image"

	"github.com/user/vidsprite/pkg/ports"
)

// Sink is a no-op implementation of ports.DebugSink.
type Sink struct{}

// New creates a new null sink.
func New() *Sink {
	return &Sink{}
}

// Enabled returns false so callers can skip building debug images.
func (s *Sink) Enabled() bool {
	return false
}

func (s *Sink) SaveSampledFrame(output string, index int, img image.Image) error { return nil }
func (s *Sink) SaveAnnotatedPage(page int, img image.Image) error                 { return nil }
func (s *Sink) SaveRunJSON(data []byte) error                                     { return nil }

var _ ports.DebugSink = (*Sink)(nil)
