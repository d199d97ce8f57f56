// Package filesink writes debug output under a base directory.
package filesink

import (
	"fmt"
	"image"

	"github.com/user/vidsprite/pkg/ports"
)

// Sink saves debug output to files:
//
//	<base>/frames/<output>/frame-0000.png
//	<base>/pages/page-0000.png
//	<base>/run.json
type Sink struct {
	baseDir  string
	fs       ports.FileSystem
	renderer ports.Renderer
}

// New creates a new file sink.
func New(baseDir string, fs ports.FileSystem, renderer ports.Renderer) *Sink {
	return &Sink{
		baseDir:  baseDir,
		fs:       fs,
		renderer: renderer,
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SaveSampledFrame saves a frame accepted by output as PNG.
func (s *Sink) SaveSampledFrame(output string, index int, img image.Image) error {
	return s.savePNG(s.fs.Join(s.baseDir, "frames", output), fmt.Sprintf("frame-%04d.png", index), img)
}

// SaveAnnotatedPage saves an annotated spritesheet page as PNG.
func (s *Sink) SaveAnnotatedPage(page int, img image.Image) error {
	return s.savePNG(s.fs.Join(s.baseDir, "pages"), fmt.Sprintf("page-%04d.png", page), img)
}

// SaveRunJSON saves the run result.
func (s *Sink) SaveRunJSON(data []byte) error {
	if err := s.fs.MkdirAll(s.baseDir); err != nil {
		return err
	}
	return s.fs.WriteFile(s.fs.Join(s.baseDir, "run.json"), data)
}

func (s *Sink) savePNG(dir, name string, img image.Image) error {
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}
	data, err := s.renderer.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return s.fs.WriteFile(s.fs.Join(dir, name), data)
}

var _ ports.DebugSink = (*Sink)(nil)
