// Package streammeta describes the input stream in metadata.json.
package streammeta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ideamans/go-l10n"

	"github.com/user/vidsprite/pkg/pipeline"
	"github.com/user/vidsprite/pkg/ports"
)

// FileName is the name of the metadata document inside the output directory.
const FileName = "metadata.json"

// ErrUnknownContentType is returned when a container/codec pair has no MIME type.
var ErrUnknownContentType = errors.New("streammeta: unknown content type")

// Metadata is the JSON document written next to the previews.
type Metadata struct {
	ContentType string  `json:"content_type"`
	Duration    int64   `json:"duration"` // seconds
	Bitrate     int64   `json:"bitrate"`  // kbit/s
	AspectRatio float32 `json:"aspect_ratio"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
}

// ContentType maps a container name and codec to a MIME type. container may be
// a comma-separated list of aliases such as "mov,mp4,m4a".
func ContentType(container, codec string) (string, error) {
	codec = strings.ToLower(codec)
	for _, c := range strings.Split(strings.ToLower(container), ",") {
		switch strings.TrimSpace(c) {
		case "mp4":
			if codec == "h264" || codec == "hevc" {
				return "video/mp4", nil
			}
		case "matroska":
			if codec == "h264" || codec == "hevc" {
				return "video/x-matroska", nil
			}
		case "webm":
			if codec == "vp8" || codec == "vp9" || codec == "av1" {
				return "video/webm", nil
			}
		}
	}
	return "", fmt.Errorf("%w: codec %s in container %s", ErrUnknownContentType, codec, container)
}

// Build assembles the metadata for a run.
func Build(in pipeline.MetadataInput) (Metadata, error) {
	ct, err := ContentType(in.Source.Container, in.Stream.Codec)
	if err != nil {
		return Metadata{}, err
	}

	m := Metadata{
		ContentType: ct,
		Duration:    in.Duration.Seconds(),
		Bitrate:     in.Source.Bitrate / 1000,
	}

	w, h := in.Native.Width, in.Native.Height
	if w == 0 || h == 0 {
		w, h = in.Stream.Width, in.Stream.Height
	}
	m.SetFrameSize(w, h)
	return m, nil
}

// SetFrameSize records the frame size and derives the aspect ratio.
func (m *Metadata) SetFrameSize(width, height int) {
	m.Width = width
	m.Height = height
	if height > 0 {
		m.AspectRatio = float32(float64(width) / float64(height))
	}
}

// Stage writes metadata.json into the output directory.
type Stage struct {
	fs     ports.FileSystem
	logger ports.Logger
}

// NewStage creates a metadata stage.
func NewStage(fs ports.FileSystem, logger ports.Logger) *Stage {
	return &Stage{fs: fs, logger: logger.WithComponent("metadata")}
}

// Execute implements pipeline.Stage.
func (s *Stage) Execute(ctx context.Context, in pipeline.MetadataInput) (pipeline.MetadataResult, error) {
	m, err := Build(in)
	if err != nil {
		return pipeline.MetadataResult{}, err
	}

	data, err := json.Marshal(m)
	if err != nil {
		return pipeline.MetadataResult{}, fmt.Errorf("marshal metadata: %w", err)
	}

	path := s.fs.Join(in.Dir, FileName)
	if err := s.fs.WriteFile(path, data); err != nil {
		return pipeline.MetadataResult{}, fmt.Errorf("%w: %s: %v", pipeline.ErrIO, path, err)
	}
	s.logger.Debug(l10n.F("Wrote %s (%s, %dx%d)", path, m.ContentType, m.Width, m.Height))

	return pipeline.MetadataResult{Path: path, JSON: data}, nil
}

var _ pipeline.Stage[pipeline.MetadataInput, pipeline.MetadataResult] = (*Stage)(nil)
