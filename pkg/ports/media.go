package ports

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/user/vidsprite/pkg/mediatime"
	"github.com/user/vidsprite/pkg/rgb"
)

var (
	// ErrNoVideoStream is returned when a container holds no decodable video stream.
	ErrNoVideoStream = errors.New("ports: no video stream")

	// ErrUnknownPixelFormat is returned by ParsePixelFormat for unrecognized names.
	ErrUnknownPixelFormat = errors.New("ports: unknown pixel format")
)

// MediaOpener opens media files for demuxing and decoding.
type MediaOpener interface {
	// Open opens the media at path. The returned source must be closed.
	Open(ctx context.Context, path string) (MediaSource, error)
}

// MediaSource is an opened container with a single selected video stream.
// Packets are pulled in decode order; Decode turns a packet into zero or more frames.
type MediaSource interface {
	// Duration returns the container duration.
	Duration() mediatime.Time

	// VideoStream returns the best video stream or ErrNoVideoStream.
	VideoStream() (StreamInfo, error)

	// Info returns container-level properties.
	Info() SourceInfo

	// NextPacket returns the next packet, or io.EOF when the container is exhausted.
	// Any other error means the container is truncated or corrupt.
	NextPacket() (Packet, error)

	// Decode decodes a packet of the video stream. A decoder may buffer input and
	// return no frames for some packets.
	Decode(pkt Packet) ([]Frame, error)

	// Close releases the container and decoder.
	Close() error
}

// StreamInfo describes a video stream. Index is the handle packets refer to.
type StreamInfo struct {
	Index    int
	Codec    string
	TimeBase mediatime.Rational
	Width    int
	Height   int
	Duration mediatime.Time
}

// SourceInfo describes the container.
type SourceInfo struct {
	Path      string
	Container string // "mp4", "matroska", "webm"
	Size      int64  // bytes
	Bitrate   int64  // bits per second, 0 when unknown
}

// Packet is one demuxed unit of compressed data.
type Packet struct {
	StreamIndex int
	PTS         mediatime.Time
	KeyFrame    bool
	Data        []byte
}

// Frame is a decoded picture at its native size.
type Frame struct {
	Image       image.Image
	Width       int
	Height      int
	PixelFormat PixelFormat
	Timestamp   mediatime.Time
	KeyFrame    bool
}

// PixelFormat identifies the layout of decoded pixels.
type PixelFormat int

const (
	// PixelFormatUnknown is a format this program does not recognize.
	PixelFormatUnknown PixelFormat = iota
	PixelFormatRGB24
	PixelFormatRGBA
	PixelFormatYUV420P
	PixelFormatGray
)

var pixelFormatNames = map[PixelFormat]string{
	PixelFormatUnknown: "unknown",
	PixelFormatRGB24:   "rgb24",
	PixelFormatRGBA:    "rgba",
	PixelFormatYUV420P: "yuv420p",
	PixelFormatGray:    "gray",
}

// String returns the conventional name of the pixel format.
func (p PixelFormat) String() string {
	if s, ok := pixelFormatNames[p]; ok {
		return s
	}
	return "unknown"
}

// ParsePixelFormat parses a pixel format name.
func ParsePixelFormat(s string) (PixelFormat, error) {
	for f, name := range pixelFormatNames {
		if name == s && f != PixelFormatUnknown {
			return f, nil
		}
	}
	return PixelFormatUnknown, fmt.Errorf("%w: %q", ErrUnknownPixelFormat, s)
}

// PixelFormatOf reports the pixel format of a decoded image.
func PixelFormatOf(img image.Image) PixelFormat {
	switch m := img.(type) {
	case *rgb.Image:
		return PixelFormatRGB24
	case *image.RGBA, *image.NRGBA:
		return PixelFormatRGBA
	case *image.YCbCr:
		if m.SubsampleRatio == image.YCbCrSubsampleRatio420 {
			return PixelFormatYUV420P
		}
		return PixelFormatUnknown
	case *image.Gray:
		return PixelFormatGray
	default:
		return PixelFormatUnknown
	}
}
