package mocks

import (
	"context"
	"image"
	"image/color"
	"io"

	"github.com/user/vidsprite/pkg/mediatime"
	"github.com/user/vidsprite/pkg/ports"
)

// MediaOpener is a mock implementation of ports.MediaOpener.
type MediaOpener struct {
	OpenFunc func(ctx context.Context, path string) (ports.MediaSource, error)
	Source   *MediaSource

	// Recorded calls for verification
	OpenedPaths []string
}

func (m *MediaOpener) Open(ctx context.Context, path string) (ports.MediaSource, error) {
	m.OpenedPaths = append(m.OpenedPaths, path)
	if m.OpenFunc != nil {
		return m.OpenFunc(ctx, path)
	}
	return m.Source, nil
}

var _ ports.MediaOpener = (*MediaOpener)(nil)

// MediaSource is a scripted implementation of ports.MediaSource.
//
// It yields Packets in order, then PacketErr (io.EOF when nil). By default each
// packet decodes to one frame of Stream.Width x Stream.Height whose red channel
// encodes the packet index.
type MediaSource struct {
	DurationValue mediatime.Time
	Stream        ports.StreamInfo
	StreamErr     error
	SourceInfo    ports.SourceInfo
	Packets       []ports.Packet
	PacketErr     error

	DecodeFunc func(pkt ports.Packet) ([]ports.Frame, error)
	CloseFunc  func() error

	// Recorded calls for verification
	Decoded []ports.Packet
	Closed  bool

	pos int
}

// NewMediaSource creates a source with one key packet per timestamp.
func NewMediaSource(duration mediatime.Time, width, height int, timestamps ...mediatime.Time) *MediaSource {
	packets := make([]ports.Packet, len(timestamps))
	for i, ts := range timestamps {
		packets[i] = ports.Packet{StreamIndex: 0, PTS: ts, KeyFrame: true, Data: []byte{byte(i)}}
	}
	return &MediaSource{
		DurationValue: duration,
		Stream: ports.StreamInfo{
			Index:    0,
			Codec:    "h264",
			TimeBase: mediatime.Rational{Num: 1, Den: 1000},
			Width:    width,
			Height:   height,
			Duration: duration,
		},
		SourceInfo: ports.SourceInfo{Path: "input.mp4", Container: "mp4", Size: 1_000_000, Bitrate: 800_000},
		Packets:    packets,
	}
}

// EvenlySpaced returns n timestamps step apart starting at zero.
func EvenlySpaced(n int, step mediatime.Time) []mediatime.Time {
	out := make([]mediatime.Time, n)
	for i := range out {
		out[i] = mediatime.Time(int64(i)) * step
	}
	return out
}

func (m *MediaSource) Duration() mediatime.Time {
	return m.DurationValue
}

func (m *MediaSource) VideoStream() (ports.StreamInfo, error) {
	if m.StreamErr != nil {
		return ports.StreamInfo{}, m.StreamErr
	}
	return m.Stream, nil
}

func (m *MediaSource) Info() ports.SourceInfo {
	return m.SourceInfo
}

func (m *MediaSource) NextPacket() (ports.Packet, error) {
	if m.pos >= len(m.Packets) {
		if m.PacketErr != nil {
			return ports.Packet{}, m.PacketErr
		}
		return ports.Packet{}, io.EOF
	}
	pkt := m.Packets[m.pos]
	m.pos++
	return pkt, nil
}

func (m *MediaSource) Decode(pkt ports.Packet) ([]ports.Frame, error) {
	m.Decoded = append(m.Decoded, pkt)
	if m.DecodeFunc != nil {
		return m.DecodeFunc(pkt)
	}

	img := image.NewRGBA(image.Rect(0, 0, m.Stream.Width, m.Stream.Height))
	var shade uint8
	if len(pkt.Data) > 0 {
		shade = pkt.Data[0]
	}
	c := color.RGBA{R: shade, G: 0x40, B: 0x80, A: 0xff}
	for y := 0; y < m.Stream.Height; y++ {
		for x := 0; x < m.Stream.Width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return []ports.Frame{{
		Image:       img,
		Width:       m.Stream.Width,
		Height:      m.Stream.Height,
		PixelFormat: ports.PixelFormatRGBA,
		Timestamp:   pkt.PTS,
		KeyFrame:    pkt.KeyFrame,
	}}, nil
}

func (m *MediaSource) Close() error {
	m.Closed = true
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

var _ ports.MediaSource = (*MediaSource)(nil)
