// Package codecdetect identifies the video codec of MP4 tracks.
package codecdetect

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Eyevinn/mp4ff/mp4"
)

// ErrNoVideoTrack is returned when a file has no video track.
var ErrNoVideoTrack = errors.New("codecdetect: no video track found")

// Codec is a codec name as used in container/codec content type mapping.
type Codec string

const (
	CodecH264    Codec = "h264"
	CodecHEVC    Codec = "hevc"
	CodecAV1     Codec = "av1"
	CodecVP9     Codec = "vp9"
	CodecUnknown Codec = "unknown"
)

// DetectFromFile detects the video codec used in an MP4 file.
func DetectFromFile(path string) (Codec, error) {
	f, err := os.Open(path)
	if err != nil {
		return CodecUnknown, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return DetectFromReader(f)
}

// DetectFromReader detects the video codec and rewinds the reader.
func DetectFromReader(reader io.ReadSeeker) (Codec, error) {
	mp4File, err := mp4.DecodeFile(reader)
	if err != nil {
		return CodecUnknown, fmt.Errorf("decode mp4: %w", err)
	}
	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return CodecUnknown, fmt.Errorf("seek: %w", err)
	}

	trak := VideoTrack(mp4File)
	if trak == nil {
		return CodecUnknown, ErrNoVideoTrack
	}
	return FromTrack(trak), nil
}

// VideoTrack returns the first video track of a progressive or fragmented file.
func VideoTrack(f *mp4.File) *mp4.TrakBox {
	var moov *mp4.MoovBox
	if f.IsFragmented() && f.Init != nil {
		moov = f.Init.Moov
	} else {
		moov = f.Moov
	}
	if moov == nil {
		return nil
	}
	for _, trak := range moov.Traks {
		if IsVideo(trak) {
			return trak
		}
	}
	return nil
}

// IsVideo reports whether trak carries video.
func IsVideo(trak *mp4.TrakBox) bool {
	return trak != nil && trak.Mdia != nil && trak.Mdia.Hdlr != nil && trak.Mdia.Hdlr.HandlerType == "vide"
}

// FromTrack maps the sample entry of a video track to a Codec.
func FromTrack(trak *mp4.TrakBox) Codec {
	if !IsVideo(trak) {
		return CodecUnknown
	}
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return CodecUnknown
	}

	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		switch child.Type() {
		case "avc1", "avc3":
			return CodecH264
		case "hvc1", "hev1":
			return CodecHEVC
		case "av01":
			return CodecAV1
		case "vp09":
			return CodecVP9
		}
	}

	return CodecUnknown
}
