package mp4source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/vidsprite/pkg/adapters/h264decoder"
	"github.com/user/vidsprite/pkg/adapters/logger"
	"github.com/user/vidsprite/pkg/mediatime"
	"github.com/user/vidsprite/pkg/pipeline"
	"github.com/user/vidsprite/pkg/ports"
)

func TestAvccToAnnexB(t *testing.T) {
	in := []byte{
		0, 0, 0, 2, 0x65, 0x88,
		0, 0, 0, 1, 0x41,
	}
	want := []byte{
		0, 0, 0, 1, 0x65, 0x88,
		0, 0, 0, 1, 0x41,
	}
	if got := avccToAnnexB(in); !bytes.Equal(got, want) {
		t.Errorf("avccToAnnexB = %x, want %x", got, want)
	}
}

func TestAvccToAnnexB_Truncated(t *testing.T) {
	in := []byte{0, 0, 0, 1, 0x65, 0, 0, 0, 9, 0x41}
	want := []byte{0, 0, 0, 1, 0x65}
	if got := avccToAnnexB(in); !bytes.Equal(got, want) {
		t.Errorf("expected truncated NAL unit to be dropped, got %x", got)
	}
}

func TestParameterSets(t *testing.T) {
	avcC := &mp4.AvcCBox{}
	avcC.SPSnalus = [][]byte{{0x67, 0x42}}
	avcC.PPSnalus = [][]byte{{0x68, 0xce}}

	want := []byte{0, 0, 0, 1, 0x67, 0x42, 0, 0, 0, 1, 0x68, 0xce}
	if got := parameterSets(avcC); !bytes.Equal(got, want) {
		t.Errorf("parameterSets = %x, want %x", got, want)
	}
}

func TestDisplayIndex(t *testing.T) {
	tests := []struct {
		name string
		cts  []int64
		want int
	}{
		{"keyframe only", []int64{0}, 0},
		{"no reordering", []int64{0, 100, 200, 300}, 3},
		// I P B: the B picture is shown before the P picture.
		{"b-frame after reference", []int64{100, 400, 200}, 1},
		{"reference before b-frames", []int64{100, 400}, 1},
		{"second b-frame", []int64{100, 400, 200, 300}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := displayIndex(tt.cts); got != tt.want {
				t.Errorf("displayIndex(%v) = %d, want %d", tt.cts, got, tt.want)
			}
		})
	}
}

func TestOpener_MissingFile(t *testing.T) {
	o := New(true, logger.NewNoop())
	_, err := o.Open(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"))
	if !errors.Is(err, pipeline.ErrIO) {
		t.Errorf("expected ErrIO, got %v", err)
	}
}

func TestOpener_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := New(true, logger.NewNoop())
	if _, err := o.Open(ctx, "input.mp4"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// encodeTestMP4 writes a 3 second 64x48 H.264 clip with a keyframe every second.
func encodeTestMP4(t *testing.T, fragmented bool) string {
	t.Helper()
	if !h264decoder.IsAvailable() {
		t.Skip("ffmpeg not available")
	}
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not in PATH")
	}

	path := filepath.Join(t.TempDir(), "clip.mp4")
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "lavfi", "-i", "testsrc=size=64x48:rate=10",
		"-t", "3",
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		"-g", "10", "-keyint_min", "10", "-sc_threshold", "0", "-bf", "0",
	}
	if fragmented {
		args = append(args, "-movflags", "frag_keyframe+empty_moov")
	}
	args = append(args, path)

	var stderr bytes.Buffer
	cmd := exec.Command(ffmpeg, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Skipf("ffmpeg cannot encode H.264 here: %v %s", err, stderr.String())
	}
	return path
}

func readAll(t *testing.T, src ports.MediaSource) []ports.Packet {
	t.Helper()
	var packets []ports.Packet
	for {
		pkt, err := src.NextPacket()
		if err == io.EOF {
			return packets
		}
		if err != nil {
			t.Fatalf("NextPacket failed: %v", err)
		}
		packets = append(packets, pkt)
	}
}

func TestSource_KeyframesOnly(t *testing.T) {
	for _, fragmented := range []bool{false, true} {
		name := "progressive"
		if fragmented {
			name = "fragmented"
		}
		t.Run(name, func(t *testing.T) {
			path := encodeTestMP4(t, fragmented)

			src, err := New(true, logger.NewNoop()).Open(context.Background(), path)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer src.Close()

			stream, err := src.VideoStream()
			if err != nil {
				t.Fatalf("VideoStream failed: %v", err)
			}
			if stream.Codec != "h264" || stream.Width != 64 || stream.Height != 48 {
				t.Errorf("unexpected stream %+v", stream)
			}
			if d := src.Duration(); d < mediatime.FromMillis(2900) || d > mediatime.FromMillis(3100) {
				t.Errorf("expected ~3s duration, got %s", d)
			}
			if info := src.Info(); info.Container != "mp4" || info.Size == 0 || info.Bitrate == 0 {
				t.Errorf("unexpected info %+v", info)
			}

			packets := readAll(t, src)
			if len(packets) != 3 {
				t.Fatalf("expected 3 keyframes, got %d", len(packets))
			}
			for i, pkt := range packets {
				if !pkt.KeyFrame {
					t.Errorf("packet %d: expected keyframe", i)
				}
				if want := mediatime.FromSeconds(int64(i)); pkt.PTS != want {
					t.Errorf("packet %d: expected PTS %s, got %s", i, want, pkt.PTS)
				}
			}

			frames, err := src.Decode(packets[1])
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if len(frames) != 1 || frames[0].Width != 64 || frames[0].Height != 48 {
				t.Fatalf("unexpected frames %+v", frames)
			}
			if frames[0].Timestamp != packets[1].PTS {
				t.Errorf("expected frame timestamp %s, got %s", packets[1].PTS, frames[0].Timestamp)
			}
		})
	}
}

func TestSource_AllFrames(t *testing.T) {
	path := encodeTestMP4(t, false)

	src, err := New(false, logger.NewNoop()).Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	var packets []ports.Packet
	for i := 0; i < 5; i++ {
		pkt, err := src.NextPacket()
		if err != nil {
			t.Fatalf("NextPacket failed: %v", err)
		}
		packets = append(packets, pkt)
	}
	if !packets[0].KeyFrame || packets[4].KeyFrame {
		t.Fatal("expected keyframe followed by inter frames")
	}

	frames, err := src.Decode(packets[4])
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(frames) != 1 || frames[0].Timestamp != mediatime.FromMillis(400) {
		t.Errorf("unexpected frames %+v", frames)
	}

	if _, err := src.Decode(packets[2]); !errors.Is(err, ErrStalePacket) {
		t.Errorf("expected ErrStalePacket, got %v", err)
	}

	rest := readAll(t, src)
	if len(packets)+len(rest) != 30 {
		t.Errorf("expected 30 packets, got %d", len(packets)+len(rest))
	}
}
