// Package h264decoder decodes H.264 Annex B access units to images with an
// external ffmpeg process.
package h264decoder

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
)

var (
	// ErrNotInitialized is returned when decoder methods are called before initialization.
	ErrNotInitialized = errors.New("h264decoder: decoder not initialized")

	// ErrDecodeFailed is returned when ffmpeg produces no picture.
	ErrDecodeFailed = errors.New("h264decoder: decode failed")

	// ErrFFmpegNotFound is returned when ffmpeg cannot be located.
	ErrFFmpegNotFound = errors.New("h264decoder: ffmpeg not found in PATH")
)

var (
	pathMu           sync.RWMutex
	customFFmpegPath string
)

// SetFFmpegPath overrides the ffmpeg lookup. An empty path restores the default search.
func SetFFmpegPath(path string) {
	pathMu.Lock()
	defer pathMu.Unlock()
	customFFmpegPath = path
}

// IsAvailable reports whether an ffmpeg binary can be found.
func IsAvailable() bool {
	_, err := findFFmpeg()
	return err == nil
}

// findFFmpeg searches the custom path, then PATH, then common install locations.
func findFFmpeg() (string, error) {
	pathMu.RLock()
	custom := customFFmpegPath
	pathMu.RUnlock()

	if custom != "" {
		if _, err := os.Stat(custom); err == nil {
			return custom, nil
		}
		return "", fmt.Errorf("%w: custom path %s not found", ErrFFmpegNotFound, custom)
	}

	execName := "ffmpeg"
	if runtime.GOOS == "windows" {
		execName = "ffmpeg.exe"
	}
	if path, err := exec.LookPath(execName); err == nil {
		return path, nil
	}

	var commonPaths []string
	if runtime.GOOS == "windows" {
		commonPaths = []string{
			`C:\ffmpeg\bin\ffmpeg.exe`,
			`C:\Program Files\ffmpeg\bin\ffmpeg.exe`,
		}
	} else {
		commonPaths = []string{
			"/usr/bin/ffmpeg",
			"/usr/local/bin/ffmpeg",
			"/opt/homebrew/bin/ffmpeg",
			"/snap/bin/ffmpeg",
		}
	}
	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", ErrFFmpegNotFound
}

// Decoder runs ffmpeg once per decode call. It is safe for concurrent use.
type Decoder struct {
	mu         sync.Mutex
	ffmpegPath string
}

// New creates a new H.264 decoder.
func New() *Decoder {
	return &Decoder{}
}

// Init locates ffmpeg.
func (d *Decoder) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	path, err := findFFmpeg()
	if err != nil {
		return err
	}
	d.ffmpegPath = path
	return nil
}

// DecodeFrame decodes the first picture of an Annex B stream.
// A keyframe access unit must carry its SPS and PPS.
func (d *Decoder) DecodeFrame(data []byte) (image.Image, error) {
	return d.DecodeFrameAt(data, 0)
}

// DecodeFrameAt decodes data and returns the picture with output index n.
// Pictures are output in display order, so n is a display position.
// Used to reach a non-key frame by decoding its group of pictures from the keyframe.
func (d *Decoder) DecodeFrameAt(data []byte, n int) (image.Image, error) {
	d.mu.Lock()
	path := d.ffmpegPath
	d.mu.Unlock()

	if path == "" {
		return nil, ErrNotInitialized
	}
	if len(data) == 0 || n < 0 {
		return nil, ErrDecodeFailed
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", "h264",
		"-i", "pipe:0",
	}
	if n > 0 {
		args = append(args, "-vf", "select=eq(n\\,"+strconv.Itoa(n)+")", "-fps_mode", "passthrough")
	}
	args = append(args,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-c:v", "png",
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(path, args...)
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg: %v\nstderr: %s", ErrDecodeFailed, err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%w: no picture at index %d", ErrDecodeFailed, n)
	}

	img, err := png.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("%w: decode png: %v", ErrDecodeFailed, err)
	}
	return img, nil
}

// Close releases decoder resources.
func (d *Decoder) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ffmpegPath = ""
}
