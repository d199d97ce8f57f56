package filesink

import (
	"errors"
	"image"
	"path/filepath"
	"testing"

	"github.com/user/vidsprite/pkg/mocks"
	"github.com/user/vidsprite/pkg/ports"
)

// testBaseDir is a platform-independent base directory for tests
var testBaseDir = filepath.Join("debug")

func TestSink_Enabled(t *testing.T) {
	sink := New(testBaseDir, mocks.NewFileSystem(), &mocks.Renderer{})

	if !sink.Enabled() {
		t.Error("expected Enabled to return true")
	}
}

func TestSink_SaveSampledFrame(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs, &mocks.Renderer{})

	if err := sink.SaveSampledFrame("spritesheet", 3, image.NewRGBA(image.Rect(0, 0, 16, 9))); err != nil {
		t.Fatalf("SaveSampledFrame failed: %v", err)
	}

	path := filepath.Join(testBaseDir, "frames", "spritesheet", "frame-0003.png")
	if _, ok := fs.GetFile(path); !ok {
		t.Errorf("expected file at %s, got %v", path, fs.Writes())
	}
}

func TestSink_SaveAnnotatedPage(t *testing.T) {
	fs := mocks.NewFileSystem()
	renderer := &mocks.Renderer{}
	sink := New(testBaseDir, fs, renderer)

	if err := sink.SaveAnnotatedPage(1, image.NewRGBA(image.Rect(0, 0, 80, 45))); err != nil {
		t.Fatalf("SaveAnnotatedPage failed: %v", err)
	}

	path := filepath.Join(testBaseDir, "pages", "page-0001.png")
	data, ok := fs.GetFile(path)
	if !ok {
		t.Fatalf("expected file at %s", path)
	}
	if string(data) != "png:80x45" {
		t.Errorf("expected PNG encoding, got %q", data)
	}
	if len(renderer.Encoded) != 1 {
		t.Errorf("expected one encode, got %d", len(renderer.Encoded))
	}
}

func TestSink_SaveRunJSON(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs, &mocks.Renderer{})

	data := []byte(`{"state":"done"}`)
	if err := sink.SaveRunJSON(data); err != nil {
		t.Fatalf("SaveRunJSON failed: %v", err)
	}

	saved, ok := fs.GetFile(filepath.Join(testBaseDir, "run.json"))
	if !ok || string(saved) != string(data) {
		t.Errorf("expected %q, got %q", data, saved)
	}
}

func TestSink_EncodeError(t *testing.T) {
	fs := mocks.NewFileSystem()
	renderer := &mocks.Renderer{
		EncodeImageFunc: func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
			return nil, errors.New("boom")
		},
	}
	sink := New(testBaseDir, fs, renderer)

	if err := sink.SaveAnnotatedPage(0, image.NewRGBA(image.Rect(0, 0, 1, 1))); err == nil {
		t.Error("expected error")
	}
	if len(fs.Writes()) != 0 {
		t.Error("expected nothing to be written")
	}
}
