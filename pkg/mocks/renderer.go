package mocks

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/user/vidsprite/pkg/ports"
	"github.com/user/vidsprite/pkg/rgb"
)

// Renderer is a mock implementation of ports.Renderer.
//
// By default EncodeImage returns "<ext>:<w>x<h>" so tests can check what was
// encoded without decoding, and ScaleImage performs nearest-neighbour sampling.
type Renderer struct {
	mu sync.Mutex

	CreateCanvasFunc func(width, height int, bg color.Color) ports.Canvas
	EncodeImageFunc  func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error)
	ScaleImageFunc   func(img image.Image, width, height int, scaler ports.Scaler) *rgb.Image

	// Recorded calls for verification
	Encoded []image.Image
	Scalers []ports.Scaler
}

func (m *Renderer) CreateCanvas(width, height int, bg color.Color) ports.Canvas {
	if m.CreateCanvasFunc != nil {
		return m.CreateCanvasFunc(width, height, bg)
	}
	return &Canvas{width: width, height: height}
}

func (m *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	m.mu.Lock()
	m.Encoded = append(m.Encoded, img)
	m.mu.Unlock()

	if m.EncodeImageFunc != nil {
		return m.EncodeImageFunc(img, format, quality)
	}
	b := img.Bounds()
	return []byte(fmt.Sprintf("%s:%dx%d", format.Ext(), b.Dx(), b.Dy())), nil
}

func (m *Renderer) ScaleImage(img image.Image, width, height int, scaler ports.Scaler) *rgb.Image {
	m.mu.Lock()
	m.Scalers = append(m.Scalers, scaler)
	m.mu.Unlock()

	if m.ScaleImageFunc != nil {
		return m.ScaleImageFunc(img, width, height, scaler)
	}
	src := rgb.FromImage(img)
	dst := rgb.New(image.Rect(0, 0, width, height))
	sw, sh := src.Rect.Dx(), src.Rect.Dy()
	if sw == 0 || sh == 0 {
		return dst
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dst.Set(x, y, src.RGBAAt(x*sw/width, y*sh/height))
		}
	}
	return dst
}

var _ ports.Renderer = (*Renderer)(nil)

// Canvas is a mock implementation of ports.Canvas.
type Canvas struct {
	width  int
	height int
	img    *image.RGBA

	// Recorded calls for verification
	Images  int
	Strokes int
	Texts   []string
}

func (m *Canvas) DrawImage(img image.Image, x, y int) { m.Images++ }

func (m *Canvas) DrawRectStroke(x, y, w, h int, c color.Color, strokeWidth float64) {
	m.Strokes++
}

func (m *Canvas) DrawText(text string, x, y int, style ports.TextStyle) {
	m.Texts = append(m.Texts, text)
}

func (m *Canvas) ToImage() image.Image {
	if m.img != nil {
		return m.img
	}
	return image.NewRGBA(image.Rect(0, 0, m.width, m.height))
}

var _ ports.Canvas = (*Canvas)(nil)
