package ports

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/user/vidsprite/pkg/rgb"
)

var (
	// ErrUnknownImageFormat is returned by ParseImageFormat for unrecognized names.
	ErrUnknownImageFormat = errors.New("ports: unknown image format")

	// ErrUnknownScaler is returned by ParseScaler for unrecognized names.
	ErrUnknownScaler = errors.New("ports: unknown scaler")
)

// Renderer abstracts image encoding and scaling.
type Renderer interface {
	// CreateCanvas creates a new drawing canvas with the specified dimensions and background color.
	CreateCanvas(width, height int, bg color.Color) Canvas

	// EncodeImage encodes an image to the specified format.
	// quality is only used by lossy formats.
	EncodeImage(img image.Image, format ImageFormat, quality int) ([]byte, error)

	// ScaleImage resamples img to width x height as packed RGB.
	ScaleImage(img image.Image, width, height int, scaler Scaler) *rgb.Image
}

// Canvas provides drawing operations for annotated debug output.
type Canvas interface {
	// DrawImage draws an image at the specified position.
	DrawImage(img image.Image, x, y int)

	// DrawRectStroke draws a rectangle outline.
	DrawRectStroke(x, y, w, h int, c color.Color, strokeWidth float64)

	// DrawText draws text at the specified position.
	DrawText(text string, x, y int, style TextStyle)

	// ToImage returns the canvas as an image.Image.
	ToImage() image.Image
}

// TextStyle defines text rendering properties.
type TextStyle struct {
	FontSize float64
	FontPath string
	Color    color.Color
	Align    TextAlign
}

// TextAlign specifies text alignment.
type TextAlign int

const (
	AlignLeft TextAlign = iota
	AlignCenter
	AlignRight
)

// ImageFormat specifies image encoding format.
type ImageFormat int

const (
	FormatJPEG ImageFormat = iota
	FormatPNG
	FormatBMP
)

// Ext returns the file extension used for the format, without the dot.
func (f ImageFormat) Ext() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	case FormatBMP:
		return "bmp"
	default:
		return "bin"
	}
}

// String returns the format name.
func (f ImageFormat) String() string {
	return f.Ext()
}

// ParseImageFormat parses a format name such as "jpeg", "jpg", "png" or "bmp".
func ParseImageFormat(s string) (ImageFormat, error) {
	switch strings.ToLower(s) {
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "bmp":
		return FormatBMP, nil
	default:
		return FormatJPEG, fmt.Errorf("%w: %q", ErrUnknownImageFormat, s)
	}
}

// Scaler selects the resampling kernel used by ScaleImage.
type Scaler int

const (
	ScalerBiLinear Scaler = iota
	ScalerNearest
	ScalerApproxBiLinear
	ScalerCatmullRom
)

// String returns the scaler name.
func (s Scaler) String() string {
	switch s {
	case ScalerNearest:
		return "nearest"
	case ScalerApproxBiLinear:
		return "approx-bilinear"
	case ScalerBiLinear:
		return "bilinear"
	case ScalerCatmullRom:
		return "catmull-rom"
	default:
		return "unknown"
	}
}

// ParseScaler parses a scaler name.
func ParseScaler(s string) (Scaler, error) {
	switch strings.ToLower(s) {
	case "nearest", "point":
		return ScalerNearest, nil
	case "approx-bilinear", "fast-bilinear":
		return ScalerApproxBiLinear, nil
	case "bilinear":
		return ScalerBiLinear, nil
	case "catmull-rom", "bicubic":
		return ScalerCatmullRom, nil
	default:
		return ScalerBiLinear, fmt.Errorf("%w: %q", ErrUnknownScaler, s)
	}
}
