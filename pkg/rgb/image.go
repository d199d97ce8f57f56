// Package rgb provides a packed 24-bit RGB image buffer.
//
// Every frame handed to the assemblers is converted to this layout, so tiles and
// strips can be copied row by row without per-pixel color conversion.
package rgb

import (
	"image"
	"image/color"
	"image/draw"
)

// BytesPerPixel is the size of one packed RGB pixel.
const BytesPerPixel = 3

// Image is an in-memory image whose At method returns color.RGBA values.
// Pixels are stored as R, G, B triplets; alpha is always opaque.
type Image struct {
	// Pix holds the image's pixels in R, G, B order. The pixel at (x, y)
	// starts at Pix[(y-Rect.Min.Y)*Stride + (x-Rect.Min.X)*3].
	Pix []uint8
	// Stride is the Pix stride (in bytes) between vertically adjacent pixels.
	Stride int
	// Rect is the image's bounds.
	Rect image.Rectangle
}

// New returns a black image with the given bounds.
func New(r image.Rectangle) *Image {
	w, h := r.Dx(), r.Dy()
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Image{
		Pix:    make([]uint8, w*h*BytesPerPixel),
		Stride: w * BytesPerPixel,
		Rect:   r,
	}
}

// FromImage converts img to a packed RGB image anchored at (0, 0).
// Alpha is discarded after compositing over black.
func FromImage(img image.Image) *Image {
	if m, ok := img.(*Image); ok && m.Rect.Min == (image.Point{}) {
		return m
	}

	b := img.Bounds()
	dst := New(image.Rect(0, 0, b.Dx(), b.Dy()))

	switch src := img.(type) {
	case *image.RGBA:
		for y := 0; y < b.Dy(); y++ {
			si := src.PixOffset(b.Min.X, b.Min.Y+y)
			di := y * dst.Stride
			for x := 0; x < b.Dx(); x++ {
				dst.Pix[di+0] = src.Pix[si+0]
				dst.Pix[di+1] = src.Pix[si+1]
				dst.Pix[di+2] = src.Pix[si+2]
				si += 4
				di += BytesPerPixel
			}
		}
	default:
		for y := 0; y < b.Dy(); y++ {
			di := y * dst.Stride
			for x := 0; x < b.Dx(); x++ {
				r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				dst.Pix[di+0] = uint8(r >> 8)
				dst.Pix[di+1] = uint8(g >> 8)
				dst.Pix[di+2] = uint8(bl >> 8)
				di += BytesPerPixel
			}
		}
	}
	return dst
}

// ColorModel implements image.Image.
func (p *Image) ColorModel() color.Model {
	return color.RGBAModel
}

// Bounds implements image.Image.
func (p *Image) Bounds() image.Rectangle {
	return p.Rect
}

// At implements image.Image.
func (p *Image) At(x, y int) color.Color {
	return p.RGBAAt(x, y)
}

// RGBAAt returns the color of the pixel at (x, y) as color.RGBA.
func (p *Image) RGBAAt(x, y int) color.RGBA {
	if !(image.Point{x, y}.In(p.Rect)) {
		return color.RGBA{}
	}
	i := p.PixOffset(x, y)
	return color.RGBA{R: p.Pix[i], G: p.Pix[i+1], B: p.Pix[i+2], A: 0xff}
}

// Set implements draw.Image.
func (p *Image) Set(x, y int, c color.Color) {
	if !(image.Point{x, y}.In(p.Rect)) {
		return
	}
	i := p.PixOffset(x, y)
	r, g, b, _ := c.RGBA()
	p.Pix[i+0] = uint8(r >> 8)
	p.Pix[i+1] = uint8(g >> 8)
	p.Pix[i+2] = uint8(b >> 8)
}

// PixOffset returns the index of the first element of Pix that corresponds to
// the pixel at (x, y).
func (p *Image) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*BytesPerPixel
}

// Overlay copies src onto p with its top-left corner at (x, y).
// The copy is opaque; pixels falling outside p are clipped.
func (p *Image) Overlay(src *Image, x, y int) {
	sb := src.Rect
	dr := image.Rect(x, y, x+sb.Dx(), y+sb.Dy()).Intersect(p.Rect)
	if dr.Empty() {
		return
	}

	sx := sb.Min.X + (dr.Min.X - x)
	sy := sb.Min.Y + (dr.Min.Y - y)
	n := dr.Dx() * BytesPerPixel
	for row := 0; row < dr.Dy(); row++ {
		di := p.PixOffset(dr.Min.X, dr.Min.Y+row)
		si := src.PixOffset(sx, sy+row)
		copy(p.Pix[di:di+n], src.Pix[si:si+n])
	}
}

// Crop returns a copy of the part of p inside r, anchored at (0, 0).
func (p *Image) Crop(r image.Rectangle) *Image {
	r = r.Intersect(p.Rect)
	dst := New(image.Rect(0, 0, r.Dx(), r.Dy()))
	n := r.Dx() * BytesPerPixel
	for row := 0; row < r.Dy(); row++ {
		si := p.PixOffset(r.Min.X, r.Min.Y+row)
		copy(dst.Pix[row*dst.Stride:row*dst.Stride+n], p.Pix[si:si+n])
	}
	return dst
}

// Clear sets every pixel to black.
func (p *Image) Clear() {
	clear(p.Pix)
}

var _ draw.Image = (*Image)(nil)
