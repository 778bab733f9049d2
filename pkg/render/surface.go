// Package render implements the fixed-size drawing surface that memes are
// composed on: letterboxed image placement, caption text and encoding.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"github.com/menta2k/meme-generator/pkg/fit"
)

// Default surface dimensions
const (
	DefaultWidth  = 400
	DefaultHeight = 400
)

// ErrInvalidSize is returned for surfaces without a positive width and height
var ErrInvalidSize = errors.New("surface size must be positive")

// Letterbox colors
var (
	Black       = color.NRGBA{0, 0, 0, 255}
	Transparent = color.NRGBA{0, 0, 0, 0}
)

// Surface is a fixed-size raster target
type Surface struct {
	dc    *gg.Context
	style TextStyle
	face  font.Face
}

// NewSurface creates a transparent surface of the given size
func NewSurface(width, height int, style TextStyle) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	face, err := style.face()
	if err != nil {
		return nil, fmt.Errorf("failed to load caption font: %w", err)
	}

	s := &Surface{
		dc:    gg.NewContext(width, height),
		style: style,
		face:  face,
	}
	s.Clear()
	return s, nil
}

// Size returns the surface dimensions in pixels
func (s *Surface) Size() (int, int) {
	return s.dc.Width(), s.dc.Height()
}

// Clear resets every pixel to transparent
func (s *Surface) Clear() {
	s.dc.SetColor(Transparent)
	s.dc.Clear()
}

// Letterbox fills the whole surface so that areas the image does not cover
// show as borders
func (s *Surface) Letterbox(c color.Color) {
	s.dc.SetColor(c)
	s.dc.Clear()
}

// DrawFitted scales img to fit the surface and draws it centered
func (s *Surface) DrawFitted(img image.Image) (fit.Result, error) {
	w, h := s.Size()
	b := img.Bounds()

	result, err := fit.Fit(float64(w), float64(h), float64(b.Dx()), float64(b.Dy()))
	if err != nil {
		return fit.Result{}, err
	}

	rect := result.Rect()
	scaled := imaging.Resize(img, rect.Dx(), rect.Dy(), imaging.Lanczos)
	s.dc.DrawImage(scaled, rect.Min.X, rect.Min.Y)

	return result, nil
}

// Compose replaces the surface contents with img on a black letterbox
func (s *Surface) Compose(img image.Image) (fit.Result, error) {
	s.Clear()
	s.Letterbox(Black)
	return s.DrawFitted(img)
}

// Image returns a copy of the current raster
func (s *Surface) Image() *image.NRGBA {
	return imaging.Clone(s.dc.Image())
}
