package render

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// TextStyle controls how captions are drawn
type TextStyle struct {
	// FontSize is the caption size in pixels
	FontSize float64
	Color    color.Color
	// MarginDivisor places captions at height/MarginDivisor from the top
	// and bottom edges
	MarginDivisor float64
}

// DefaultTextStyle is white 30px text placed an eleventh of the height from each edge
func DefaultTextStyle() TextStyle {
	return TextStyle{
		FontSize:      30,
		Color:         color.White,
		MarginDivisor: 11,
	}
}

func (t TextStyle) face() (font.Face, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	size := t.FontSize
	if size <= 0 {
		size = DefaultTextStyle().FontSize
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// CaptionPositions returns the anchor points for the top and bottom captions
func (s *Surface) CaptionPositions() (topX, topY, bottomX, bottomY float64) {
	w, h := s.Size()
	div := s.style.MarginDivisor
	if div <= 0 {
		div = DefaultTextStyle().MarginDivisor
	}
	margin := float64(h) / div
	return float64(w) / 2, margin, float64(w) / 2, float64(h) - margin
}

// DrawCaptions draws the captions centered horizontally and vertically
// middle-anchored on their lines. Empty captions are skipped.
func (s *Surface) DrawCaptions(top, bottom string) {
	c := s.style.Color
	if c == nil {
		c = color.White
	}
	s.dc.SetFontFace(s.face)
	s.dc.SetColor(c)

	tx, ty, bx, by := s.CaptionPositions()
	if top != "" {
		s.dc.DrawStringAnchored(top, tx, ty, 0.5, 0.5)
	}
	if bottom != "" {
		s.dc.DrawStringAnchored(bottom, bx, by, 0.5, 0.5)
	}
}

// MeasureCaption reports the rendered size of a caption in the current style
func (s *Surface) MeasureCaption(text string) (float64, float64) {
	s.dc.SetFontFace(s.face)
	return s.dc.MeasureString(text)
}

// ErrInvalidColor is returned by ParseColor
var ErrInvalidColor = errors.New("invalid color")

// ParseColor accepts "white", "black" or a hex color in #rgb, #rrggbb or
// #rrggbbaa form
func ParseColor(s string) (color.NRGBA, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white":
		return color.NRGBA{255, 255, 255, 255}, nil
	case "black":
		return Black, nil
	}

	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
