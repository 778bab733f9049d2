// Package fit computes how a piece of content is scaled and placed inside a
// fixed-size container so that it keeps its aspect ratio, never exceeds the
// container on either axis, and is centered on the axis with slack.
package fit

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// ErrInvalidDimension is returned when a dimension is not a positive finite number.
var ErrInvalidDimension = errors.New("invalid dimension")

// Orientation classifies content by its aspect ratio
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
	Square    Orientation = "square"
)

// Result is the scaled size and top-left placement of the content
type Result struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
}

// Fit scales the content uniformly to the largest size that fits inside the
// container and centers it on whichever axis has slack.
//
// Content narrower than the container (relative to its height) fills the
// container vertically; everything else, including an exact ratio match,
// fills it horizontally. On a square container this is the same as asking
// whether the content's aspect ratio is below 1.
func Fit(containerWidth, containerHeight, contentWidth, contentHeight float64) (Result, error) {
	if err := validate("container width", containerWidth); err != nil {
		return Result{}, err
	}
	if err := validate("container height", containerHeight); err != nil {
		return Result{}, err
	}
	if err := validate("content width", contentWidth); err != nil {
		return Result{}, err
	}
	if err := validate("content height", contentHeight); err != nil {
		return Result{}, err
	}

	aspectRatio := contentWidth / contentHeight

	var r Result
	if aspectRatio < containerWidth/containerHeight {
		r.Height = containerHeight
		r.Width = containerHeight * aspectRatio
		r.OffsetX = (containerWidth - r.Width) / 2
	} else {
		r.Width = containerWidth
		r.Height = containerWidth / aspectRatio
		r.OffsetY = (containerHeight - r.Height) / 2
	}
	return r, nil
}

// Rect rounds the result to whole pixels for drawing on a raster surface
func (r Result) Rect() image.Rectangle {
	x0 := int(math.Round(r.OffsetX))
	y0 := int(math.Round(r.OffsetY))
	w := int(math.Round(r.Width))
	h := int(math.Round(r.Height))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return image.Rect(x0, y0, x0+w, y0+h)
}

// Scale returns the uniform scale factor applied to content of the given width
func (r Result) Scale(contentWidth float64) float64 {
	if contentWidth == 0 {
		return 0
	}
	return r.Width / contentWidth
}

// OrientationOf classifies content dimensions
func OrientationOf(width, height float64) Orientation {
	switch {
	case width < height:
		return Portrait
	case width > height:
		return Landscape
	default:
		return Square
	}
}

func validate(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fmt.Errorf("%w: %s must be a positive finite number, got %v", ErrInvalidDimension, name, v)
	}
	return nil
}
