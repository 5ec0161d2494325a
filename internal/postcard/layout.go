package postcard

import (
	"errors"
	"image"
)

// Rect is a rectangle in canvas units
type Rect struct {
	X, Y, Width, Height float64
}

func (r Rect) bounds() image.Rectangle {
	return image.Rect(int(r.X), int(r.Y), int(r.X+r.Width), int(r.Y+r.Height))
}

// Layout is the fixed geometry of a postcard
type Layout struct {
	Width       int
	Height      int
	BorderInset float64
	BorderWidth float64
	Image       Rect
	CaptionBand Rect
	Baseline    float64 // Caption baseline
	GlyphX      float64 // Horizontal center of the paw print
}

// DefaultLayout is the standard 1200x800 postcard
var DefaultLayout = Layout{
	Width:       1200,
	Height:      800,
	BorderInset: 20,
	BorderWidth: 3,
	Image:       Rect{50, 50, 1200 - 100, 800 - 200},
	CaptionBand: Rect{50, 800 - 130, 1200 - 100, 80},
	Baseline:    800 - 75,
	GlyphX:      1200 - 100,
}

// Errors
var (
	ErrLayoutOverflow = errors.New("layout does not fit inside the canvas border")
	ErrLayoutOverlap  = errors.New("image overlaps the caption band")
)

// Validate checks that the image and caption band fit inside the border without overlapping
func (l Layout) Validate() error {
	inner := image.Rect(int(l.BorderInset), int(l.BorderInset), l.Width-int(l.BorderInset), l.Height-int(l.BorderInset))

	imageRect := l.Image.bounds()
	band := l.CaptionBand.bounds()

	if imageRect.Empty() || band.Empty() || !imageRect.In(inner) || !band.In(inner) {
		return ErrLayoutOverflow
	}

	if imageRect.Overlaps(band) {
		return ErrLayoutOverlap
	}

	return nil
}
