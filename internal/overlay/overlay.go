// Package overlay draws the vector decorations that sit on top of a filtered image.
//
// Every coordinate is a fraction of the surface size so the decorations scale with
// the uploaded photo.
package overlay

import (
	"fmt"

	"github.com/DMarby/postcard-poodle/internal/filter"
	"github.com/gogpu/gg"
)

// Monocle stroke width in pixels
const monocleLineWidth = 4

var (
	mustacheColor = gg.Black
	monocleColor  = gg.Hex("#333333")

	flareCenter = gg.RGBA2(1, 1, 200.0/255, 0.6)
	flarePeach  = gg.RGBA2(1, 200.0/255, 150.0/255, 0.3)
	flareEdge   = gg.RGBA2(1, 1, 1, 0)
)

// Draw draws the overlays for kind onto the surface, mustache first and lens flare second
func Draw(s *Surface, kind filter.Kind) error {
	if s.Width() == 0 || s.Height() == 0 {
		return nil
	}

	if err := drawMustache(s, kind); err != nil {
		return fmt.Errorf("error drawing mustache: %w", err)
	}

	drawLensFlare(s, kind)

	return nil
}

func drawMustache(s *Surface, kind filter.Kind) error {
	if kind != filter.Mustache {
		return nil
	}

	dc := s.Context()
	width, height := float64(s.Width()), float64(s.Height())

	mustacheY := height * 0.55
	rx := width * 0.15
	ry := height * 0.04

	dc.SetFillBrush(gg.Solid(mustacheColor))
	dc.DrawEllipse(width*0.4, mustacheY, rx, ry)
	dc.DrawEllipse(width*0.6, mustacheY, rx, ry)
	if err := dc.Fill(); err != nil {
		return err
	}

	// Monocle
	monocleX := width * 0.35
	monocleY := height * 0.4
	monocleRadius := width * 0.08

	dc.SetStrokeBrush(gg.Solid(monocleColor))
	dc.SetLineWidth(monocleLineWidth)
	dc.DrawCircle(monocleX, monocleY, monocleRadius)
	if err := dc.Stroke(); err != nil {
		return err
	}

	// Chain
	dc.DrawLine(monocleX+monocleRadius, monocleY, width*0.5, height*0.5)
	return dc.Stroke()
}

func drawLensFlare(s *Surface, kind filter.Kind) {
	if kind != filter.Flare {
		return
	}

	width, height := float64(s.Width()), float64(s.Height())

	glow := gg.NewRadialGradientBrush(width*0.7, height*0.3, 0, width*0.4).
		AddColorStop(0, flareCenter).
		AddColorStop(0.3, flarePeach).
		AddColorStop(1, flareEdge)

	s.fillBrush(glow)
}
