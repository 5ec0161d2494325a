// Package postcard composes a rendered image and a caption into the exported postcard
package postcard

import (
	"bytes"
	"fmt"
	"image"
	"strings"
	"unicode"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/gobold"
)

// Filename is the name the postcard is downloaded as
const Filename = "postcard-poodle.png"

const captionFontSize = 32

var (
	borderColor  = gg.Hex("#e5e5e5")
	captionBand  = gg.Hex("#fafafa")
	captionColor = gg.Hex("#333333")
)

// Compositor draws postcards
type Compositor struct {
	Layout Layout
	font   *text.FontSource
}

// New creates a compositor for the given layout
func New(layout Layout) (*Compositor, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	font, err := text.NewFontSource(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("error loading caption font: %w", err)
	}

	return &Compositor{
		Layout: layout,
		font:   font,
	}, nil
}

// Compose draws the postcard onto a fresh canvas.
// A nil surface means there is nothing to export, and Compose returns nil without drawing.
func (c *Compositor) Compose(surface image.Image, caption string) (image.Image, error) {
	if surface == nil {
		return nil, nil
	}

	dc, err := c.draw(surface, caption)
	if err != nil {
		return nil, err
	}
	defer dc.Close()

	return dc.Image(), nil
}

// Export composes the postcard and encodes it as a PNG.
// A nil surface yields no data and no error.
func (c *Compositor) Export(surface image.Image, caption string) ([]byte, error) {
	if surface == nil {
		return nil, nil
	}

	dc, err := c.draw(surface, caption)
	if err != nil {
		return nil, err
	}
	defer dc.Close()

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("error encoding postcard: %w", err)
	}

	return buf.Bytes(), nil
}

func (c *Compositor) draw(surface image.Image, caption string) (*gg.Context, error) {
	l := c.Layout
	width, height := float64(l.Width), float64(l.Height)

	dc := gg.NewContext(l.Width, l.Height)

	// Background
	dc.ClearWithColor(gg.White)

	// Border
	dc.SetStrokeBrush(gg.Solid(borderColor))
	dc.SetLineWidth(l.BorderWidth)
	dc.DrawRectangle(l.BorderInset, l.BorderInset, width-2*l.BorderInset, height-2*l.BorderInset)
	if err := dc.Stroke(); err != nil {
		dc.Close()
		return nil, fmt.Errorf("error drawing border: %w", err)
	}

	// Photo, stretched to the image rectangle
	if !surface.Bounds().Empty() {
		dc.DrawImageEx(gg.ImageBufFromImage(surface), gg.DrawImageOptions{
			X:             l.Image.X,
			Y:             l.Image.Y,
			DstWidth:      l.Image.Width,
			DstHeight:     l.Image.Height,
			Interpolation: gg.InterpBilinear,
			Opacity:       1,
			BlendMode:     gg.BlendNormal,
		})
	}

	// Caption band
	dc.SetFillBrush(gg.Solid(captionBand))
	dc.DrawRectangle(l.CaptionBand.X, l.CaptionBand.Y, l.CaptionBand.Width, l.CaptionBand.Height)
	if err := dc.Fill(); err != nil {
		dc.Close()
		return nil, fmt.Errorf("error drawing caption band: %w", err)
	}

	if err := c.drawCaption(dc, caption, width/2, l.Baseline); err != nil {
		dc.Close()
		return nil, fmt.Errorf("error drawing caption: %w", err)
	}

	if err := drawPaw(dc, l.GlyphX, l.Baseline); err != nil {
		dc.Close()
		return nil, fmt.Errorf("error drawing paw print: %w", err)
	}

	return dc, nil
}

// drawCaption draws the caption centered on x with its baseline at y.
// Paw print emoji are drawn as vector paws, other runes missing from the font are skipped.
func (c *Compositor) drawCaption(dc *gg.Context, caption string, x, baseline float64) error {
	face := c.font.Face(captionFontSize)
	dc.SetFont(face)

	runs := splitCaption(face, caption)

	var total float64
	for _, run := range runs {
		total += runAdvance(dc, run)
	}

	pen := x - total/2
	for _, run := range runs {
		advance := runAdvance(dc, run)
		if run.paw {
			if err := drawPaw(dc, pen+advance/2, baseline); err != nil {
				return err
			}
		} else {
			dc.SetFillBrush(gg.Solid(captionColor))
			dc.DrawString(run.text, pen, baseline)
		}
		pen += advance
	}

	return nil
}

const (
	pawRune    = '\U0001F43E'
	pawAdvance = 30
)

// captionRun is a stretch of caption text, or a single paw print
type captionRun struct {
	text string
	paw  bool
}

func splitCaption(face text.Face, caption string) []captionRun {
	var runs []captionRun
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			runs = append(runs, captionRun{text: current.String()})
			current.Reset()
		}
	}

	for _, r := range caption {
		switch {
		case r == pawRune:
			flush()
			runs = append(runs, captionRun{paw: true})
		case unicode.IsSpace(r) || face.HasGlyph(r):
			current.WriteRune(r)
		}
	}
	flush()

	return runs
}

func runAdvance(dc *gg.Context, run captionRun) float64 {
	if run.paw {
		return pawAdvance
	}

	w, _ := dc.MeasureString(run.text)
	return w
}

// drawPaw draws a paw print sitting on the baseline, centered on x
func drawPaw(dc *gg.Context, x, baseline float64) error {
	dc.SetFillBrush(gg.Solid(captionColor))

	// Pad
	dc.DrawEllipse(x, baseline-6, 7, 6)

	// Toes
	dc.DrawCircle(x-9, baseline-15, 3)
	dc.DrawCircle(x-3.5, baseline-20, 3)
	dc.DrawCircle(x+3.5, baseline-20, 3)
	dc.DrawCircle(x+9, baseline-15, 3)

	return dc.Fill()
}
