package overlay

import (
	"image"

	"github.com/DMarby/postcard-poodle/internal/filter"
	"github.com/gogpu/gg"
)

// Surface is a drawing context backed by the pixels of a filtered image
type Surface struct {
	pixmap *gg.Pixmap
	dc     *gg.Context
}

// NewSurface copies the buffer into a new drawing surface
func NewSurface(buf *filter.ImageBuffer) *Surface {
	pixmap := gg.NewPixmap(buf.Width, buf.Height)
	copy(pixmap.Data(), buf.Pix)

	return &Surface{
		pixmap: pixmap,
		dc:     gg.NewContext(buf.Width, buf.Height, gg.WithPixmap(pixmap)),
	}
}

// Width returns the width of the surface
func (s *Surface) Width() int {
	return s.pixmap.Width()
}

// Height returns the height of the surface
func (s *Surface) Height() int {
	return s.pixmap.Height()
}

// Context returns the drawing context of the surface
func (s *Surface) Context() *gg.Context {
	return s.dc
}

// Image returns a copy of the surface as a non-premultiplied image
func (s *Surface) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, s.pixmap.Width(), s.pixmap.Height()))
	copy(img.Pix, s.pixmap.Data())
	return img
}

// Close releases the drawing context
func (s *Surface) Close() error {
	return s.dc.Close()
}

// fillBrush composites a brush over every pixel of the surface using source-over.
// The software rasterizer only fills solid paints, so gradients are sampled per pixel.
func (s *Surface) fillBrush(brush gg.Brush) {
	width, height := s.pixmap.Width(), s.pixmap.Height()

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			src := brush.ColorAt(float64(x)+0.5, float64(y)+0.5)
			if src.A <= 0 {
				continue
			}

			dst := s.pixmap.GetPixel(x, y)
			outA := src.A + dst.A*(1-src.A)
			if outA <= 0 {
				continue
			}

			s.pixmap.SetPixel(x, y, gg.RGBA{
				R: (src.R*src.A + dst.R*dst.A*(1-src.A)) / outA,
				G: (src.G*src.A + dst.G*dst.A*(1-src.A)) / outA,
				B: (src.B*src.A + dst.B*dst.A*(1-src.A)) / outA,
				A: outA,
			})
		}
	}
}
