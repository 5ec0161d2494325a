package filter

import (
	"errors"
	"math"
)

// BlockSize is the edge length of a pixelation block
const BlockSize = 8

// Errors
var (
	ErrInvalidBuffer = errors.New("invalid image buffer")
	ErrUnknownKind   = errors.New("unknown filter kind")
)

// channelGrade is a per-channel linear color grade, v*scale+offset
type channelGrade struct {
	scale  [3]float64
	offset [3]float64
}

var (
	neonGrade = channelGrade{
		scale: [3]float64{1.5, 1.3, 1.8},
	}
	flareGrade = channelGrade{
		scale:  [3]float64{1.2, 1.1, 0.9},
		offset: [3]float64{30, 20, 40},
	}
)

// Apply runs the color filter for kind over the buffer in place.
// Overlay-only kinds leave the pixels untouched.
func Apply(buf *ImageBuffer, kind Kind) error {
	if buf == nil {
		return ErrInvalidBuffer
	}

	if buf.Width == 0 || buf.Height == 0 {
		return nil
	}

	if err := buf.validate(); err != nil {
		return err
	}

	switch kind {
	case None, Mustache:
	case Neon:
		grade(buf.Pix, neonGrade)
	case Pixelate:
		pixelate(buf, BlockSize)
	case Flare:
		grade(buf.Pix, flareGrade)
	default:
		return ErrUnknownKind
	}

	return nil
}

func grade(pix []uint8, g channelGrade) {
	for i := 0; i < len(pix); i += 4 {
		for c := 0; c < 3; c++ {
			pix[i+c] = clamp(float64(pix[i+c])*g.scale[c] + g.offset[c])
		}
	}
}

// pixelate broadcasts the top-left pixel of every block to the rest of the block,
// clipping blocks at the right and bottom edges
func pixelate(buf *ImageBuffer, size int) {
	stride := buf.Width * 4

	for y := 0; y < buf.Height; y += size {
		maxY := min(y+size, buf.Height)

		for x := 0; x < buf.Width; x += size {
			maxX := min(x+size, buf.Width)

			i := y*stride + x*4
			r, g, b := buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2]

			for py := y; py < maxY; py++ {
				for px := x; px < maxX; px++ {
					pi := py*stride + px*4
					buf.Pix[pi] = r
					buf.Pix[pi+1] = g
					buf.Pix[pi+2] = b
				}
			}
		}
	}
}

// clamp rounds to the nearest integer and clamps to [0, 255]
func clamp(v float64) uint8 {
	v = math.RoundToEven(v)

	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}
