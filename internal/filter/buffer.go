package filter

import (
	"image"

	"github.com/disintegration/imaging"
)

// ImageBuffer is a row-major buffer of non-premultiplied RGBA samples
type ImageBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewImageBuffer allocates a transparent buffer of the given size
func NewImageBuffer(width, height int) *ImageBuffer {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}

	return &ImageBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*4),
	}
}

// FromImage copies an image into a new buffer
func FromImage(img image.Image) *ImageBuffer {
	nrgba := imaging.Clone(img)
	bounds := nrgba.Bounds()

	return &ImageBuffer{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Pix:    nrgba.Pix,
	}
}

// Clone returns a deep copy of the buffer
func (b *ImageBuffer) Clone() *ImageBuffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)

	return &ImageBuffer{
		Width:  b.Width,
		Height: b.Height,
		Pix:    pix,
	}
}

// Image returns an image.NRGBA view sharing the buffer's pixels
func (b *ImageBuffer) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.Pix,
		Stride: b.Width * 4,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// Empty reports whether the buffer has no pixels
func (b *ImageBuffer) Empty() bool {
	return b.Width == 0 || b.Height == 0
}

func (b *ImageBuffer) validate() error {
	if b.Width < 0 || b.Height < 0 || len(b.Pix) != b.Width*b.Height*4 {
		return ErrInvalidBuffer
	}

	return nil
}
