package render

import (
	"fmt"
	"image"

	"github.com/DMarby/postcard-poodle/internal/filter"
	"github.com/DMarby/postcard-poodle/internal/overlay"
)

// Surface runs the pixel pipeline on a copy of the source: the filter, then its overlays.
// The source is left untouched.
func Surface(source *filter.ImageBuffer, kind filter.Kind) (image.Image, error) {
	if source == nil {
		return nil, filter.ErrInvalidBuffer
	}

	buf := source.Clone()
	if err := filter.Apply(buf, kind); err != nil {
		return nil, fmt.Errorf("error applying %s filter: %w", kind, err)
	}

	if buf.Empty() {
		return buf.Image(), nil
	}

	s := overlay.NewSurface(buf)
	defer s.Close()

	if err := overlay.Draw(s, kind); err != nil {
		return nil, fmt.Errorf("error drawing %s overlay: %w", kind, err)
	}

	return s.Image(), nil
}
