package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"mime"
	"strings"

	"github.com/DMarby/postcard-poodle/internal/filter"
	"github.com/disintegration/imaging"

	// Register the WebP decoder alongside the ones imaging pulls in
	_ "golang.org/x/image/webp"
)

// MaxPixels is the largest source image accepted, in pixels
const MaxPixels = 50_000_000

// Errors
var (
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrDecode           = errors.New("unable to decode image")
	ErrTooLarge         = errors.New("image is too large")
)

// Decode decodes an uploaded image into a buffer, applying EXIF orientation.
// The content type must be an image/* media type.
func Decode(contentType string, data []byte) (*filter.ImageBuffer, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMedia, contentType)
	}

	config, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDecode, err)
	}

	if config.Width*config.Height > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, config.Width, config.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDecode, err)
	}

	return filter.FromImage(img), nil
}
