package render

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/DMarby/postcard-poodle/internal/filter"
	"github.com/twmb/murmur3"
)

// Output is the kind of image a task produces
type Output int

const (
	// Preview is the filtered and overlaid source image as a PNG
	Preview Output = iota
	// Postcard is the composed postcard as a PNG
	Postcard
)

func (o Output) String() string {
	switch o {
	case Preview:
		return "preview"
	case Postcard:
		return "postcard"
	default:
		return "unknown"
	}
}

// Task is an image rendering task
type Task struct {
	Source  *filter.ImageBuffer
	Filter  filter.Kind
	Caption string
	Output  Output
}

// NewPreview creates a task rendering the filtered source image
func NewPreview(source *filter.ImageBuffer, kind filter.Kind) *Task {
	return &Task{
		Source: source,
		Filter: kind,
		Output: Preview,
	}
}

// NewPostcard creates a task rendering the finished postcard
func NewPostcard(source *filter.ImageBuffer, kind filter.Kind, caption string) *Task {
	return &Task{
		Source:  source,
		Filter:  kind,
		Caption: caption,
		Output:  Postcard,
	}
}

// Key returns a cache key identifying the rendered output of the task
func (t *Task) Key() string {
	h := murmur3.New128()

	var header [32]byte
	binary.LittleEndian.PutUint64(header[0:], uint64(t.Output))
	binary.LittleEndian.PutUint64(header[8:], uint64(t.Filter))
	binary.LittleEndian.PutUint64(header[16:], uint64(t.Source.Width))
	binary.LittleEndian.PutUint64(header[24:], uint64(t.Source.Height))
	h.Write(header[:])
	h.Write(t.Source.Pix)

	// Previews don't carry a caption
	if t.Output == Postcard {
		h.Write([]byte(t.Caption))
	}

	return t.Output.String() + ":" + hex.EncodeToString(h.Sum(nil))
}
