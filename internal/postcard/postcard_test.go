package postcard_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/DMarby/postcard-poodle/internal/postcard"
)

func solid(width, height int, c color.NRGBA) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func near(a, b color.Color, tolerance int) bool {
	ar, ag, ab, aa := a.RGBA()
	br, bg, bb, ba := b.RGBA()
	for _, d := range []int{int(ar>>8) - int(br>>8), int(ag>>8) - int(bg>>8), int(ab>>8) - int(bb>>8), int(aa>>8) - int(ba>>8)} {
		if d > tolerance || d < -tolerance {
			return false
		}
	}
	return true
}

func setup(t *testing.T) *postcard.Compositor {
	t.Helper()

	compositor, err := postcard.New(postcard.DefaultLayout)
	if err != nil {
		t.Fatal(err)
	}

	return compositor
}

func TestExportWithoutImage(t *testing.T) {
	compositor := setup(t)

	data, err := compositor.Export(nil, "Wish you were here!")
	if err != nil {
		t.Fatal(err)
	}

	if data != nil {
		t.Errorf("expected no data, got %d bytes", len(data))
	}

	img, err := compositor.Compose(nil, "Wish you were here!")
	if err != nil || img != nil {
		t.Errorf("expected nothing to be composed, got %v, %v", img, err)
	}
}

func TestExportDimensions(t *testing.T) {
	compositor := setup(t)

	tests := []struct {
		Name   string
		Source image.Image
	}{
		{"landscape", solid(300, 100, color.NRGBA{255, 0, 0, 255})},
		{"portrait", solid(90, 400, color.NRGBA{255, 0, 0, 255})},
		{"square", solid(64, 64, color.NRGBA{255, 0, 0, 255})},
		{"single pixel", solid(1, 1, color.NRGBA{255, 0, 0, 255})},
	}

	for _, test := range tests {
		data, err := compositor.Export(test.Source, "Hi 🐾")
		if err != nil {
			t.Errorf("%s: %s", test.Name, err)
			continue
		}

		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Errorf("%s: %s", test.Name, err)
			continue
		}

		if bounds := img.Bounds(); bounds.Dx() != 1200 || bounds.Dy() != 800 {
			t.Errorf("%s: wrong dimensions %v", test.Name, bounds)
		}
	}
}

func TestComposeLayout(t *testing.T) {
	compositor := setup(t)

	img, err := compositor.Compose(solid(120, 80, color.NRGBA{255, 0, 0, 255}), "")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		Name     string
		X, Y     int
		Expected color.Color
	}{
		{"background", 5, 5, color.NRGBA{255, 255, 255, 255}},
		{"border", 20, 400, color.NRGBA{229, 229, 229, 255}},
		{"inside border", 35, 400, color.NRGBA{255, 255, 255, 255}},
		{"photo", 600, 350, color.NRGBA{255, 0, 0, 255}},
		{"photo corner", 52, 52, color.NRGBA{255, 0, 0, 255}},
		{"gap below photo", 600, 660, color.NRGBA{255, 255, 255, 255}},
		{"caption band", 60, 680, color.NRGBA{250, 250, 250, 255}},
		{"paw pad", 1100, 719, color.NRGBA{51, 51, 51, 255}},
	}

	for _, test := range tests {
		if got := img.At(test.X, test.Y); !near(got, test.Expected, 8) {
			t.Errorf("%s: wrong color %v", test.Name, got)
		}
	}
}

// inkRows returns the first and last rows below the photo holding caption colored pixels within [x0, x1)
func inkRows(img image.Image, x0, x1 int) (first, last int) {
	first, last = -1, -1
	for y := 650; y < img.Bounds().Dy(); y++ {
		for x := x0; x < x1; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			if r>>8 < 160 && g>>8 < 160 && b>>8 < 160 {
				if first == -1 {
					first = y
				}
				last = y
				break
			}
		}
	}
	return first, last
}

func TestCaptionPlacement(t *testing.T) {
	compositor := setup(t)
	layout := postcard.DefaultLayout
	baseline := int(layout.Baseline)
	bandTop := int(layout.CaptionBand.Y)
	bandBottom := int(layout.CaptionBand.Y + layout.CaptionBand.Height)

	tests := []struct {
		Name    string
		Caption string
		MaxRow  int
	}{
		{"capitals sit on the baseline", "HHHH", baseline + 1},
		{"descenders stay inside the band", "Wish you were here!", bandBottom - 1},
	}

	for _, test := range tests {
		img, err := compositor.Compose(solid(120, 80, color.NRGBA{255, 0, 0, 255}), test.Caption)
		if err != nil {
			t.Fatal(err)
		}

		first, last := inkRows(img, 300, 900)
		if first == -1 {
			t.Errorf("%s: caption was not drawn", test.Name)
			continue
		}

		if first < bandTop || last > test.MaxRow {
			t.Errorf("%s: ink rows [%d,%d] outside [%d,%d]", test.Name, first, last, bandTop, test.MaxRow)
		}
	}
}

func TestCaptionPaw(t *testing.T) {
	compositor := setup(t)

	img, err := compositor.Compose(solid(120, 80, color.NRGBA{255, 0, 0, 255}), "🐾")
	if err != nil {
		t.Fatal(err)
	}

	// The pad of a vector paw is filled where a missing glyph box would be hollow
	if got := img.At(600, 719); !near(got, color.NRGBA{51, 51, 51, 255}, 8) {
		t.Errorf("wrong paw pad color %v", got)
	}

	if first, last := inkRows(img, 560, 640); first == -1 || last > int(postcard.DefaultLayout.Baseline)+1 {
		t.Errorf("paw ink rows [%d,%d] do not sit on the baseline", first, last)
	}
}

func TestLayoutValidate(t *testing.T) {
	overlapping := postcard.DefaultLayout
	overlapping.Image.Height = 700

	overflowing := postcard.DefaultLayout
	overflowing.CaptionBand.Y = 760

	tests := []struct {
		Name          string
		Layout        postcard.Layout
		ExpectedError error
	}{
		{"default", postcard.DefaultLayout, nil},
		{"image overlaps caption band", overlapping, postcard.ErrLayoutOverlap},
		{"caption band outside border", overflowing, postcard.ErrLayoutOverflow},
	}

	for _, test := range tests {
		if err := test.Layout.Validate(); !errors.Is(err, test.ExpectedError) {
			t.Errorf("%s: wrong error %v", test.Name, err)
		}
	}

	if _, err := postcard.New(overflowing); err == nil {
		t.Error("expected an invalid layout to be rejected")
	}
}
