package jigsaw

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

var red = color.NRGBA{R: 0xff, A: 0xff}

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	return imaging.New(w, h, c)
}

// quadrants returns a w×h image whose four quadrants have distinct colors.
func quadrants(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{A: 0xff}
			if x >= w/2 {
				c.R = 0xff
			}
			if y >= h/2 {
				c.G = 0xff
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func opaqueCount(img *image.NRGBA, r image.Rectangle) int {
	n := 0
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.NRGBAAt(x, y).A != 0 {
				n++
			}
		}
	}
	return n
}

func allBits(v bool) BitFunc {
	return func() bool { return v }
}

func mustNew(t *testing.T, src image.Image, n int, opts ...Option) *Grid {
	t.Helper()
	g, err := New(src, n, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return g
}
