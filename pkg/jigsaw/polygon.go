package jigsaw

import (
	"image"
	"image/color"

	"golang.org/x/image/vector"
)

// Polygon is a closed outline in canvas pixel coordinates.
type Polygon []image.Point

// Tab returns the connector outline: a square of side m anchored at the origin.
func Tab(m int) Polygon {
	return Polygon{{0, 0}, {m, 0}, {m, m}, {0, m}}
}

// Translate returns a copy of p moved by off.
func (p Polygon) Translate(off image.Point) Polygon {
	out := make(Polygon, len(p))
	for i, v := range p {
		out[i] = v.Add(off)
	}
	return out
}

// Bounds is the tight box around p's vertices.
func (p Polygon) Bounds() image.Rectangle {
	if len(p) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: p[0], Max: p[0]}
	for _, v := range p[1:] {
		r.Min.X = min(r.Min.X, v.X)
		r.Min.Y = min(r.Min.Y, v.Y)
		r.Max.X = max(r.Max.X, v.X)
		r.Max.Y = max(r.Max.Y, v.Y)
	}
	return r
}

// Mask rasterizes p into a binary alpha mask covering bounds. Pixels whose
// coverage is at least half are fully opaque, everything else is zero.
func (p Polygon) Mask(bounds image.Rectangle) *image.Alpha {
	mask := image.NewAlpha(bounds)
	box := p.Bounds()
	if len(p) < 3 || box.Empty() || bounds.Empty() {
		return mask
	}

	// Rasterize in the polygon's own box so no vertex falls outside the
	// rasterizer, then copy the visible part into the mask.
	z := vector.NewRasterizer(box.Dx(), box.Dy())
	z.MoveTo(float32(p[0].X-box.Min.X), float32(p[0].Y-box.Min.Y))
	for _, v := range p[1:] {
		z.LineTo(float32(v.X-box.Min.X), float32(v.Y-box.Min.Y))
	}
	z.ClosePath()
	cover := image.NewAlpha(image.Rect(0, 0, box.Dx(), box.Dy()))
	z.Draw(cover, cover.Bounds(), image.Opaque, image.Point{})

	visible := box.Intersect(bounds)
	for y := visible.Min.Y; y < visible.Max.Y; y++ {
		for x := visible.Min.X; x < visible.Max.X; x++ {
			if cover.AlphaAt(x-box.Min.X, y-box.Min.Y).A >= 0x80 {
				mask.SetAlpha(x, y, color.Alpha{A: 0xff})
			}
		}
	}
	return mask
}

// erase clears every pixel of dst that is set in mask and leaves the rest
// untouched.
func erase(dst *image.NRGBA, mask *image.Alpha) {
	r := mask.Bounds().Intersect(dst.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if mask.AlphaAt(x, y).A == 0 {
				continue
			}
			i := dst.PixOffset(x, y)
			dst.Pix[i+0], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3] = 0, 0, 0, 0
		}
	}
}
