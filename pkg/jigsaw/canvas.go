package jigsaw

import (
	"fmt"
	"image"
	"image/draw"
)

// Position is a piece's place in the grid; X is the column, Y the row.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) String() string { return fmt.Sprintf("%dx%d", p.X, p.Y) }

// Filename is the file a piece is saved under.
func (p Position) Filename() string { return p.String() + ".png" }

// Canvas is one piece's padded buffer. The Grid owns every Canvas; neighbors
// are resolved through the Grid by position.
type Canvas struct {
	Pos Position
	Img *image.NRGBA
}

// Extract returns the pixels under poly (translated by off) as a new image
// cropped to the polygon's bounding box. RGB is kept as is; alpha is the
// polygon mask, opaque inside and zero outside.
func (c *Canvas) Extract(poly Polygon, off image.Point) *image.NRGBA {
	placed := poly.Translate(off)
	return c.extract(placed, placed.Mask(c.Img.Bounds()))
}

func (c *Canvas) extract(placed Polygon, mask *image.Alpha) *image.NRGBA {
	box := placed.Bounds()
	tab := image.NewNRGBA(image.Rect(0, 0, box.Dx(), box.Dy()))
	src := box.Intersect(c.Img.Bounds())
	for y := src.Min.Y; y < src.Max.Y; y++ {
		for x := src.Min.X; x < src.Max.X; x++ {
			si := c.Img.PixOffset(x, y)
			di := tab.PixOffset(x-box.Min.X, y-box.Min.Y)
			copy(tab.Pix[di:di+3], c.Img.Pix[si:si+3])
			tab.Pix[di+3] = mask.AlphaAt(x, y).A
		}
	}
	return tab
}

// Cut extracts poly at off and then clears that region of the canvas.
func (c *Canvas) Cut(poly Polygon, off image.Point) *image.NRGBA {
	placed := poly.Translate(off)
	mask := placed.Mask(c.Img.Bounds())
	tab := c.extract(placed, mask)
	erase(c.Img, mask)
	return tab
}

// Paste overwrites the canvas at the bounding box of poly (translated by off)
// with tab.
func (c *Canvas) Paste(tab image.Image, poly Polygon, off image.Point) {
	box := poly.Translate(off).Bounds()
	draw.Draw(c.Img, box, tab, tab.Bounds().Min, draw.Src)
}

// DrawMerge cuts poly out of donor at donorOff and, when receiver is not nil,
// pastes the cut material onto receiver at receiverOff. The cut tab is
// returned either way.
func DrawMerge(poly Polygon, donor, receiver *Canvas, donorOff, receiverOff image.Point) *image.NRGBA {
	tab := donor.Cut(poly, donorOff)
	if receiver != nil {
		receiver.Paste(tab, poly, receiverOff)
	}
	return tab
}
