// Package split loads source images and lays them out as an N×N grid of
// equally sized cells.
package split

import (
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
)

// Layout is the cell geometry of an N×N split. Cell sizes are truncated,
// so pixels beyond Count*CellWidth (or Count*CellHeight) are dropped.
type Layout struct {
	Count      int
	CellWidth  int
	CellHeight int
	origin     image.Point
}

// NewLayout computes the layout of bounds cut into n×n cells.
func NewLayout(bounds image.Rectangle, n int) (Layout, error) {
	if n < 1 {
		return Layout{}, fmt.Errorf("piece count must be at least 1, got %d", n)
	}
	w, h := bounds.Dx(), bounds.Dy()
	l := Layout{Count: n, CellWidth: w / n, CellHeight: h / n, origin: bounds.Min}
	if l.CellWidth < 1 || l.CellHeight < 1 {
		return Layout{}, fmt.Errorf("%dx%d image is too small for %d pieces per side", w, h, n)
	}
	return l, nil
}

// Cell returns the source rectangle of the cell at column x, row y.
func (l Layout) Cell(x, y int) image.Rectangle {
	r := image.Rect(x*l.CellWidth, y*l.CellHeight, (x+1)*l.CellWidth, (y+1)*l.CellHeight)
	return r.Add(l.origin)
}

// Load opens and decodes the image at path.
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// PrepareDir removes dir if it exists and creates it empty.
func PrepareDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}
