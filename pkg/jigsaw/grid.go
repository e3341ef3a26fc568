// Package jigsaw cuts a raster image into an N×N grid of interlocking
// puzzle pieces.
//
// Building a Grid crops every cell of the source and pads it with a
// transparent margin. Connect then walks every interior edge once and moves
// a square tab of material from one side of the edge into the other side's
// margin, so that neighboring pieces interlock. Save writes each piece as
// <x>x<y>.png.
//
//	g, err := jigsaw.New(img, 4, jigsaw.WithSeed(42))
//	if err != nil {
//		return err
//	}
//	if err := g.Connect(); err != nil {
//		return err
//	}
//	return g.Save("out")
package jigsaw

import (
	"image"
	"image/color"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"

	"github.com/PhantomInTheWire/jigsaw-pipeline/pkg/observability"
	"github.com/PhantomInTheWire/jigsaw-pipeline/pkg/split"
)

// BitSource supplies the coin flips that orient connectors.
type BitSource interface {
	Bit() bool
}

// BitFunc adapts a plain function to BitSource.
type BitFunc func() bool

func (f BitFunc) Bit() bool { return f() }

type randBits struct{ r *rand.Rand }

func (b randBits) Bit() bool { return b.r.Uint64()&1 == 1 }

// Filter transforms a finished piece right before it is written.
type Filter interface {
	Apply(img image.Image) (image.Image, error)
}

// Option configures a Grid.
type Option func(*Grid)

// WithSeed makes connector orientation reproducible.
func WithSeed(seed uint64) Option {
	return func(g *Grid) { g.bits = randBits{rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))} }
}

// WithBits sets the source of connector coin flips.
func WithBits(b BitSource) Option {
	return func(g *Grid) {
		if b != nil {
			g.bits = b
		}
	}
}

// WithLogger sets the logger used for progress and debug output.
func WithLogger(l *log.Logger) Option {
	return func(g *Grid) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithFilter applies f to every piece on Save.
func WithFilter(f Filter) Option {
	return func(g *Grid) { g.filter = f }
}

// Grid owns every piece canvas of one puzzle.
type Grid struct {
	layout    split.Layout
	margin    int
	canvases  []Canvas // row-major, index y*n+x
	connected bool

	bits   BitSource
	logger *log.Logger
	filter Filter
}

// Open loads the image at path and builds a grid from it.
func Open(path string, pieceCount int, opts ...Option) (*Grid, error) {
	src, err := split.Load(path)
	if err != nil {
		return nil, Wrap(ImageDecodeFailure, err, "load source image")
	}
	return New(src, pieceCount, opts...)
}

// New crops src into pieceCount×pieceCount cells and pads each with a
// transparent margin. No connectors are cut yet.
func New(src image.Image, pieceCount int, opts ...Option) (*Grid, error) {
	if src == nil {
		return nil, newError(InvalidConfiguration, "source image is nil")
	}
	if pieceCount < 1 {
		return nil, newError(InvalidConfiguration, "piece count must be at least 1, got %d", pieceCount)
	}
	layout, err := split.NewLayout(src.Bounds(), pieceCount)
	if err != nil {
		return nil, Wrap(InvalidConfiguration, err, "compute piece size")
	}

	g := &Grid{
		layout: layout,
		margin: (layout.CellWidth + layout.CellHeight) / 2 / 5,
		logger: log.Default(),
		bits:   randBits{rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))},
	}
	for _, opt := range opts {
		opt(g)
	}

	start := time.Now()
	w := layout.CellWidth + 2*g.margin
	h := layout.CellHeight + 2*g.margin
	g.canvases = make([]Canvas, 0, pieceCount*pieceCount)
	for y := 0; y < pieceCount; y++ {
		for x := 0; x < pieceCount; x++ {
			crop := imaging.Crop(src, layout.Cell(x, y))
			padded := imaging.New(w, h, color.NRGBA{})
			padded = imaging.Paste(padded, crop, image.Pt(g.margin, g.margin))
			g.canvases = append(g.canvases, Canvas{Pos: Position{X: x, Y: y}, Img: padded})
		}
	}

	g.logger.Debug("built pieces",
		"count", len(g.canvases), "piece", image.Pt(layout.CellWidth, layout.CellHeight), "margin", g.margin)
	observability.Jigsaw().OnBuildComplete(len(g.canvases), time.Since(start))
	return g, nil
}

func (g *Grid) PieceCount() int  { return g.layout.Count }
func (g *Grid) PieceWidth() int  { return g.layout.CellWidth }
func (g *Grid) PieceHeight() int { return g.layout.CellHeight }
func (g *Grid) Margin() int      { return g.margin }

// CanvasSize is the padded size shared by every piece.
func (g *Grid) CanvasSize() image.Point {
	return image.Pt(g.layout.CellWidth+2*g.margin, g.layout.CellHeight+2*g.margin)
}

// At returns the canvas at column x, row y, or nil outside the grid.
func (g *Grid) At(x, y int) *Canvas {
	n := g.layout.Count
	if x < 0 || y < 0 || x >= n || y >= n {
		return nil
	}
	return &g.canvases[y*n+x]
}

// Canvases returns every canvas in row-major order.
func (g *Grid) Canvases() []*Canvas {
	out := make([]*Canvas, len(g.canvases))
	for i := range g.canvases {
		out[i] = &g.canvases[i]
	}
	return out
}

func (g *Grid) neighbor(p Position, dx, dy int) (*Canvas, bool) {
	c := g.At(p.X+dx, p.Y+dy)
	return c, c != nil
}

func (g *Grid) Left(p Position) (*Canvas, bool)  { return g.neighbor(p, -1, 0) }
func (g *Grid) Right(p Position) (*Canvas, bool) { return g.neighbor(p, 1, 0) }
func (g *Grid) Up(p Position) (*Canvas, bool)    { return g.neighbor(p, 0, -1) }
func (g *Grid) Down(p Position) (*Canvas, bool)  { return g.neighbor(p, 0, 1) }

// Pieces reports every piece position, one row per grid row.
func (g *Grid) Pieces() [][]Position {
	n := g.layout.Count
	rows := make([][]Position, n)
	for y := range rows {
		rows[y] = make([]Position, n)
		for x := range rows[y] {
			rows[y][x] = Position{X: x, Y: y}
		}
	}
	return rows
}
