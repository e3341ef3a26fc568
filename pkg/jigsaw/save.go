package jigsaw

import (
	"image"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"

	"github.com/PhantomInTheWire/jigsaw-pipeline/pkg/observability"
)

// Save writes every piece to dir as <x>x<y>.png in row-major order. The
// directory must already exist. The first failure stops the batch and is
// returned as an IOFailure naming the piece.
func (g *Grid) Save(dir string) (err error) {
	start := time.Now()
	saved := 0
	defer func() {
		observability.Jigsaw().OnSaveComplete(saved, time.Since(start), err)
	}()

	for i := range g.canvases {
		c := &g.canvases[i]
		if err := g.savePiece(dir, c); err != nil {
			return err
		}
		saved++
		observability.Jigsaw().OnPieceSaved(c.Pos.X, c.Pos.Y)
	}
	g.logger.Info("saved pieces", "count", saved, "dir", dir)
	return nil
}

func (g *Grid) savePiece(dir string, c *Canvas) error {
	pos := c.Pos
	var img image.Image = c.Img
	if g.filter != nil {
		filtered, err := g.filter.Apply(img)
		if err != nil {
			return &Error{Kind: IOFailure, Piece: &pos, Message: "apply filter", Cause: err}
		}
		img = filtered
	}

	path := filepath.Join(dir, pos.Filename())
	if err := imaging.Save(img, path); err != nil {
		return &Error{Kind: IOFailure, Piece: &pos, Message: "write " + path, Cause: err}
	}
	g.logger.Debug("saved piece", "piece", pos, "path", path)
	return nil
}
