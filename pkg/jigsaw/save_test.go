package jigsaw

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/disintegration/imaging"
)

type invertFilter struct{}

func (invertFilter) Apply(img image.Image) (image.Image, error) {
	return imaging.Invert(img), nil
}

type failingFilter struct{}

func (failingFilter) Apply(image.Image) (image.Image, error) {
	return nil, errors.New("filter crashed")
}

func TestSaveWritesEveryPiece(t *testing.T) {
	dir := t.TempDir()
	g := mustNew(t, solid(100, 100, red), 2, WithSeed(1))
	if err := g.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := g.Save(dir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	want := []string{"0x0.png", "0x1.png", "1x0.png", "1x1.png"}
	if len(names) != len(want) {
		t.Fatalf("files = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("files = %v, want %v", names, want)
			break
		}
	}

	for _, c := range g.Canvases() {
		img, err := imaging.Open(filepath.Join(dir, c.Pos.Filename()))
		if err != nil {
			t.Fatalf("open %s: %v", c.Pos.Filename(), err)
		}
		got := imaging.Clone(img)
		if got.Bounds() != c.Img.Bounds() {
			t.Fatalf("%s bounds = %v, want %v", c.Pos, got.Bounds(), c.Img.Bounds())
		}
		if a, b := opaqueCount(got, got.Bounds()), opaqueCount(c.Img, c.Img.Bounds()); a != b {
			t.Errorf("%s saved opaque pixels = %d, want %d", c.Pos, a, b)
		}
	}
}

func TestSaveMissingDirectory(t *testing.T) {
	g := mustNew(t, solid(20, 20, red), 2)
	err := g.Save(filepath.Join(t.TempDir(), "missing"))
	if !IsKind(err, IOFailure) {
		t.Fatalf("Save() error = %v, want kind %s", err, IOFailure)
	}
	var jerr *Error
	if !errors.As(err, &jerr) || jerr.Piece == nil || *jerr.Piece != (Position{0, 0}) {
		t.Errorf("Save() error should name piece 0x0, got %v", err)
	}
}

func TestSaveAppliesFilter(t *testing.T) {
	dir := t.TempDir()
	g := mustNew(t, solid(20, 20, red), 1, WithFilter(invertFilter{}))
	if err := g.Save(dir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	img, err := imaging.Open(filepath.Join(dir, "0x0.png"))
	if err != nil {
		t.Fatal(err)
	}
	m := g.Margin()
	r, gr, b, _ := img.At(m+1, m+1).RGBA()
	if r != 0 || gr != 0xffff || b != 0xffff {
		t.Errorf("filtered pixel = (%d,%d,%d), want inverted red", r, gr, b)
	}
}

func TestSaveFilterFailure(t *testing.T) {
	dir := t.TempDir()
	g := mustNew(t, solid(20, 20, red), 2, WithFilter(failingFilter{}))
	err := g.Save(dir)
	if !IsKind(err, IOFailure) {
		t.Fatalf("Save() error = %v, want kind %s", err, IOFailure)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("Save() wrote %d files after failing", len(entries))
	}
}
