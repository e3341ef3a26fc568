package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/PhantomInTheWire/jigsaw-pipeline/pkg/jigsaw"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	if err := imaging.Save(imaging.New(w, h, color.NRGBA{R: 200, G: 40, B: 40, A: 255}), path); err != nil {
		t.Fatal(err)
	}
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var logs bytes.Buffer
	root := New(&logs, LogInfo).RootCommand()
	root.SetArgs(args)
	root.SetOut(&logs)
	root.SetErr(&logs)
	err := root.ExecuteContext(context.Background())
	return logs.String(), err
}

func TestCut(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "cat.png")
	writePNG(t, src, 60, 40)
	out := filepath.Join(dir, "pieces")
	metricsFile := filepath.Join(dir, "jigsaw.prom")

	if _, err := runRoot(t, src, out, "3", "--seed", "7", "--no-browser", "--metrics-file", metricsFile); err != nil {
		t.Fatalf("cut error = %v", err)
	}

	for x := range 3 {
		for y := range 3 {
			name := jigsaw.Position{X: x, Y: y}.Filename()
			if _, err := os.Stat(filepath.Join(out, name)); err != nil {
				t.Errorf("missing piece %s: %v", name, err)
			}
		}
	}

	b, err := os.ReadFile(filepath.Join(out, reportFile))
	if err != nil {
		t.Fatal(err)
	}
	var report [][]jigsaw.Position
	if err := json.Unmarshal(b, &report); err != nil {
		t.Fatalf("pieces.json: %v", err)
	}
	if len(report) != 3 || report[2][1] != (jigsaw.Position{X: 2, Y: 1}) {
		t.Errorf("pieces.json = %v", report)
	}

	page, err := os.ReadFile(filepath.Join(out, viewerFile))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(page), `src="2x2.png"`) {
		t.Error("index.html does not show piece 2x2")
	}

	prom, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"jigsaw_pieces_built_total 9", "jigsaw_pieces_saved_total 9"} {
		if !strings.Contains(string(prom), want) {
			t.Errorf("metrics missing %q:\n%s", want, prom)
		}
	}
}

func TestCutIsReproducibleWithSeed(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "cat.png")
	writePNG(t, src, 50, 50)

	read := func(out string) []byte {
		if _, err := runRoot(t, src, out, "2", "--seed", "99", "--no-browser"); err != nil {
			t.Fatalf("cut error = %v", err)
		}
		b, err := os.ReadFile(filepath.Join(out, "1x1.png"))
		if err != nil {
			t.Fatal(err)
		}
		return b
	}
	if !bytes.Equal(read(filepath.Join(dir, "a")), read(filepath.Join(dir, "b"))) {
		t.Error("same seed produced different pieces")
	}
}

func TestCutRecreatesOutput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "cat.png")
	writePNG(t, src, 20, 20)
	out := filepath.Join(dir, "pieces")
	if err := os.MkdirAll(out, 0755); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(out, "5x5.png")
	if err := os.WriteFile(stale, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := runRoot(t, src, out, "1", "--no-browser"); err != nil {
		t.Fatalf("cut error = %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale piece survived")
	}
	if _, err := os.Stat(filepath.Join(out, "0x0.png")); err != nil {
		t.Error(err)
	}
}

func TestCutErrors(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "cat.png")
	writePNG(t, src, 20, 20)
	notImage := filepath.Join(dir, "notes.png")
	if err := os.WriteFile(notImage, []byte("not a png"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want jigsaw.Kind
	}{
		{"non numeric count", []string{src, filepath.Join(dir, "a"), "four"}, jigsaw.InvalidConfiguration},
		{"zero count", []string{src, filepath.Join(dir, "b"), "0"}, jigsaw.InvalidConfiguration},
		{"count above size", []string{src, filepath.Join(dir, "c"), "21"}, jigsaw.InvalidConfiguration},
		{"missing image", []string{filepath.Join(dir, "missing.png"), filepath.Join(dir, "d"), "2"}, jigsaw.ImageDecodeFailure},
		{"undecodable image", []string{notImage, filepath.Join(dir, "e"), "2"}, jigsaw.ImageDecodeFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runRoot(t, append(tt.args, "--no-browser")...)
			if !jigsaw.IsKind(err, tt.want) {
				t.Errorf("error = %v, want kind %s", err, tt.want)
			}
		})
	}
}

func TestCutLeavesOutputAloneOnDecodeFailure(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "pieces")
	if err := os.MkdirAll(out, 0755); err != nil {
		t.Fatal(err)
	}
	keep := filepath.Join(out, "keep.txt")
	if err := os.WriteFile(keep, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := runRoot(t, filepath.Join(dir, "missing.png"), out, "2", "--no-browser"); err == nil {
		t.Fatal("cut error = nil, want error")
	}
	if _, err := os.Stat(keep); err != nil {
		t.Errorf("output was cleared: %v", err)
	}
}

func TestCutArgs(t *testing.T) {
	if _, err := runRoot(t, "only-one.png"); err == nil {
		t.Error("cut with one argument should fail")
	}
}

func TestVersionCommand(t *testing.T) {
	SetVersion("v1.2.3", "abc123", "2025-01-01")
	t.Cleanup(func() { SetVersion("dev", "none", "unknown") })

	out, err := runRoot(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.Contains(out, "jigsaw v1.2.3") || !strings.Contains(out, "commit: abc123") {
		t.Errorf("version output = %q", out)
	}
}
