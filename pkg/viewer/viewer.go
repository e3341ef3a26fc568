// Package viewer writes the HTML page that lays out saved pieces and opens
// it in a browser.
package viewer

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/PhantomInTheWire/jigsaw-pipeline/pkg/jigsaw"
)

// Placeholder is replaced by the piece count in custom templates.
const Placeholder = "{{ piece_count }}"

//go:embed index.html.tmpl
var defaultTemplate string

var page = template.Must(template.New("index").Parse(defaultTemplate))

// Data is what the built-in page shows.
type Data struct {
	PieceCount  int
	PieceWidth  int
	PieceHeight int
	Margin      int
	Pieces      [][]jigsaw.Position
}

// FromGrid collects the page data for g.
func FromGrid(g *jigsaw.Grid) Data {
	return Data{
		PieceCount:  g.PieceCount(),
		PieceWidth:  g.PieceWidth(),
		PieceHeight: g.PieceHeight(),
		Margin:      g.Margin(),
		Pieces:      g.Pieces(),
	}
}

// Render writes the built-in page for d to w.
func Render(w io.Writer, d Data) error {
	return page.Execute(w, d)
}

// RenderCustom substitutes Placeholder in the template at path with the
// piece count and writes the result to w.
func RenderCustom(w io.Writer, path string, pieceCount int) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read viewer template: %w", err)
	}
	_, err = io.WriteString(w, strings.ReplaceAll(string(b), Placeholder, strconv.Itoa(pieceCount)))
	return err
}

// WriteFile renders the page to path, using the custom template at tmpl
// when it is not empty.
func WriteFile(path, tmpl string, d Data) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if tmpl != "" {
		err = RenderCustom(f, tmpl, d.PieceCount)
	} else {
		err = Render(f, d)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// FileURL is the file:// URL of path.
func FileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

// Open launches the platform browser on the page at path.
func Open(path string) error {
	u, err := FileURL(path)
	if err != nil {
		return err
	}
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", u)
	case "linux":
		cmd = exec.Command("xdg-open", u)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", u)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}
