package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/PhantomInTheWire/jigsaw-pipeline/pkg/config"
	"github.com/PhantomInTheWire/jigsaw-pipeline/pkg/filter"
	"github.com/PhantomInTheWire/jigsaw-pipeline/pkg/jigsaw"
	"github.com/PhantomInTheWire/jigsaw-pipeline/pkg/metrics"
	"github.com/PhantomInTheWire/jigsaw-pipeline/pkg/observability"
	"github.com/PhantomInTheWire/jigsaw-pipeline/pkg/split"
	"github.com/PhantomInTheWire/jigsaw-pipeline/pkg/storage"
	"github.com/PhantomInTheWire/jigsaw-pipeline/pkg/viewer"
)

const (
	viewerFile = "index.html"
	reportFile = "pieces.json"
)

type cutOptions struct {
	configPath  string
	seed        int64
	seedSet     bool
	filter      string
	viewer      string
	upload      bool
	prefix      string
	metricsFile string
	noBrowser   bool
}

// RootCommand creates the jigsaw command. It cuts an image directly; version
// is its only subcommand.
func (c *CLI) RootCommand() *cobra.Command {
	var opts cutOptions

	root := &cobra.Command{
		Use:   "jigsaw <image_path> <output_dir> <piece_count>",
		Short: "Cut an image into interlocking jigsaw pieces",
		Long: `Jigsaw slices an image into an N×N grid of pieces, carves a square tab
across every shared edge and writes each piece as <x>x<y>.png, along with an
HTML page to play with them and a pieces.json position report.

The output directory is removed and recreated on every run.`,
		Example: `  jigsaw cat.png ./pieces 4
  jigsaw cat.png ./pieces 6 --seed 42 --no-browser
  jigsaw cat.png ./pieces 4 --upload --prefix cat`,
		Args:          cobra.ExactArgs(3),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[2])
			if err != nil {
				return jigsaw.Wrap(jigsaw.InvalidConfiguration, err, "piece count %q is not a number", args[2])
			}
			opts.seedSet = cmd.Flags().Changed("seed")
			return c.runCut(cmd.Context(), args[0], args[1], n, opts)
		},
	}
	root.SetVersionTemplate(versionTemplate("jigsaw"))

	f := root.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "TOML config file")
	f.Int64Var(&opts.seed, "seed", 0, "seed for tab directions (random when unset)")
	f.StringVar(&opts.filter, "filter", "", "wasm filter applied to every piece")
	f.StringVar(&opts.viewer, "viewer", "", "HTML template for the viewer page")
	f.BoolVar(&opts.upload, "upload", false, "upload the puzzle to object storage")
	f.StringVar(&opts.prefix, "prefix", "", "object key prefix for --upload")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write prometheus metrics to this file")
	f.BoolVar(&opts.noBrowser, "no-browser", false, "do not open the viewer page")

	root.AddCommand(c.versionCommand("jigsaw"))
	return c.withVerbose(root)
}

// apply layers the command line over cfg.
func (o cutOptions) apply(cfg *config.Config) {
	if o.seedSet {
		seed := o.seed
		cfg.Seed = &seed
	}
	if o.filter != "" {
		cfg.Filter = o.filter
	}
	if o.viewer != "" {
		cfg.Viewer = o.viewer
	}
	if o.metricsFile != "" {
		cfg.MetricsFile = o.metricsFile
	}
	if o.upload {
		cfg.Storage.Enabled = true
	}
	if o.prefix != "" {
		cfg.Storage.Prefix = o.prefix
	}
	if o.noBrowser {
		cfg.OpenBrowser = false
	}
}

func (c *CLI) runCut(ctx context.Context, src, out string, pieces int, opts cutOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	cfg.Pieces = pieces
	cfg.Output = out
	opts.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.MetricsFile != "" {
		reg := prometheus.NewRegistry()
		rec := metrics.NewRecorder(reg)
		observability.SetJigsawHooks(rec)
		observability.SetUploadHooks(rec)
		defer observability.Reset()
		defer func() {
			if err := metrics.WriteFile(cfg.MetricsFile, reg); err != nil {
				c.Logger.Warn("could not write metrics", "path", cfg.MetricsFile, "err", err)
			}
		}()
	}

	gridOpts, closeFilter, err := c.gridOptions(cfg)
	if err != nil {
		return err
	}
	defer closeFilter()

	prog := newProgress(c.Logger)
	g, err := cutGrid(src, cfg.Output, cfg.Pieces, gridOpts...)
	if err != nil {
		return err
	}
	if err := writeReport(filepath.Join(cfg.Output, reportFile), g.Pieces()); err != nil {
		return jigsaw.Wrap(jigsaw.IOFailure, err, "write position report")
	}
	page := filepath.Join(cfg.Output, viewerFile)
	if err := viewer.WriteFile(page, cfg.Viewer, viewer.FromGrid(g)); err != nil {
		return jigsaw.Wrap(jigsaw.IOFailure, err, "write viewer page")
	}
	prog.done("Cut puzzle", "source", src, "pieces", cfg.Pieces*cfg.Pieces, "output", cfg.Output)

	if cfg.Storage.Enabled {
		mc := cfg.Storage.Minio(cfg.Output)
		client, err := storage.NewClient(ctx, mc)
		if err != nil {
			return err
		}
		if _, err := storage.UploadPieces(ctx, client, mc); err != nil {
			return fmt.Errorf("upload puzzle: %w", err)
		}
	}

	if cfg.OpenBrowser {
		if err := viewer.Open(page); err != nil {
			c.Logger.Warn("could not open browser", "page", page, "err", err)
		}
	}
	return nil
}

// gridOptions turns cfg into grid options. The returned func releases the
// filter, if one was opened.
func (c *CLI) gridOptions(cfg config.Config) ([]jigsaw.Option, func(), error) {
	opts := []jigsaw.Option{jigsaw.WithLogger(c.Logger)}
	if cfg.Seed != nil {
		opts = append(opts, jigsaw.WithSeed(uint64(*cfg.Seed)))
	}
	if cfg.Filter == "" {
		return opts, func() {}, nil
	}
	pool, err := filter.Open(cfg.Filter, cfg.Workers)
	if err != nil {
		return nil, nil, fmt.Errorf("open filter %s: %w", cfg.Filter, err)
	}
	return append(opts, jigsaw.WithFilter(pool)), pool.Close, nil
}

// cutGrid builds, connects and saves the puzzle for src into a freshly
// recreated out. The source is decoded before out is touched.
func cutGrid(src, out string, pieces int, opts ...jigsaw.Option) (*jigsaw.Grid, error) {
	g, err := jigsaw.Open(src, pieces, opts...)
	if err != nil {
		return nil, err
	}
	if err := split.PrepareDir(out); err != nil {
		return nil, jigsaw.Wrap(jigsaw.IOFailure, err, "prepare output directory %s", out)
	}
	if err := g.Connect(); err != nil {
		return nil, err
	}
	if err := g.Save(out); err != nil {
		return nil, err
	}
	return g, nil
}

func writeReport(path string, pieces [][]jigsaw.Position) error {
	b, err := json.MarshalIndent(pieces, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0644)
}
