package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/PhantomInTheWire/jigsaw-pipeline/pkg/config"
	"github.com/PhantomInTheWire/jigsaw-pipeline/pkg/jigsaw"
	"github.com/PhantomInTheWire/jigsaw-pipeline/pkg/split"
)

type benchOptions struct {
	configPath string
	input      string
	output     string
	pieces     int
	workers    int
	seed       int64
	seedSet    bool
	filter     string
}

// benchResult is the outcome of cutting one image.
type benchResult struct {
	index   int
	Source  string
	Output  string
	Elapsed time.Duration
	Err     error
}

// BenchCommand creates the jigsaw-bench command, which cuts every PNG under
// an input directory with a fixed number of workers.
func (c *CLI) BenchCommand() *cobra.Command {
	var opts benchOptions

	root := &cobra.Command{
		Use:   "jigsaw-bench",
		Short: "Cut every PNG in a directory and report timings",
		Long: `Jigsaw-bench walks the input directory for .png files and cuts each one
into its own directory under the output directory, mirroring its path below
the input: <input>/a/cat.png goes to <output>/a/cat/. The output directory is
recreated first.`,
		Args:          cobra.NoArgs,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.seedSet = cmd.Flags().Changed("seed")
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			_, err = c.bench(cfg, opts.input)
			return err
		},
	}
	root.SetVersionTemplate(versionTemplate("jigsaw-bench"))

	shared := getEnv("SHARED_DIR", "./shared")
	f := root.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "TOML config file")
	f.StringVarP(&opts.input, "input", "i", filepath.Join(shared, "input"), "directory searched for .png files")
	f.StringVarP(&opts.output, "output", "o", filepath.Join(shared, "output"), "directory receiving one sub-directory per image")
	f.IntVarP(&opts.pieces, "pieces", "n", 0, "pieces per side (config value when unset)")
	f.IntVarP(&opts.workers, "workers", "w", 0, "images cut in parallel (config value when unset)")
	f.Int64Var(&opts.seed, "seed", 0, "seed shared by every image (random when unset)")
	f.StringVar(&opts.filter, "filter", "", "wasm filter applied to every piece")

	root.AddCommand(c.versionCommand("jigsaw-bench"))
	return c.withVerbose(root)
}

func (o benchOptions) load() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	cfg.Output = o.output
	if o.pieces != 0 {
		cfg.Pieces = o.pieces
	}
	if o.workers != 0 {
		cfg.Workers = o.workers
	}
	if o.seedSet {
		seed := o.seed
		cfg.Seed = &seed
	}
	if o.filter != "" {
		cfg.Filter = o.filter
	}
	return cfg, cfg.Validate()
}

// findPNGs lists the .png files under dir.
func findPNGs(dir string) ([]string, error) {
	var inputs []string
	err := filepath.Walk(dir, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() && strings.EqualFold(filepath.Ext(p), ".png") {
			inputs = append(inputs, p)
		}
		return nil
	})
	return inputs, err
}

// benchOutput is the directory the pieces of src go to: its path relative to
// input, without the extension, below out.
func benchOutput(input, out, src string) string {
	rel, err := filepath.Rel(input, src)
	if err != nil || rel == "." {
		rel = filepath.Base(src)
	}
	return filepath.Join(out, strings.TrimSuffix(rel, filepath.Ext(rel)))
}

// bench cuts every PNG under input into cfg.Output. Each image gets its own
// grid; a failing image does not stop the others. Results are returned in
// input order and the failures are joined into the error.
func (c *CLI) bench(cfg config.Config, input string) ([]benchResult, error) {
	inputs, err := findPNGs(input)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", input, err)
	}
	if err := split.PrepareDir(cfg.Output); err != nil {
		return nil, jigsaw.Wrap(jigsaw.IOFailure, err, "prepare output directory %s", cfg.Output)
	}
	if len(inputs) == 0 {
		c.Logger.Warn("no PNGs found", "dir", input)
		return nil, nil
	}

	gridOpts, closeFilter, err := c.gridOptions(cfg)
	if err != nil {
		return nil, err
	}
	defer closeFilter()

	workers := min(cfg.Workers, len(inputs))
	c.Logger.Info("benchmarking", "images", len(inputs), "workers", workers, "pieces", cfg.Pieces)
	prog := newProgress(c.Logger)

	type task struct {
		idx int
		src string
	}
	tasks := make(chan task)
	results := make(chan benchResult)

	for range workers {
		go func() {
			for t := range tasks {
				out := benchOutput(input, cfg.Output, t.src)
				start := time.Now()
				_, err := cutGrid(t.src, out, cfg.Pieces, gridOpts...)
				results <- benchResult{index: t.idx, Source: t.src, Output: out, Elapsed: time.Since(start), Err: err}
			}
		}()
	}

	go func() {
		for i, src := range inputs {
			tasks <- task{i, src}
		}
		close(tasks)
	}()

	collected := make([]benchResult, len(inputs))
	var errs []error
	for range inputs {
		r := <-results
		collected[r.index] = r
		if r.Err != nil {
			c.Logger.Error("cut failed", "source", r.Source, "err", r.Err)
			errs = append(errs, fmt.Errorf("%s: %w", r.Source, r.Err))
			continue
		}
		c.Logger.Info("cut", "source", r.Source, "output", r.Output, "elapsed", r.Elapsed.Round(time.Millisecond))
	}
	prog.done("Done", "images", len(inputs), "failed", len(errs))
	return collected, errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
