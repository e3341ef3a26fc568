package cli

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"k8s.io/client-go/kubernetes"

	"github.com/PhantomInTheWire/jigsaw-pipeline/pkg/config"
	"github.com/PhantomInTheWire/jigsaw-pipeline/pkg/kube"
	"github.com/PhantomInTheWire/jigsaw-pipeline/pkg/storage"
)

// sourcePrefix is where submitted source images are stored in the bucket.
const sourcePrefix = "sources"

type submitOptions struct {
	configPath string
	pieces     int
	seed       int64
	seedSet    bool
	prefix     string
}

// ControllerCommand creates the jigsaw-controller command, which uploads an
// image to object storage and starts a cluster Job that cuts it.
func (c *CLI) ControllerCommand() *cobra.Command {
	var opts submitOptions

	root := &cobra.Command{
		Use:   "jigsaw-controller <image_path>",
		Short: "Cut an image into jigsaw pieces on a Kubernetes cluster",
		Long: `Jigsaw-controller uploads the image to the configured bucket under
sources/ and creates a Job that downloads it, cuts it and uploads the pieces
back under the chosen prefix.`,
		Args:          cobra.ExactArgs(1),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.seedSet = cmd.Flags().Changed("seed")
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s3, err := storage.NewClient(ctx, cfg.Storage.Minio(""))
			if err != nil {
				return err
			}
			clientset, err := kube.NewClientset(cfg.Kube.Kubeconfig)
			if err != nil {
				return err
			}
			_, err = c.submit(ctx, cfg, args[0], s3, clientset)
			return err
		},
	}
	root.SetVersionTemplate(versionTemplate("jigsaw-controller"))

	f := root.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "TOML config file")
	f.IntVarP(&opts.pieces, "pieces", "n", 0, "pieces per side (config value when unset)")
	f.Int64Var(&opts.seed, "seed", 0, "seed for tab directions (random when unset)")
	f.StringVar(&opts.prefix, "prefix", "", "object key prefix for the pieces (image name when unset)")

	root.AddCommand(c.versionCommand("jigsaw-controller"))
	return c.withVerbose(root)
}

func (o submitOptions) load() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.pieces != 0 {
		cfg.Pieces = o.pieces
	}
	if o.seedSet {
		seed := o.seed
		cfg.Seed = &seed
	}
	if o.prefix != "" {
		cfg.Storage.Prefix = o.prefix
	}
	return cfg, cfg.Validate()
}

// submit uploads src and creates its cut Job. The Job name also names the
// uploaded source and, unless a prefix is configured, the pieces' prefix, so
// every object key stays shell and URL safe. It returns the Job name.
func (c *CLI) submit(ctx context.Context, cfg config.Config, src string, s3 storage.API, clientset kubernetes.Interface) (string, error) {
	name := kube.JobName(filepath.Base(src))
	key := path.Join(sourcePrefix, name+strings.ToLower(filepath.Ext(src)))
	prefix := cfg.Storage.Prefix
	if prefix == "" {
		prefix = name
	}

	if err := storage.EnsureBucket(ctx, s3, cfg.Storage.Bucket); err != nil {
		return "", err
	}
	if err := storage.UploadFile(ctx, s3, cfg.Storage.Bucket, key, src); err != nil {
		return "", err
	}
	c.Logger.Info("uploaded source", "bucket", cfg.Storage.Bucket, "key", key)

	job := cfg.Kube.Job(name, key, cfg.Pieces, prefix)
	job.Seed = cfg.Seed
	created, err := kube.CreateCutJob(ctx, clientset, job)
	if err != nil {
		return "", fmt.Errorf("create job for %s: %w", src, err)
	}
	c.Logger.Info("created job", "name", created.Name, "namespace", created.Namespace, "pieces", cfg.Pieces, "prefix", prefix)
	return created.Name, nil
}
