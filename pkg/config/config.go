// Package config loads jigsaw settings from a TOML file and the environment.
//
// Precedence, lowest first: Default, the TOML file, environment variables.
// Command line flags are applied on top by the binaries.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/PhantomInTheWire/jigsaw-pipeline/pkg/jigsaw"
	"github.com/PhantomInTheWire/jigsaw-pipeline/pkg/kube"
	"github.com/PhantomInTheWire/jigsaw-pipeline/pkg/storage"
)

// Config holds every setting of the jigsaw binaries.
type Config struct {
	Pieces      int    `toml:"pieces"`
	Seed        *int64 `toml:"seed"` // nil means a fresh random seed per run
	Output      string `toml:"output"`
	Viewer      string `toml:"viewer"`       // optional HTML template path
	Filter      string `toml:"filter"`       // optional wasm filter path
	OpenBrowser bool   `toml:"open_browser"` // open index.html after cutting
	MetricsFile string `toml:"metrics_file"`
	Workers     int    `toml:"workers"`

	Storage Storage `toml:"storage"`
	Kube    Kube    `toml:"kube"`
}

// Storage is the object store pieces are uploaded to.
type Storage struct {
	Enabled   bool   `toml:"enabled"`
	Endpoint  string `toml:"endpoint"`
	Region    string `toml:"region"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`
}

// Kube describes where cluster cut jobs run.
type Kube struct {
	Kubeconfig string `toml:"kubeconfig"`
	Namespace  string `toml:"namespace"`
	Image      string `toml:"image"`
	BucketURL  string `toml:"bucket_url"` // bucket URL as seen from inside the cluster
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		Pieces:      4,
		Output:      "./shared/pieces",
		OpenBrowser: true,
		Workers:     8,
		Storage: Storage{
			Endpoint:  "http://localhost:9000",
			Region:    "us-east-1",
			AccessKey: "minioadmin",
			SecretKey: "minioadmin",
			Bucket:    "jigsaw-pieces",
		},
		Kube: Kube{
			Namespace: "default",
			Image:     "ghcr.io/phantominthewire/jigsaw:latest",
			BucketURL: "http://minio.default.svc:9000/jigsaw-pieces",
		},
	}
}

// Load reads path (if not empty) over the defaults and then applies the
// environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Pieces = getEnvInt("JIGSAW_PIECES", c.Pieces)
	c.Output = getEnv("JIGSAW_OUTPUT", c.Output)
	c.Viewer = getEnv("JIGSAW_VIEWER", c.Viewer)
	c.Filter = getEnv("JIGSAW_FILTER", c.Filter)
	c.MetricsFile = getEnv("JIGSAW_METRICS_FILE", c.MetricsFile)
	c.Workers = getEnvInt("MAX_WORKERS", c.Workers)
	if v := os.Getenv("JIGSAW_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("JIGSAW_SEED: %w", err)
		}
		c.Seed = &seed
	}

	c.Storage.Endpoint = getEnv("MINIO_ENDPOINT", c.Storage.Endpoint)
	c.Storage.Region = getEnv("MINIO_REGION", c.Storage.Region)
	c.Storage.AccessKey = getEnv("MINIO_ACCESS_KEY", c.Storage.AccessKey)
	c.Storage.SecretKey = getEnv("MINIO_SECRET_KEY", c.Storage.SecretKey)
	c.Storage.Bucket = getEnv("MINIO_BUCKET", c.Storage.Bucket)
	c.Storage.Prefix = getEnv("MINIO_PREFIX", c.Storage.Prefix)

	c.Kube.Kubeconfig = getEnv("KUBECONFIG", c.Kube.Kubeconfig)
	c.Kube.Namespace = getEnv("KUBE_NAMESPACE", c.Kube.Namespace)
	c.Kube.Image = getEnv("JIGSAW_IMAGE", c.Kube.Image)
	c.Kube.BucketURL = getEnv("JIGSAW_BUCKET_URL", c.Kube.BucketURL)
	return nil
}

// Validate reports settings that can never produce a puzzle.
func (c Config) Validate() error {
	if c.Pieces < 1 {
		return jigsaw.Wrap(jigsaw.InvalidConfiguration, nil, "pieces must be at least 1, got %d", c.Pieces)
	}
	if c.Workers < 1 {
		return jigsaw.Wrap(jigsaw.InvalidConfiguration, nil, "workers must be at least 1, got %d", c.Workers)
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return jigsaw.Wrap(jigsaw.InvalidConfiguration, nil, "storage is enabled but no bucket is set")
	}
	return nil
}

// Minio returns the upload settings for the pieces in dir.
func (s Storage) Minio(dir string) storage.MinioConfig {
	return storage.MinioConfig{
		Endpoint:  s.Endpoint,
		Region:    s.Region,
		AccessKey: s.AccessKey,
		SecretKey: s.SecretKey,
		Bucket:    s.Bucket,
		Prefix:    s.Prefix,
		Dir:       dir,
	}
}

// Job returns the cluster job settings for cutting source into pieces.
func (k Kube) Job(name, source string, pieces int, prefix string) kube.CutJob {
	return kube.CutJob{
		Name:      name,
		Namespace: k.Namespace,
		Image:     k.Image,
		BucketURL: k.BucketURL,
		Source:    source,
		Pieces:    pieces,
		Prefix:    prefix,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
