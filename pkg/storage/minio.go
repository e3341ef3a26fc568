package storage

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/charmbracelet/log"

	"github.com/PhantomInTheWire/jigsaw-pipeline/pkg/observability"
)

// MinioConfig says where the files of Dir are uploaded.
type MinioConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	Dir       string
}

// API is the part of the S3 client used here.
type API interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, opts ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// uploadExts lists the files of an output directory that belong to a puzzle.
var uploadExts = map[string]bool{".png": true, ".html": true, ".json": true}

// NewClient connects to the S3 compatible endpoint in cfg with static
// credentials and path-style addressing, which MinIO expects.
func NewClient(ctx context.Context, cfg MinioConfig) (*s3.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	}), nil
}

// EnsureBucket creates bucket unless it already exists.
func EnsureBucket(ctx context.Context, client API, bucket string) error {
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err == nil {
		return nil
	}
	if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	log.Info("created bucket", "bucket", bucket)
	return nil
}

// UploadFile puts the file at src into bucket under key.
func UploadFile(ctx context.Context, client API, bucket, key, src string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return err
	}
	in := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(fi.Size()),
	}
	if ct := mime.TypeByExtension(filepath.Ext(src)); ct != "" {
		in.ContentType = aws.String(ct)
	}
	_, err = client.PutObject(ctx, in)
	observability.Upload().OnUpload(key, fi.Size(), err)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// UploadPieces uploads the pieces, viewer and position report in cfg.Dir to
// cfg.Bucket under cfg.Prefix, creating the bucket when needed. The first
// failure stops the upload and is returned. It returns the uploaded keys.
func UploadPieces(ctx context.Context, client API, cfg MinioConfig) ([]string, error) {
	if err := EnsureBucket(ctx, client, cfg.Bucket); err != nil {
		return nil, err
	}

	files, err := os.ReadDir(cfg.Dir)
	if err != nil {
		return nil, err
	}

	var keys []string
	for _, f := range files {
		if f.IsDir() || !uploadExts[filepath.Ext(f.Name())] {
			continue
		}
		key := path.Join(cfg.Prefix, f.Name())
		if err := UploadFile(ctx, client, cfg.Bucket, key, filepath.Join(cfg.Dir, f.Name())); err != nil {
			return keys, err
		}
		log.Debug("uploaded", "key", key)
		keys = append(keys, key)
	}
	log.Info("uploaded puzzle", "bucket", cfg.Bucket, "prefix", cfg.Prefix, "objects", len(keys))
	return keys, nil
}
