package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	meta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/PhantomInTheWire/jigsaw-pipeline/pkg/config"
)

type memS3 struct {
	buckets map[string]bool
	objects map[string][]byte
}

func (m *memS3) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if !m.buckets[aws.ToString(in.Bucket)] {
		return nil, errors.New("NotFound")
	}
	return &s3.HeadBucketOutput{}, nil
}

func (m *memS3) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	m.buckets[aws.ToString(in.Bucket)] = true
	return &s3.CreateBucketOutput{}, nil
}

func (m *memS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = b
	return &s3.PutObjectOutput{}, nil
}

func TestSubmit(t *testing.T) {
	src := filepath.Join(t.TempDir(), "Cat Photo.png")
	writePNG(t, src, 30, 30)

	cfg := config.Default()
	cfg.Pieces = 5
	seed := int64(11)
	cfg.Seed = &seed

	store := &memS3{buckets: map[string]bool{}, objects: map[string][]byte{}}
	clientset := fake.NewSimpleClientset()
	var logs bytes.Buffer
	c := New(&logs, LogInfo)

	name, err := c.submit(context.Background(), cfg, src, store, clientset)
	if err != nil {
		t.Fatalf("submit() error = %v", err)
	}

	if !store.buckets["jigsaw-pieces"] {
		t.Error("bucket was not created")
	}
	if !strings.HasPrefix(name, "jigsaw-cut-cat-photo-") {
		t.Errorf("job name = %q", name)
	}
	if _, ok := store.objects["jigsaw-pieces/sources/"+name+".png"]; !ok {
		t.Errorf("source not uploaded, objects = %v", store.objects)
	}
	job, err := clientset.BatchV1().Jobs("default").Get(context.Background(), name, meta.GetOptions{})
	if err != nil {
		t.Fatalf("job not created: %v", err)
	}
	args := strings.Join(job.Spec.Template.Spec.Containers[0].Args, " ")
	if want := "/data/source.png /data/pieces 5 --no-browser --upload --prefix " + name + " --seed 11"; args != want {
		t.Errorf("job args = %q, want %q", args, want)
	}
}

func TestSubmitPrefixFromConfig(t *testing.T) {
	src := filepath.Join(t.TempDir(), "dog.png")
	writePNG(t, src, 10, 10)

	cfg := config.Default()
	cfg.Storage.Prefix = "puzzles/dog"
	store := &memS3{buckets: map[string]bool{"jigsaw-pieces": true}, objects: map[string][]byte{}}
	clientset := fake.NewSimpleClientset()

	name, err := New(io.Discard, LogInfo).submit(context.Background(), cfg, src, store, clientset)
	if err != nil {
		t.Fatalf("submit() error = %v", err)
	}
	job, err := clientset.BatchV1().Jobs("default").Get(context.Background(), name, meta.GetOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if args := strings.Join(job.Spec.Template.Spec.Containers[0].Args, " "); !strings.Contains(args, "--prefix puzzles/dog") {
		t.Errorf("job args = %q", args)
	}
}
