package kube

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	meta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/retry"
)

const appLabel = "jigsaw-cutter"

var invalidNameChars = regexp.MustCompile(`[^a-z0-9-]`)

func int32Ptr(i int32) *int32 { return &i }

// CutJob describes one in-cluster jigsaw run: fetch Source from the bucket,
// cut it into Pieces×Pieces pieces and upload them under Prefix.
type CutJob struct {
	Name      string
	Namespace string
	Image     string
	BucketURL string // e.g. http://minio.default.svc:9000/jigsaw-pieces
	Source    string // object key of the source image
	Pieces    int
	Prefix    string
	Seed      *int64
}

// JobName derives a DNS-1123 job name from a source file name, with a
// random suffix so repeated runs do not collide.
func JobName(source string) string {
	base := strings.TrimSuffix(path.Base(source), path.Ext(source))
	sanitized := invalidNameChars.ReplaceAllString(strings.ToLower(base), "-")
	sanitized = strings.Trim(sanitized, "-")

	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	prefix := "jigsaw-cut-"
	if limit := 63 - len(prefix) - len(suffix) - 1; len(sanitized) > limit {
		sanitized = strings.TrimRight(sanitized[:limit], "-")
	}
	if sanitized == "" {
		return prefix + suffix
	}
	return prefix + sanitized + "-" + suffix
}

// NewClientset loads kubeconfig (the default home file when empty).
func NewClientset(kubeconfig string) (kubernetes.Interface, error) {
	if kubeconfig == "" {
		kubeconfig = clientcmd.RecommendedHomeFile
	}
	cfg, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("loading kubeconfig: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("building clientset: %w", err)
	}
	return clientset, nil
}

// BuildJob renders the Job for j:
// 1) an init container downloads the source image from the bucket
// 2) the main container cuts it and uploads the pieces back
func BuildJob(j CutJob) (*batchv1.Job, error) {
	if j.Pieces < 1 {
		return nil, fmt.Errorf("pieces must be at least 1, got %d", j.Pieces)
	}
	endpoint, bucket, err := splitBucketURL(j.BucketURL)
	if err != nil {
		return nil, err
	}

	src := "/data/source" + path.Ext(j.Source)
	args := []string{src, "/data/pieces", strconv.Itoa(j.Pieces), "--no-browser", "--upload", "--prefix", j.Prefix}
	if j.Seed != nil {
		args = append(args, "--seed", strconv.FormatInt(*j.Seed, 10))
	}

	volumeMounts := []corev1.VolumeMount{{Name: "work", MountPath: "/data"}}
	return &batchv1.Job{
		ObjectMeta: meta.ObjectMeta{
			Name:      j.Name,
			Namespace: j.Namespace,
			Labels:    map[string]string{"app": appLabel},
		},
		Spec: batchv1.JobSpec{
			BackoffLimit: int32Ptr(1),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: meta.ObjectMeta{
					Labels: map[string]string{"job-name": j.Name, "app": appLabel},
				},
				Spec: corev1.PodSpec{
					RestartPolicy: corev1.RestartPolicyOnFailure,
					InitContainers: []corev1.Container{{
						Name:         "fetch-source",
						Image:        "curlimages/curl:7.85.0",
						Command:      []string{"sh", "-c", fmt.Sprintf("curl -sf %s/%s -o %s", j.BucketURL, j.Source, src)},
						VolumeMounts: volumeMounts,
					}},
					Containers: []corev1.Container{{
						Name:    "cutter",
						Image:   j.Image,
						Command: []string{"jigsaw"},
						Args:    args,
						Env: []corev1.EnvVar{
							{Name: "MINIO_ENDPOINT", Value: endpoint},
							{Name: "MINIO_BUCKET", Value: bucket},
							{Name: "MINIO_ACCESS_KEY", ValueFrom: secretKey("access-key")},
							{Name: "MINIO_SECRET_KEY", ValueFrom: secretKey("secret-key")},
						},
						VolumeMounts: volumeMounts,
					}},
					Volumes: []corev1.Volume{{
						Name:         "work",
						VolumeSource: corev1.VolumeSource{EmptyDir: &corev1.EmptyDirVolumeSource{}},
					}},
				},
			},
		},
	}, nil
}

// CreateCutJob submits the Job for j, retrying on conflicts.
func CreateCutJob(ctx context.Context, clientset kubernetes.Interface, j CutJob) (*batchv1.Job, error) {
	job, err := BuildJob(j)
	if err != nil {
		return nil, err
	}
	var created *batchv1.Job
	err = retry.RetryOnConflict(retry.DefaultRetry, func() error {
		var err error
		created, err = clientset.BatchV1().Jobs(j.Namespace).Create(ctx, job, meta.CreateOptions{})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create job %s: %w", j.Name, err)
	}
	return created, nil
}

func secretKey(key string) *corev1.EnvVarSource {
	return &corev1.EnvVarSource{
		SecretKeyRef: &corev1.SecretKeySelector{
			LocalObjectReference: corev1.LocalObjectReference{Name: "minio-credentials"},
			Key:                  key,
		},
	}
}

// splitBucketURL turns http://host:port/bucket into its endpoint and bucket.
func splitBucketURL(raw string) (endpoint, bucket string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid bucket URL %q: %w", raw, err)
	}
	bucket = strings.Trim(u.Path, "/")
	if u.Scheme == "" || u.Host == "" || bucket == "" || strings.Contains(bucket, "/") {
		return "", "", fmt.Errorf("invalid bucket URL %q: want scheme://host/bucket", raw)
	}
	return u.Scheme + "://" + u.Host, bucket, nil
}
