package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig holds connection settings for an S3-compatible object store.
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    bool   `yaml:"secure"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`

	// PublicURL, when set, is the base used for returned references.
	// Otherwise references take the form s3://bucket/key.
	PublicURL string `yaml:"public_url"`
}

type objectClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinioStore uploads artifacts to a bucket. The bucket is created on first
// use when missing.
type MinioStore struct {
	client objectClient
	cfg    MinioConfig

	mu      sync.Mutex
	checked bool
}

// NewMinioStore connects to the endpoint in cfg.
func NewMinioStore(cfg MinioConfig) (*MinioStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio store: bucket is required")
	}
	c, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &MinioStore{client: c, cfg: cfg}, nil
}

func (s *MinioStore) ensureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checked {
		return nil
	}
	found, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %q: %w", s.cfg.Bucket, err)
	}
	if !found {
		if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %q: %w", s.cfg.Bucket, err)
		}
	}
	s.checked = true
	return nil
}

func (s *MinioStore) key(name string) string {
	p := strings.Trim(s.cfg.Prefix, "/")
	if p == "" {
		return name
	}
	return p + "/" + name
}

// Put uploads data under the configured prefix.
func (s *MinioStore) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	name, err := CleanName(name)
	if err != nil {
		return "", err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}
	key := s.key(name)
	_, err = s.client.PutObject(ctx, s.cfg.Bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return s.ref(key), nil
}

func (s *MinioStore) ref(key string) string {
	if s.cfg.PublicURL != "" {
		return strings.TrimSuffix(s.cfg.PublicURL, "/") + "/" + key
	}
	return "s3://" + s.cfg.Bucket + "/" + key
}

// Workspace returns the bucket location.
func (s *MinioStore) Workspace() string {
	return s.ref(strings.Trim(s.cfg.Prefix, "/"))
}
