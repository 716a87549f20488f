package artifact

import (
	"bytes"
	"context"
	"net/url"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/YuminosukeSato/crashseverity/config"
	"github.com/YuminosukeSato/crashseverity/pkg/errors"
)

// MinioStore writes artifacts to bucket/Prefix/RunID/key on an S3-compatible
// server.
type MinioStore struct {
	client *minio.Client
	cfg    config.Minio
	runID  string
	ready  bool
}

// NewMinioStore builds a client for cfg. No request is made until the first
// Put.
func NewMinioStore(cfg config.Minio, runID string) (*MinioStore, error) {
	if cfg.Endpoint == "" {
		return nil, errors.NewValidationError("minio.endpoint", "endpoint is required", cfg.Endpoint)
	}
	if cfg.Bucket == "" {
		return nil, errors.NewValidationError("minio.bucket", "bucket is required", cfg.Bucket)
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, errors.NewValidationError("minio.credentials", "access key and secret are required", "")
	}

	// Accept both "host:port" and "https://host:port".
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create minio client")
	}
	return &MinioStore{client: client, cfg: cfg, runID: runID}, nil
}

// ObjectKey is the object name key is stored under.
func (s *MinioStore) ObjectKey(key string) string {
	return path.Join(s.cfg.Prefix, s.runID, key)
}

func (s *MinioStore) ensureBucket(ctx context.Context) error {
	if s.ready {
		return nil
	}
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return errors.Wrapf(err, "check bucket %s", s.cfg.Bucket)
	}
	if !exists {
		err = s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region})
		if err != nil {
			return errors.Wrapf(err, "create bucket %s", s.cfg.Bucket)
		}
	}
	s.ready = true
	return nil
}

// Put uploads data and returns its s3:// URI.
func (s *MinioStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	object := s.ObjectKey(key)
	_, err := s.client.PutObject(ctx, s.cfg.Bucket, object, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", errors.Wrapf(err, "put object %s", object)
	}
	return "s3://" + s.cfg.Bucket + "/" + object, nil
}

// New returns the store selected by cfg.Backend.
func New(cfg config.Output, runID string) (Store, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStore(cfg.Dir, runID), nil
	case "minio":
		return NewMinioStore(cfg.Minio, runID)
	default:
		return nil, errors.NewValidationError("output.backend", "must be local or minio", cfg.Backend)
	}
}
