package source

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/klytics/sheetgraph/internal/config"
)

// ObjectStore fetches objects by bucket and key.
type ObjectStore interface {
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
}

// S3Store reads objects from MinIO or any S3-compatible endpoint.
type S3Store struct {
	client *minio.Client
}

// NewS3Store creates a client for cfg. The endpoint may be a bare host:port
// or a URL; an https scheme forces TLS. Empty credentials mean anonymous
// access.
func NewS3Store(cfg config.S3Config) (*S3Store, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}

	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		switch u.Scheme {
		case "https":
			useSSL = true
		case "http":
			useSSL = false
		}
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create s3 client: %w", err)
	}
	return &S3Store{client: client}, nil
}

// Endpoint returns the resolved endpoint URL.
func (s *S3Store) Endpoint() string {
	return s.client.EndpointURL().String()
}

// Ping checks that the endpoint answers and accepts the credentials.
func (s *S3Store) Ping(ctx context.Context) error {
	if _, err := s.client.ListBuckets(ctx); err != nil {
		return fmt.Errorf("could not reach %s: %w", s.Endpoint(), err)
	}
	return nil
}

// GetObject downloads an object fully into memory.
func (s *S3Store) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// NewLoader builds a Loader whose S3 store is configured from cfg. The store
// is left nil when no endpoint is set.
func NewLoader(cfg config.S3Config) (*Loader, error) {
	l := &Loader{}
	if cfg.Endpoint == "" {
		return l, nil
	}
	store, err := NewS3Store(cfg)
	if err != nil {
		return nil, err
	}
	l.Store = store
	return l, nil
}
