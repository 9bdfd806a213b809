package export

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

var _ FilePresigner = (*GCSPresigner)(nil)

// GCSOptions configures a GCSPresigner.
type GCSOptions struct {
	KeyFilePath string
}

// GCSPresigner generates signed URLs for Google Cloud Storage objects.
type GCSPresigner struct {
	client *storage.Client
}

// NewGCSPresigner creates a presigner for Google Cloud Storage using a
// service account key file.
func NewGCSPresigner(ctx context.Context, opts GCSOptions) (*GCSPresigner, error) {
	if opts.KeyFilePath == "" {
		return nil, fmt.Errorf("GCS key file path is required")
	}

	client, err := storage.NewClient(ctx, option.WithAuthCredentialsFile(option.ServiceAccount, opts.KeyFilePath))
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}

	return &GCSPresigner{client: client}, nil
}

// PresignGetObject generates a signed GET URL for a GCS object.
// path is a full gs:// URI like "gs://bucket/exports/file.parquet".
func (p *GCSPresigner) PresignGetObject(_ context.Context, path string, expiry time.Duration) (string, error) {
	bucket, key, err := parseGCSPath(path)
	if err != nil {
		return "", err
	}

	signedURL, err := p.client.Bucket(bucket).SignedURL(key, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(expiry),
	})
	if err != nil {
		return "", fmt.Errorf("sign GetObject for %q: %w", path, err)
	}
	return signedURL, nil
}

// parseGCSPath extracts bucket and key from a "gs://bucket/path/to/file" URI.
func parseGCSPath(path string) (bucket, key string, err error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", "", fmt.Errorf("parse GCS path %q: %w", path, err)
	}
	if u.Scheme != "gs" {
		return "", "", fmt.Errorf("expected gs:// scheme, got %q in %q", u.Scheme, path)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("empty key in GCS path %q", path)
	}
	return bucket, key, nil
}
