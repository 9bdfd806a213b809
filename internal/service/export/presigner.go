package export

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// FilePresigner generates a time-limited download URL for an object-store
// path. Implementations: S3Presigner, AzurePresigner, GCSPresigner.
type FilePresigner interface {
	PresignGetObject(ctx context.Context, path string, expiry time.Duration) (string, error)
}

// PresignerDirectory resolves the presigner responsible for a given
// destination path.
type PresignerDirectory interface {
	ForPath(path string) (FilePresigner, error)
}

// Presigners holds one presigner per supported object store. Any field may
// be nil when the corresponding credentials are not configured.
type Presigners struct {
	S3    *S3Presigner
	Azure *AzurePresigner
	GCS   *GCSPresigner
}

// ForPath picks the presigner for a destination URI by scheme.
func (p *Presigners) ForPath(path string) (FilePresigner, error) {
	u, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse destination %q: %w", path, err)
	}
	switch u.Scheme {
	case "s3":
		if p.S3 == nil {
			return nil, fmt.Errorf("destination %q requires S3 credentials, none configured", path)
		}
		return p.S3, nil
	case "az", "abfss":
		if p.Azure == nil {
			return nil, fmt.Errorf("destination %q requires Azure credentials, none configured", path)
		}
		return p.Azure, nil
	case "gs":
		if p.GCS == nil {
			return nil, fmt.Errorf("destination %q requires GCS credentials, none configured", path)
		}
		return p.GCS, nil
	default:
		return nil, fmt.Errorf("unsupported destination scheme %q in %q", u.Scheme, path)
	}
}

var _ FilePresigner = (*S3Presigner)(nil)

// S3Options configures an S3Presigner. Endpoint is an optional custom
// endpoint host for S3-compatible stores; when set, path-style addressing
// is used.
type S3Options struct {
	Endpoint string
	Region   string
	KeyID    string
	Secret   string
}

// S3Presigner generates presigned S3 GET URLs via the AWS SDK v2.
type S3Presigner struct {
	presignClient *s3.PresignClient
}

// NewS3Presigner creates a presigner for S3 or an S3-compatible store.
func NewS3Presigner(opts S3Options) (*S3Presigner, error) {
	if opts.KeyID == "" || opts.Secret == "" {
		return nil, fmt.Errorf("S3 config is incomplete")
	}

	s3Opts := s3.Options{
		Region: opts.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			opts.KeyID, opts.Secret, "",
		),
	}
	if opts.Endpoint != "" {
		s3Opts.BaseEndpoint = aws.String(fmt.Sprintf("https://%s", opts.Endpoint))
		s3Opts.UsePathStyle = true
	}

	return &S3Presigner{
		presignClient: s3.NewPresignClient(s3.New(s3Opts)),
	}, nil
}

// PresignGetObject generates a presigned GET URL for an S3 object.
// path is a full s3:// URI like "s3://bucket/exports/xxx.parquet".
func (p *S3Presigner) PresignGetObject(ctx context.Context, path string, expiry time.Duration) (string, error) {
	bucket, key, err := ParseS3Path(path)
	if err != nil {
		return "", err
	}

	result, err := p.presignClient.PresignGetObject(ctx,
		&s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		},
		s3.WithPresignExpires(expiry),
	)
	if err != nil {
		return "", fmt.Errorf("presign GetObject for %q: %w", path, err)
	}
	return result.URL, nil
}

// ParseS3Path extracts bucket and key from an "s3://bucket/path/to/file" URI.
func ParseS3Path(path string) (bucket, key string, err error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", "", fmt.Errorf("parse S3 path %q: %w", path, err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("expected s3:// scheme, got %q in %q", u.Scheme, path)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("empty key in S3 path %q", path)
	}
	return bucket, key, nil
}
