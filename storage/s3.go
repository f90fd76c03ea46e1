package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/georgepadayatti/esign/config"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store keeps objects in an S3 bucket.
type S3Store struct {
	client  S3API
	bucket  string
	prefix  string
	baseURL string
	// MaxBytes bounds Fetch. Zero means no limit.
	MaxBytes int64
}

// NewS3Store loads AWS credentials from the environment and creates a
// store for cfg.Bucket.
func NewS3Store(ctx context.Context, cfg *config.S3StorageConfig) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3StoreWithClient(client, cfg), nil
}

// NewS3StoreWithClient creates a store around an existing client.
func NewS3StoreWithClient(client S3API, cfg *config.S3StorageConfig) *S3Store {
	base := cfg.PublicBaseURL
	switch {
	case base != "":
	case cfg.Endpoint != "":
		base = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3Store{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  prefix,
		baseURL: strings.TrimRight(base, "/"),
	}
}

// Upload implements ObjectStore.
func (s *S3Store) Upload(ctx context.Context, filename string, data []byte, contentType string) (string, error) {
	key := s.prefix + ObjectName(filename)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object to S3: %w", err)
	}
	return s.baseURL + "/" + key, nil
}

// Owns implements Resolver.
func (s *S3Store) Owns(url string) bool {
	return strings.HasPrefix(url, s.baseURL+"/")
}

// Fetch implements Fetcher for URLs produced by Upload.
func (s *S3Store) Fetch(ctx context.Context, url string) ([]byte, error) {
	if !s.Owns(url) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, url)
	}
	key := strings.TrimPrefix(url, s.baseURL+"/")
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to download object from S3: %w", err)
	}
	defer out.Body.Close()
	return readLimited(out.Body, s.MaxBytes)
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}
