// Package s3 implements mediastore.Store on an S3-compatible bucket.
package s3

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/makwanagautam41/SnapLink-sub001/internal/mediastore"
	"github.com/makwanagautam41/SnapLink-sub001/internal/model"
)

// Config configures an S3 media store.
type Config struct {
	// Bucket holds all story media.
	Bucket string

	// Region is the AWS region. Defaults to us-east-1.
	Region string

	// Endpoint is the S3 endpoint URL (e.g. "http://localhost:9000" for MinIO).
	// If empty, uses the default AWS endpoint for the region.
	Endpoint string

	// AccessKeyID and SecretAccessKey are static credentials.
	// If either is empty, the default credential chain is used.
	AccessKeyID     string
	SecretAccessKey string

	// UsePathStyle enables path-style addressing (required for MinIO).
	UsePathStyle bool

	// ImagePrefix and VideoPrefix select the key namespace per media kind.
	// Empty values fall back to "images/" and "videos/".
	ImagePrefix string
	VideoPrefix string

	// MaxAttempts caps SDK retries per request. Zero keeps the SDK default.
	MaxAttempts int
}

// Store implements mediastore.Store using AWS S3.
type Store struct {
	client   *s3.Client
	bucket   string
	prefixes mediastore.Prefixes
	closed   bool
	mu       sync.RWMutex
}

// New creates a new S3 media store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket name is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// S3 does not return checksums for delete responses.
		o.DisableLogOutputChecksumValidationSkipped = true
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.MaxAttempts > 0 {
			o.RetryMaxAttempts = cfg.MaxAttempts
		}
	})

	prefixes := mediastore.DefaultPrefixes()
	if cfg.ImagePrefix != "" {
		prefixes.Image = cfg.ImagePrefix
	}
	if cfg.VideoPrefix != "" {
		prefixes.Video = cfg.VideoPrefix
	}

	return &Store{
		client:   client,
		bucket:   cfg.Bucket,
		prefixes: prefixes,
	}, nil
}

func (s *Store) checkClosed() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return mediastore.ErrStoreClosed
	}
	return nil
}

// DeleteObject removes the object for externalID under kind's prefix.
// Only a NoSuchKey answer is treated as already deleted. A 404 naming the
// bucket, or naming nothing, is returned as an error so the story record
// is kept.
func (s *Store) DeleteObject(ctx context.Context, externalID string, kind model.MediaKind) error {
	if err := s.checkClosed(); err != nil {
		return err
	}
	if externalID == "" {
		return &mediastore.ObjectError{Op: "Delete", Err: mediastore.ErrInvalidID}
	}

	key := mediastore.ObjectKey(s.prefixes, externalID, kind)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if apiErrorCode(err) == "NoSuchKey" {
			return nil
		}
		return wrapError("Delete", key, err)
	}
	return nil
}

// CheckReady verifies the bucket is reachable with the configured credentials.
func (s *Store) CheckReady(ctx context.Context) error {
	if err := s.checkClosed(); err != nil {
		return err
	}
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		wrapped := wrapError("HeadBucket", s.bucket, err)
		if errors.Is(wrapped, mediastore.ErrNotFound) {
			return &mediastore.ObjectError{Op: "HeadBucket", Key: s.bucket, Err: mediastore.ErrBucketNotFound}
		}
		return wrapped
	}
	return nil
}

// Close releases resources associated with the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// apiErrorCode returns the S3 error code carried by err, or "".
func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func wrapError(op, key string, err error) error {
	switch apiErrorCode(err) {
	case "NoSuchBucket":
		return &mediastore.ObjectError{Op: op, Key: key, Err: mediastore.ErrBucketNotFound}
	case "NoSuchKey", "NotFound":
		return &mediastore.ObjectError{Op: op, Key: key, Err: mediastore.ErrNotFound}
	case "AccessDenied":
		return &mediastore.ObjectError{Op: op, Key: key, Err: mediastore.ErrAccessDenied}
	}

	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		return &mediastore.ObjectError{Op: op, Key: key, Err: mediastore.ErrBucketNotFound}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return &mediastore.ObjectError{Op: op, Key: key, Err: mediastore.ErrNotFound}
		case http.StatusForbidden:
			return &mediastore.ObjectError{Op: op, Key: key, Err: mediastore.ErrAccessDenied}
		}
	}

	return &mediastore.ObjectError{Op: op, Key: key, Err: err}
}

var (
	_ mediastore.Store            = (*Store)(nil)
	_ mediastore.ReadinessChecker = (*Store)(nil)
)
