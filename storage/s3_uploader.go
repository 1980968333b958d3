// Package storage provides the remote asset uploader used by the upload
// endpoint.
//
// s3_uploader.go implements the S3-backed uploader.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"imagerelay/core"
	"imagerelay/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// S3API is the subset of the S3 client the uploader needs.
// Narrowing the interface keeps the uploader testable without AWS.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader persists assets in an S3 bucket and returns a public URL.
//
// The public URL is built from PublicBaseURL when configured (a CDN front),
// falling back to the bucket's virtual-hosted address.
type S3Uploader struct {
	client        S3API
	bucket        string
	region        string
	publicBaseURL string
	logger        *logging.Logger
}

// NewS3Uploader creates an uploader from the relay configuration, loading
// AWS credentials from the default chain (environment, shared config, IAM).
//
// Returns an error if no bucket is configured or the credential chain
// cannot be resolved.
func NewS3Uploader(ctx context.Context, cfg *core.Config, logger *logging.Logger) (*S3Uploader, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage: config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("storage: logger cannot be nil")
	}
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("storage: S3 bucket is required; set S3_BUCKET")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to load AWS configuration: %w", err)
	}

	return &S3Uploader{
		client:        s3.NewFromConfig(awsCfg),
		bucket:        cfg.S3Bucket,
		region:        awsCfg.Region,
		publicBaseURL: cfg.S3PublicBaseURL,
		logger:        logger.Named("s3-uploader"),
	}, nil
}

// NewS3UploaderWithClient creates an uploader around an explicit client.
// Useful for testing with a stub S3API.
func NewS3UploaderWithClient(client S3API, bucket, region, publicBaseURL string, logger *logging.Logger) (*S3Uploader, error) {
	if client == nil {
		return nil, fmt.Errorf("storage: S3 client cannot be nil")
	}
	if bucket == "" {
		return nil, fmt.Errorf("storage: S3 bucket is required")
	}
	if logger == nil {
		logger = logging.NewTestLogger()
	}

	return &S3Uploader{
		client:        client,
		bucket:        bucket,
		region:        region,
		publicBaseURL: publicBaseURL,
		logger:        logger.Named("s3-uploader"),
	}, nil
}

// Upload stores the asset in the bucket under a fresh key and returns its
// public URL.
func (u *S3Uploader) Upload(ctx context.Context, params UploadParams) (string, error) {
	if len(params.Data) == 0 {
		return "", fmt.Errorf("storage: no data to upload")
	}

	key := objectKey(params.Filename)

	u.logger.Info("uploading asset to s3",
		zap.String("key", key),
		zap.String("content_type", params.ContentType),
		zap.Int("size", len(params.Data)))

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(params.ContentType),
		Body:        bytes.NewReader(params.Data),
	})
	if err != nil {
		return "", fmt.Errorf("storage: failed to upload asset: %w", err)
	}

	return u.publicURL(key), nil
}

// publicURL builds the client-facing reference for a stored key.
func (u *S3Uploader) publicURL(key string) string {
	if u.publicBaseURL != "" {
		return strings.TrimSuffix(u.publicBaseURL, "/") + "/" + key
	}
	if u.region != "" {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", u.bucket, key)
}

// Ensure S3Uploader implements Uploader at compile time.
var _ Uploader = (*S3Uploader)(nil)
