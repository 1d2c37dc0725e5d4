// Package storage issues presigned download links for case attachments held
// in S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/scaregistry/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const defaultPresignExpiry = 15 * time.Minute

// S3Presigner signs GET requests for objects in one bucket. It never uploads;
// attachments are written by the field apps directly.
type S3Presigner struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	expiry        time.Duration
	logger        *zap.Logger
}

// Option configures an S3Presigner
type Option func(*S3Presigner)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *S3Presigner) {
		p.logger = logger
	}
}

// WithExpiry overrides the configured link lifetime
func WithExpiry(d time.Duration) Option {
	return func(p *S3Presigner) {
		p.expiry = d
	}
}

// NewS3Presigner builds a presigner from configuration. Static credentials are
// used when an access key is configured, otherwise the default AWS chain.
func NewS3Presigner(ctx context.Context, cfg *config.StorageConfig, opts ...Option) (*S3Presigner, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if (cfg.AccessKeyID == "") != (cfg.SecretKey == "") {
		return nil, errors.New("storage access key and secret key must be set together")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	p := &S3Presigner{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		expiry:        cfg.PresignExpiry,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.expiry <= 0 {
		p.expiry = defaultPresignExpiry
	}
	return p, nil
}

// PresignGet returns a time-limited download URL for objectKey
func (p *S3Presigner) PresignGet(ctx context.Context, objectKey string) (string, error) {
	key := strings.TrimPrefix(objectKey, "/")
	if key == "" {
		return "", errors.New("object key is required")
	}
	req, err := p.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(p.expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	p.logger.Debug("Presigned object", zap.String("object_key", key), zap.Duration("expires_in", p.expiry))
	return req.URL, nil
}

// Ping checks that the bucket is reachable with the configured credentials
func (p *S3Presigner) Ping(ctx context.Context) error {
	_, err := p.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(p.bucket)})
	if err != nil {
		return fmt.Errorf("storage bucket %s: %w", p.bucket, err)
	}
	return nil
}

// Bucket returns the bucket name
func (p *S3Presigner) Bucket() string {
	return p.bucket
}

// Expiry returns how long issued links stay valid
func (p *S3Presigner) Expiry() time.Duration {
	return p.expiry
}
