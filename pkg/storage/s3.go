package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds configuration for S3 storage.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"` // Required for MinIO
	PublicURL       string `mapstructure:"public_url"`     // Browser-facing endpoint, optional
}

// S3Storage presigns uploads against S3 or MinIO.
type S3Storage struct {
	presignClient *s3.PresignClient
	bucket        string
	endpoint      string
	publicURL     string
	pathStyle     bool
	region        string
	now           func() time.Time
}

// NewS3Storage creates a new S3Storage instance.
func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Presigned URLs are followed by the browser, so sign against the public
	// endpoint when one is configured.
	endpoint := cfg.Endpoint
	if cfg.PublicURL != "" {
		endpoint = cfg.PublicURL
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Storage{
		presignClient: s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		endpoint:      endpoint,
		publicURL:     cfg.PublicURL,
		pathStyle:     cfg.UsePathStyle,
		region:        cfg.Region,
		now:           time.Now,
	}, nil
}

// PresignUpload returns a presigned PUT URL for direct client upload.
func (s *S3Storage) PresignUpload(ctx context.Context, key, contentType string, expires time.Duration) (*UploadURL, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	req, err := s.presignClient.PresignPutObject(ctx, input, func(opts *s3.PresignOptions) {
		opts.Expires = expires
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned upload URL: %w", err)
	}

	return &UploadURL{
		UploadURL: req.URL,
		PublicURL: s.ObjectURL(key),
		Key:       key,
		ExpiresAt: s.now().Add(expires),
	}, nil
}

// ObjectURL returns the URL an uploaded object is served from.
func (s *S3Storage) ObjectURL(key string) string {
	key = strings.TrimPrefix(key, "/")
	switch {
	case s.publicURL != "":
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(s.publicURL, "/"), s.bucket, key)
	case s.endpoint != "" && s.pathStyle:
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(s.endpoint, "/"), s.bucket, key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
	}
}

var _ Presigner = (*S3Storage)(nil)
