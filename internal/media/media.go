// Package media abstracts proof-image storage. The core only depends on
// Uploader; the default implementation targets any S3-compatible store.
package media

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/playarena/backend/internal/config"
)

// Uploader stores an object and returns its public URL
type Uploader interface {
	Upload(ctx context.Context, key string, contentType string, data []byte) (string, error)
}

// S3Uploader stores objects in an S3-compatible bucket
type S3Uploader struct {
	client     *s3.Client
	bucket     string
	cdnBaseURL string
}

// NewS3Uploader builds the default uploader from config
func NewS3Uploader(cfg *config.Config) (*S3Uploader, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET not configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID, cfg.S3AccessKeySecret, "",
		)),
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
	})

	cdn := cfg.CDNBaseURL
	if cdn == "" {
		cdn = fmt.Sprintf("%s/%s", cfg.S3Endpoint, cfg.S3Bucket)
	}

	return &S3Uploader{client: client, bucket: cfg.S3Bucket, cdnBaseURL: cdn}, nil
}

// Upload puts the object and returns its CDN URL
func (u *S3Uploader) Upload(ctx context.Context, key string, contentType string, data []byte) (string, error) {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return fmt.Sprintf("%s/%s", u.cdnBaseURL, key), nil
}

// ScreenshotKey builds the object key for a proof image
func ScreenshotKey(matchID int) string {
	return fmt.Sprintf("screenshots/%d/%s.png", matchID, uuid.NewString())
}

// Default is the process-wide uploader, set during startup. Nil means
// uploads are disabled (screenshot submissions are rejected).
var Default Uploader

func SetDefault(u Uploader) {
	Default = u
}
