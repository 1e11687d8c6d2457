package report

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mohamedkhairy/stock-isolator/pkg/logger"
)

// ObjectUploader uploads one object. It is satisfied by *manager.Uploader.
type ObjectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Sink copies generated report files to a bucket
type S3Sink struct {
	uploader ObjectUploader
	bucket   string
	prefix   string
}

// NewS3Sink creates a sink using the default AWS credential chain
func NewS3Sink(ctx context.Context, bucket, prefix, region string) (*S3Sink, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewS3SinkWithUploader(manager.NewUploader(s3.NewFromConfig(cfg)), bucket, prefix)
}

// NewS3SinkWithUploader creates a sink on top of an existing uploader
func NewS3SinkWithUploader(uploader ObjectUploader, bucket, prefix string) (*S3Sink, error) {
	if uploader == nil {
		return nil, fmt.Errorf("uploader cannot be nil")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	return &S3Sink{uploader: uploader, bucket: bucket, prefix: prefix}, nil
}

// Key returns the object key used for a local file
func (s *S3Sink) Key(file string) string {
	return path.Join(strings.TrimSuffix(s.prefix, "/"), filepath.Base(file))
}

// Upload copies a local file and returns its s3:// location
func (s *S3Sink) Upload(ctx context.Context, file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()

	key := s.Key(file)
	if _, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f,
	}); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", file, err)
	}

	location := fmt.Sprintf("s3://%s/%s", s.bucket, key)
	logger.Info("Uploaded report", logger.String("location", location))
	return location, nil
}
