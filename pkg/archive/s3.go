package archive

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3Uploader ships sealed segments to an S3-compatible bucket.
type s3Uploader struct {
	client *s3.Client
	bucket string
	prefix string
}

// newS3Uploader builds a client from the archive's S3 settings. Static
// credentials and a custom endpoint cover MinIO and other self-hosted
// stores; leaving them empty falls through to the default AWS chain.
func newS3Uploader(ctx context.Context, cfg S3Config) (*s3Uploader, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(cfg.Endpoint))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.Endpoint != ""
	})

	return &s3Uploader{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// Upload puts one sealed segment file under the configured prefix.
func (u *s3Uploader) Upload(ctx context.Context, segmentPath string) error {
	file, err := os.Open(segmentPath)
	if err != nil {
		return fmt.Errorf("failed to open segment for upload: %w", err)
	}
	defer file.Close()

	key := path.Join(u.prefix, filepath.Base(segmentPath))
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload segment to S3: %w", err)
	}
	return nil
}
