package aws

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/clipforge/video-pipeline/internal/config"
)

// NewAWSClient builds the S3 and presign clients from the pipeline's storage
// config. A non-empty Endpoint switches to path-style addressing for
// MinIO-compatible stores.
func NewAWSClient(ctx context.Context, c config.S3Config) (*s3.Client, *s3.PresignClient, error) {
	if c.InputBucket == "" || c.OutputBucket == "" {
		return nil, nil, fmt.Errorf("s3 config: input and output buckets are required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(c.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("s3 config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.UsePathStyle = true
			o.BaseEndpoint = &c.Endpoint
		}
	})
	return client, s3.NewPresignClient(client), nil
}
