package store

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Config holds configuration for the S3 publisher.
type S3Config struct {
	// Bucket and Region identify where objects land; both are part of
	// the public URL.
	Bucket string
	Region string

	// Static credentials. Empty falls back to the SDK's default chain
	// (~/.aws/credentials, instance roles).
	AccessKeyID     string
	SecretAccessKey string

	// Endpoint overrides the AWS endpoint; combined with
	// ForcePathStyle it points tests at a local server.
	Endpoint       string
	ForcePathStyle bool
}

// S3Publisher uploads audio objects to one bucket. URLs come from a
// fixed template; no existence check is ever made.
type S3Publisher struct {
	client *s3.S3
	bucket string
	region string
}

// NewS3Publisher creates an S3 publisher.
func NewS3Publisher(config S3Config) (*S3Publisher, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket not set")
	}
	if config.Region == "" {
		return nil, fmt.Errorf("s3 region not set")
	}

	awsConfig := &aws.Config{Region: aws.String(config.Region)}
	if config.AccessKeyID != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(config.AccessKeyID, config.SecretAccessKey, "")
	}
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
	}
	if config.ForcePathStyle {
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}

	return &S3Publisher{
		client: s3.New(sess),
		bucket: config.Bucket,
		region: config.Region,
	}, nil
}

// Publish uploads data under key and returns the object's public URL.
func (p *S3Publisher) Publish(ctx context.Context, key string, data []byte) (string, error) {
	_, err := p.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(key)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return p.ObjectURL(key), nil
}

// ObjectURL builds the public URL for key from the bucket template.
func (p *S3Publisher) ObjectURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.bucket, p.region, key)
}

// BaseURL returns the bucket's public URL root.
func (p *S3Publisher) BaseURL() string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", p.bucket, p.region)
}

// contentType derives the MIME type from the key extension.
func contentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".opus":
		return "audio/opus"
	case ".aac":
		return "audio/aac"
	case ".flac":
		return "audio/flac"
	default:
		return "application/octet-stream"
	}
}

// Ensure S3Publisher implements the Publisher interface
var _ Publisher = (*S3Publisher)(nil)
