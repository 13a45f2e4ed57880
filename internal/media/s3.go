package media

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/contentbridge/cms-migration-service/internal/models"
)

// s3Backend reads media from an S3 bucket, for sites whose uploads were
// offloaded to object storage.
type s3Backend struct {
	cfg    *models.ConnectionConfig
	client *s3.S3
}

func newS3Backend(cfg *models.ConnectionConfig) (*s3Backend, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &s3Backend{cfg: cfg, client: s3.New(sess)}, nil
}

// Connect verifies the bucket is reachable with the ambient credentials.
func (b *s3Backend) Connect() error {
	_, err := b.client.HeadBucket(&s3.HeadBucketInput{
		Bucket: aws.String(b.cfg.Bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to reach bucket %s: %w", b.cfg.Bucket, err)
	}
	return nil
}

func (b *s3Backend) Fetch(remotePath string) ([]byte, error) {
	key := strings.TrimPrefix(remotePath, "/")
	if b.cfg.Prefix != "" {
		key = path.Join(b.cfg.Prefix, key)
	}

	out, err := b.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", b.cfg.Bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read s3://%s/%s: %w", b.cfg.Bucket, key, err)
	}
	return data, nil
}

func (b *s3Backend) Close() error {
	// The S3 client holds no persistent connection.
	return nil
}
