package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/D3nams/vidnet-sub001/internal/config"
)

// endpointURL adds a scheme to a bare host:port endpoint
func endpointURL(endpoint string, useSSL bool) string {
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

// ErrNotFound is returned when an object does not exist
var ErrNotFound = errors.New("object not found")

// Client wraps S3 operations on the snapshot bucket
type Client struct {
	client *s3.Client
	bucket string
}

// New creates a new S3 client
func New(cfg config.S3Config) (*Client, error) {
	if cfg.BucketSnapshot == "" {
		return nil, fmt.Errorf("snapshot bucket is required")
	}

	endpoint := endpointURL(cfg.Endpoint, cfg.UseSSL)
	customResolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               endpoint,
				HostnameImmutable: true,
				SigningRegion:     cfg.Region,
			}, nil
		},
	)

	awsCfg := aws.Config{
		Region:                      cfg.Region,
		Credentials:                 credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		EndpointResolverWithOptions: customResolver,
		RetryMaxAttempts:            3,
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	return &Client{
		client: client,
		bucket: cfg.BucketSnapshot,
	}, nil
}

// PutJSON marshals v and stores it under key in the snapshot bucket
func (c *Client) PutJSON(ctx context.Context, key string, v any) (*UploadResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal object: %w", err)
	}
	return c.put(ctx, key, data)
}

func (c *Client) put(ctx context.Context, key string, data []byte) (*UploadResult, error) {
	output, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(detectContentType(key)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload: %w", err)
	}

	return &UploadResult{
		Bucket: c.bucket,
		Key:    key,
		ETag:   aws.ToString(output.ETag),
		Size:   int64(len(data)),
	}, nil
}

// GetJSON reads the object under key and unmarshals it into v
func (c *Client) GetJSON(ctx context.Context, key string, v any) error {
	output, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get object: %w", err)
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return fmt.Errorf("failed to read object: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode object: %w", err)
	}
	return nil
}

// Health checks S3 connectivity
func (c *Client) Health(ctx context.Context) error {
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	return err
}

// Bucket returns the snapshot bucket
func (c *Client) Bucket() string {
	return c.bucket
}

// UploadResult holds the result of an upload operation
type UploadResult struct {
	Bucket string
	Key    string
	ETag   string
	Size   int64
}

// detectContentType returns content type based on file extension
func detectContentType(key string) string {
	contentTypes := map[string]string{
		".json": "application/json",
		".txt":  "text/plain",
	}
	if ct, ok := contentTypes[filepath.Ext(key)]; ok {
		return ct
	}
	return "application/octet-stream"
}
