package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/avolkonsky/cloudvault/internal/common"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config holds the object-store connection settings.
type S3Config struct {
	AccessKey string
	SecretKey string
	Region    string
	// BaseEndpoint points at an S3-compatible server (e.g. MinIO);
	// empty means AWS proper.
	BaseEndpoint string
}

// S3Backend implements RemoteBackend over an S3-compatible object store.
type S3Backend struct {
	client *s3.Client
}

var loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

// NewS3Backend builds the backend client once; per-operation deadlines come
// from the caller's context.
func NewS3Backend(ctx context.Context, cfg S3Config) (*S3Backend, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		}
		// MinIO and friends route by path, not virtual host.
		o.UsePathStyle = true
	})

	return &S3Backend{client: client}, nil
}

// EnsureContainer creates the bucket if it does not exist yet.
func (b *S3Backend) EnsureContainer(ctx context.Context, container string) error {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(container)})
	if err == nil {
		return nil
	}

	_, err = b.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(container)})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		var exists *types.BucketAlreadyExists
		if errors.As(err, &owned) || errors.As(err, &exists) {
			return nil
		}
		return fmt.Errorf("create bucket %s: %w", container, err)
	}
	return nil
}

// Put uploads one object, creating the container first if needed.
func (b *S3Backend) Put(ctx context.Context, container, key string, data []byte, contentType string) error {
	if err := b.EnsureContainer(ctx, container); err != nil {
		return err
	}

	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(container),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object %s/%s: %w", container, key, err)
	}
	return nil
}

// Get opens one object for streaming.
func (b *S3Backend) Get(ctx context.Context, container, key string) (io.ReadCloser, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		var noBucket *types.NoSuchBucket
		if errors.As(err, &noKey) || errors.As(err, &noBucket) {
			return nil, fmt.Errorf("%w: %s/%s", common.ErrObjectNotFound, container, key)
		}
		return nil, fmt.Errorf("get object %s/%s: %w", container, key, err)
	}
	return out.Body, nil
}

// Delete removes one object. Deleting a missing object is not an error.
func (b *S3Backend) Delete(ctx context.Context, container, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s/%s: %w", container, key, err)
	}
	return nil
}
