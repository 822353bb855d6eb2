package kv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/coursestore/internal/common"
)

// S3API is the subset of *s3.Client used by S3Store.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Options configures OpenS3.
type S3Options struct {
	Bucket       string
	Prefix       string
	Region       string
	BaseEndpoint string // e.g. a MinIO URL; empty for AWS
	AccessKey    string
	SecretKey    string
}

// S3Store keeps every key as one object. CompareAndSwap relies on S3
// conditional writes (If-Match / If-None-Match).
type S3Store struct {
	client S3API
	bucket string
	prefix string
}

func NewS3Store(client S3API, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

var loadDefaultAWSConfig = config.LoadDefaultConfig

func OpenS3(ctx context.Context, o S3Options) (*S3Store, error) {
	if o.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(o.Region)}
	if o.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.BaseEndpoint != "" {
			so.BaseEndpoint = aws.String(o.BaseEndpoint)
			so.UsePathStyle = true
		}
	})

	return NewS3Store(client, o.Bucket, o.Prefix), nil
}

func (s *S3Store) objectKey(key string) string {
	return s.prefix + key
}

// fetch returns the object body and ETag, or (nil, "", nil) when absent.
func (s *S3Store) fetch(ctx context.Context, key string) ([]byte, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if isS3NotFound(err) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to get kv[%s]: %w", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read kv[%s]: %w", key, err)
	}
	return body, aws.ToString(out.ETag), nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	body, _, err := s.fetch(ctx, key)
	return body, err
}

func (s *S3Store) put(ctx context.Context, key string, value []byte, ifMatch, ifNoneMatch *string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        bytes.NewReader(value),
		ContentType: aws.String("application/json"),
		IfMatch:     ifMatch,
		IfNoneMatch: ifNoneMatch,
	})
	if isS3PreconditionFailed(err) {
		return common.ErrVersionConflict
	}
	if err != nil {
		return fmt.Errorf("failed to put kv[%s]: %w", key, err)
	}
	return nil
}

func (s *S3Store) Set(ctx context.Context, key string, value []byte) error {
	return s.put(ctx, key, value, nil, nil)
}

func (s *S3Store) remove(ctx context.Context, key string, ifMatch *string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket:  aws.String(s.bucket),
		Key:     aws.String(s.objectKey(key)),
		IfMatch: ifMatch,
	})
	if isS3PreconditionFailed(err) {
		return common.ErrVersionConflict
	}
	if err != nil && !isS3NotFound(err) {
		return fmt.Errorf("failed to delete kv[%s]: %w", key, err)
	}
	return nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	return s.remove(ctx, key, nil)
}

func (s *S3Store) CompareAndSwap(ctx context.Context, key string, expected, value []byte) error {
	if expected == nil {
		if value == nil {
			cur, _, err := s.fetch(ctx, key)
			if err != nil {
				return err
			}
			if cur != nil {
				return common.ErrVersionConflict
			}
			return nil
		}
		return s.put(ctx, key, value, nil, aws.String("*"))
	}

	cur, etag, err := s.fetch(ctx, key)
	if err != nil {
		return err
	}
	if cur == nil || !bytes.Equal(cur, expected) {
		return common.ErrVersionConflict
	}

	// The ETag pins the write to the exact version compared above.
	if value == nil {
		return s.remove(ctx, key, aws.String(etag))
	}
	return s.put(ctx, key, value, aws.String(etag), nil)
}

func (s *S3Store) objectKeys(ctx context.Context) ([]string, error) {
	var keys []string
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list kv objects: %w", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, strings.TrimPrefix(aws.ToString(obj.Key), s.prefix))
		}
	}
	return keys, nil
}

func (s *S3Store) List(ctx context.Context) (map[string][]byte, error) {
	keys, err := s.objectKeys(ctx)
	if err != nil {
		return nil, err
	}

	result := make(map[string][]byte, len(keys))
	for _, k := range keys {
		v, _, err := s.fetch(ctx, k)
		if err != nil {
			return nil, err
		}
		if v != nil {
			result[k] = v
		}
	}
	return result, nil
}

func (s *S3Store) Clear(ctx context.Context) error {
	keys, err := s.objectKeys(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := s.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

func (s *S3Store) Close() error { return nil }

func isS3NotFound(err error) bool {
	if err == nil {
		return false
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

func isS3PreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	return false
}
