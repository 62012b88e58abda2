package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/couchcryptid/issue-report-service/internal/domain"
)

// s3API is the subset of *s3.Client used by S3Sink.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Sink stores blobs as objects under an optional key prefix.
type S3Sink struct {
	client   s3API
	bucket   string
	prefix   string
	maxBytes int64
}

// NewS3Sink returns a sink writing to bucket. Keys are prefix joined with the
// generated blob name.
func NewS3Sink(client *s3.Client, bucket, prefix string, maxBytes int64) *S3Sink {
	return &S3Sink{client: client, bucket: bucket, prefix: prefix, maxBytes: maxBytes}
}

func (s *S3Sink) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Store uploads r as a new object with a generated name.
func (s *S3Sink) Store(ctx context.Context, r io.Reader, declaredName string) (string, error) {
	name, err := newName(declaredName)
	if err != nil {
		return "", err
	}
	data, err := readLimited(r, s.maxBytes)
	if err != nil {
		return "", err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(name)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(mime.TypeByExtension(path.Ext(name))),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return name, nil
}

// Remove deletes the object. S3 deletes are idempotent.
func (s *S3Sink) Remove(ctx context.Context, name string) error {
	if !domain.ValidBlobName(name) {
		return fmt.Errorf("%w: blob name %q", domain.ErrValidation, name)
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// Retrieve streams the object body. The caller closes it.
func (s *S3Sink) Retrieve(ctx context.Context, name string) (io.ReadCloser, error) {
	if !domain.ValidBlobName(name) {
		return nil, domain.ErrImageNotFound
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if isNotFound(err) {
		return nil, domain.ErrImageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	return out.Body, nil
}

// Exists reports whether the object is present.
func (s *S3Sink) Exists(ctx context.Context, name string) (bool, error) {
	if !domain.ValidBlobName(name) {
		return false, nil
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("head object: %w", err)
	}
	return true, nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &notFound)
}
