// Package objectstore uploads supply photos to an S3-compatible bucket and
// resolves their public URLs. Objects are written under a fixed prefix and
// are never cleaned up; stale uploads from deleted items are accepted.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// KeyPrefix is the fixed storage prefix for supply photos.
const KeyPrefix = "medical-supplies/"

// S3API is the subset of the S3 client used here, for testability.
type S3API interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config holds S3-compatible storage configuration.
type Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string

	// PublicBaseURL overrides the computed public URL prefix, for setups
	// where reads go through a CDN or a different host than writes.
	PublicBaseURL string
}

// Enabled reports whether the configuration is complete enough to upload.
func (c Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Store writes objects to a single fixed bucket.
type Store struct {
	client S3API
	cfg    Config
}

// New creates a Store from the given configuration.
func New(cfg Config) *Store {
	return &Store{client: newS3Client(cfg), cfg: cfg}
}

// NewWithClient creates a Store with an injected S3 client, for tests.
func NewWithClient(client S3API, cfg Config) *Store {
	return &Store{client: client, cfg: cfg}
}

func newS3Client(cfg Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Upload writes an object and returns its publicly resolvable URL.
func (s *Store) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}
	return s.URL(key), nil
}

// Delete removes an object. Failures are surfaced but callers treat deletes
// as best effort.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// URL returns the publicly resolvable URL for a key.
func (s *Store) URL(key string) string {
	if s.cfg.PublicBaseURL != "" {
		return strings.TrimSuffix(s.cfg.PublicBaseURL, "/") + "/" + key
	}
	if s.cfg.Endpoint != "" {
		return strings.TrimSuffix(s.cfg.Endpoint, "/") + "/" + s.cfg.Bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
}

// ObjectKey names an upload for a known item identity:
// medical-supplies/{id}-{timestamp}.{ext}. The extension describes the bytes
// actually stored, not the name of the original file.
func ObjectKey(itemID, ext string) string {
	return fmt.Sprintf("%s%s-%d.%s", KeyPrefix, itemID, time.Now().UnixMilli(), normalizeExt(ext))
}

// TempObjectKey names an upload whose item identity is not yet known:
// medical-supplies/temp-{timestamp}-{random}.{ext}. The random component
// keeps concurrently created drafts from colliding.
func TempObjectKey(ext string) string {
	random := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%stemp-%d-%s.%s", KeyPrefix, time.Now().UnixMilli(), random, normalizeExt(ext))
}

func normalizeExt(e string) string {
	e = strings.ToLower(strings.TrimPrefix(e, "."))
	if e == "" {
		return "jpg"
	}
	return e
}
