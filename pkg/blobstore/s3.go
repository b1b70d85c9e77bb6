package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/resilience"
)

const defaultPartSize = 8 << 20

// S3 is a Store backed by aws-sdk-go-v2. Every call runs under a deadline,
// a circuit breaker and, for idempotent operations, a retry loop.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	cfg      config.BlobConfig
	policy   *resilience.Policy
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewS3 connects to the bucket described by cfg. Endpoint may point at a
// MinIO server; leave it empty for AWS.
func NewS3(cfg config.BlobConfig, m *metrics.Metrics) *S3 {
	if cfg.PartSize < manager.MinUploadPartSize {
		cfg.PartSize = defaultPartSize
	}
	client := s3.NewFromConfig(aws.Config{Region: cfg.Region}, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.AccessKey != "" {
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	s := &S3{
		client: client,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = cfg.PartSize
		}),
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "blobstore", "bucket", cfg.Bucket),
	}
	notFoundIsFine := func(err error) bool { return !errors.Is(err, ErrNotFound) }
	s.policy = resilience.NewPolicy("blobstore", resilience.PolicyConfig{
		Breaker: resilience.CircuitBreakerConfig{
			OnStateChange: func(name string, state resilience.State) {
				if m != nil {
					m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
				}
			},
			IsFailure: notFoundIsFine,
		},
		Retry:   resilience.RetryConfig{Retryable: notFoundIsFine},
		Timeout: cfg.RequestTimeout,
	})
	return s
}

// call runs op under the blob store policy and counts the outcome.
func (s *S3) call(ctx context.Context, name string, idempotent bool, op func(ctx context.Context) error) error {
	err := s.policy.Do(ctx, name, idempotent, op)
	s.observe(name, err)
	return err
}

func (s *S3) observe(op string, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	s.metrics.BlobOperationsTotal.WithLabelValues(op, status).Inc()
}

// Put stores obj under key. Objects above the part size go through the
// multipart uploader.
func (s *S3) Put(ctx context.Context, key string, obj Object) error {
	return s.call(ctx, "put", true, func(ctx context.Context) error {
		input := &s3.PutObjectInput{
			Bucket:      aws.String(s.cfg.Bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(obj.Data),
			ContentType: aws.String(obj.ContentType),
		}
		if int64(len(obj.Data)) > s.cfg.PartSize {
			if _, err := s.uploader.Upload(ctx, input); err != nil {
				return fmt.Errorf("uploading %s: %w", key, err)
			}
			return nil
		}
		if _, err := s.client.PutObject(ctx, input); err != nil {
			return fmt.Errorf("putting %s: %w", key, err)
		}
		return nil
	})
}

// Get fetches the object stored under key.
func (s *S3) Get(ctx context.Context, key string) (Object, error) {
	var obj Object
	err := s.call(ctx, "get", true, func(ctx context.Context) error {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.cfg.Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return translate(key, err)
		}
		defer out.Body.Close()
		data, err := io.ReadAll(out.Body)
		if err != nil {
			return fmt.Errorf("reading %s: %w", key, err)
		}
		obj = Object{Data: data, ContentType: aws.ToString(out.ContentType)}
		return nil
	})
	return obj, err
}

// Delete removes key. Deleting a missing key succeeds.
func (s *S3) Delete(ctx context.Context, key string) error {
	return s.call(ctx, "delete", true, func(ctx context.Context) error {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.cfg.Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("deleting %s: %w", key, err)
		}
		return nil
	})
}

// Ping checks the bucket is reachable.
func (s *S3) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.cfg.Bucket)})
	if err != nil {
		return fmt.Errorf("bucket %s: %w", s.cfg.Bucket, err)
	}
	return nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *S3) EnsureBucket(ctx context.Context) error {
	if err := s.Ping(ctx); err == nil {
		return nil
	}
	input := &s3.CreateBucketInput{Bucket: aws.String(s.cfg.Bucket)}
	if s.cfg.Region != "" && s.cfg.Region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.cfg.Region),
		}
	}
	if _, err := s.client.CreateBucket(ctx, input); err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("creating bucket %s in region %s: %w", s.cfg.Bucket, s.cfg.Region, err)
	}
	s.logger.Info("bucket created")
	return nil
}

func translate(key string, err error) error {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return fmt.Errorf("getting %s: %w", key, err)
}
