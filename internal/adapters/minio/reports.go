// Package minio stores exported resolution reports in S3-compatible object
// storage.
package minio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/priyanshu-3/SkinCare/internal/pkg/metrics"
)

// Options configures the report store.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// ReportStore implements ports.ReportStore on a single bucket.
type ReportStore struct {
	client *minio.Client
	bucket string
	region string
}

// NewReportStore creates a client for the configured endpoint. It does not
// contact the server; call EnsureBucket for that.
func NewReportStore(opts Options) (*ReportStore, error) {
	if opts.Endpoint == "" || opts.Bucket == "" {
		return nil, fmt.Errorf("minio: endpoint and bucket are required")
	}
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: create client: %w", err)
	}
	return &ReportStore{client: client, bucket: opts.Bucket, region: region}, nil
}

// EnsureBucket creates the report bucket if it does not exist yet.
func (s *ReportStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("minio: check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("minio: make bucket %s: %w", s.bucket, err)
	}
	slog.Info("created report bucket", "bucket", s.bucket)
	return nil
}

// PutReport uploads one report object.
func (s *ReportStore) PutReport(ctx context.Context, key, contentType string, r io.Reader, size int64) (err error) {
	defer func(start time.Time) { metrics.ObserveCollaborator("minio", start, err) }(time.Now())

	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("minio: put %s: %w", key, err)
	}
	slog.DebugContext(ctx, "report uploaded", "bucket", s.bucket, "key", key, "size", info.Size)
	return nil
}
