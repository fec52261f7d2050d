// Package objectstore uploads finished output files to S3-compatible
// storage.
package objectstore

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/couchcryptid/epa-data-etl/internal/config"
	"github.com/couchcryptid/epa-data-etl/internal/observability"
	"github.com/couchcryptid/epa-data-etl/internal/sink"
)

// bucketClient is the subset of *minio.Client used by Uploader.
type bucketClient interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Uploader copies output files into a bucket under an optional prefix.
// It implements pipeline.Uploader.
type Uploader struct {
	client      bucketClient
	bucket      string
	prefix      string
	runID       string
	bucketReady bool
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewUploader creates a MinIO client for cfg. No connection is made until
// the first upload.
func NewUploader(cfg config.ObjectStore, runID string, metrics *observability.Metrics, logger *slog.Logger) (*Uploader, error) {
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("object store client: %w", err)
	}
	return newUploader(cli, cfg.Bucket, cfg.Prefix, runID, metrics, logger), nil
}

func newUploader(client bucketClient, bucket, prefix, runID string, metrics *observability.Metrics, logger *slog.Logger) *Uploader {
	return &Uploader{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		runID:   runID,
		metrics: metrics,
		logger:  logger,
	}
}

// Upload puts the file at localPath into the bucket, creating the bucket on
// first use. The object key is the prefix joined with the file name.
func (u *Uploader) Upload(ctx context.Context, localPath string) error {
	if err := u.ensureBucket(ctx); err != nil {
		return err
	}

	key := ObjectKey(u.prefix, localPath)
	info, err := u.client.FPutObject(ctx, u.bucket, key, localPath, putOptions(localPath, u.runID))
	if err != nil {
		return fmt.Errorf("upload %s to %s/%s: %w", localPath, u.bucket, key, err)
	}
	u.metrics.ArtifactsUploaded.Inc()
	u.logger.Info("output uploaded", "bucket", u.bucket, "key", key, "bytes", info.Size)
	return nil
}

func (u *Uploader) ensureBucket(ctx context.Context) error {
	if u.bucketReady {
		return nil
	}
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", u.bucket, err)
	}
	if !exists {
		if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", u.bucket, err)
		}
		u.logger.Info("bucket created", "bucket", u.bucket)
	}
	u.bucketReady = true
	return nil
}

// ObjectKey returns the key a local file is stored under.
func ObjectKey(prefix, localPath string) string {
	return path.Join(prefix, filepath.Base(localPath))
}

func putOptions(localPath, runID string) minio.PutObjectOptions {
	opts := minio.PutObjectOptions{
		ContentType:  "text/csv",
		UserMetadata: map[string]string{"run-id": runID},
	}
	if sink.FormatFor(localPath) == sink.FormatJSON {
		opts.ContentType = "application/x-ndjson"
	}
	if sink.Compressed(localPath) {
		opts.ContentEncoding = "gzip"
	}
	return opts
}
