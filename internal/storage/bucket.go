// Package storage adapts an S3-compatible object store (MinIO) behind the
// narrow surface the ingest pipeline and generation orchestrator need:
// presigned URLs, existence checks, download-with-metadata, byte upload,
// and the copy+remove promotion pair used to move an upload from
// uploads/{doc_id}/ to processed/{doc_id}/.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// FileMeta describes an object's stat result.
type FileMeta struct {
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}

// Bucket is the adapter over a single bucket, grounded on the original
// source's MinioClientWrapper: separate internal and public endpoints so
// the backend talks to the store over its private network while clients
// resolve presigned URLs over the public one.
type Bucket struct {
	internal *minio.Client
	public   *minio.Client
	bucket   string
	log      *zap.Logger
}

// Config is the subset of config.Settings the bucket adapter needs.
type Config struct {
	InternalEndpoint string
	PublicEndpoint   string
	AccessKey        string
	SecretKey        string
	Bucket           string
	Secure           bool
}

// New connects both the internal and public MinIO clients and ensures the
// configured bucket exists, creating it on first run.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Bucket, error) {
	creds := credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")

	internalClient, err := minio.New(cfg.InternalEndpoint, &minio.Options{Creds: creds, Secure: cfg.Secure})
	if err != nil {
		return nil, fmt.Errorf("storage: internal client: %w", err)
	}
	publicClient, err := minio.New(cfg.PublicEndpoint, &minio.Options{Creds: creds, Secure: cfg.Secure})
	if err != nil {
		return nil, fmt.Errorf("storage: public client: %w", err)
	}

	b := &Bucket{internal: internalClient, public: publicClient, bucket: cfg.Bucket, log: log}

	exists, err := internalClient.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("storage: bucket exists check: %w", err)
	}
	if !exists {
		if err := internalClient.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("storage: make bucket: %w", err)
		}
		log.Info("bucket created", zap.String("bucket", cfg.Bucket))
	}

	return b, nil
}

// PresignedPutURL returns a client-resolvable URL for uploading key,
// signed against the public endpoint so browsers never talk to the
// internal one.
func (b *Bucket) PresignedPutURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := b.public.PresignedPutObject(ctx, b.bucket, key, expiry)
	if err != nil {
		return "", fmt.Errorf("storage: presign put %s: %w", key, err)
	}
	return u.String(), nil
}

// PresignedGetURL returns a client-resolvable download URL for key.
func (b *Bucket) PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := b.public.PresignedGetObject(ctx, b.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("storage: presign get %s: %w", key, err)
	}
	return u.String(), nil
}

// ObjectExists reports whether key exists in the bucket.
func (b *Bucket) ObjectExists(ctx context.Context, key string) (bool, error) {
	_, err := b.internal.StatObject(ctx, b.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return false, nil
		}
		return false, fmt.Errorf("storage: stat %s: %w", key, err)
	}
	return true, nil
}

// GetFile downloads key into destPath, creating parent directories, and
// returns its stat metadata.
func (b *Bucket) GetFile(ctx context.Context, key, destPath string) (FileMeta, error) {
	info, err := b.internal.StatObject(ctx, b.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return FileMeta{}, fmt.Errorf("storage: stat %s: %w", key, err)
	}

	if err := os.MkdirAll(destDir(destPath), 0o755); err != nil {
		return FileMeta{}, fmt.Errorf("storage: mkdir for %s: %w", destPath, err)
	}

	if err := b.internal.FGetObject(ctx, b.bucket, key, destPath, minio.GetObjectOptions{}); err != nil {
		return FileMeta{}, fmt.Errorf("storage: download %s: %w", key, err)
	}

	return FileMeta{
		Size:         info.Size,
		ETag:         info.ETag,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
	}, nil
}

// PutBytes uploads data under key and returns its s3:// URI.
func (b *Bucket) PutBytes(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := b.internal.PutObject(ctx, b.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("storage: put %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", b.bucket, key), nil
}

// Copy copies srcKey to dstKey within the bucket.
func (b *Bucket) Copy(ctx context.Context, srcKey, dstKey string) error {
	src := minio.CopySrcOptions{Bucket: b.bucket, Object: srcKey}
	dst := minio.CopyDestOptions{Bucket: b.bucket, Object: dstKey}
	if _, err := b.internal.CopyObject(ctx, dst, src); err != nil {
		return fmt.Errorf("storage: copy %s -> %s: %w", srcKey, dstKey, err)
	}
	return nil
}

// Remove deletes key from the bucket.
func (b *Bucket) Remove(ctx context.Context, key string) error {
	if err := b.internal.RemoveObject(ctx, b.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("storage: remove %s: %w", key, err)
	}
	return nil
}

// Reader opens a streaming reader over key; callers must close it.
func (b *Bucket) Reader(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := b.internal.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", key, err)
	}
	return obj, nil
}

func destDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
