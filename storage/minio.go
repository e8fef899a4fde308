package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"Melodia/config"
	"Melodia/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore is a BlobStore on a MinIO (or any S3 compatible) bucket.
type MinioStore struct {
	client     *minio.Client
	bucketName string
	publicBase string // e.g. http://127.0.0.1:9000
	now        func() time.Time
}

// NewMinioStore connects to MinIO and makes sure the bucket exists.
func NewMinioStore(ctx context.Context, cfg *config.Config) (*MinioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("[Storage] bucket created", logger.String("bucket", cfg.MinioBucket))
	}

	return &MinioStore{
		client:     client,
		bucketName: cfg.MinioBucket,
		publicBase: strings.TrimRight(cfg.MinioPublicURL, "/"),
		now:        time.Now,
	}, nil
}

func (m *MinioStore) Upload(ctx context.Context, folder, filename, contentType string, r io.Reader, size int64) (string, error) {
	key := ObjectKey(folder, filename, m.now())
	_, err := m.client.PutObject(ctx, m.bucketName, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return m.urlFor(key), nil
}

func (m *MinioStore) Delete(ctx context.Context, url string) error {
	key, ok := m.keyFor(url)
	if !ok {
		return ErrForeignURL
	}
	if err := m.client.RemoveObject(ctx, m.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (m *MinioStore) urlFor(key string) string {
	return m.publicBase + "/" + m.bucketName + "/" + key
}

// keyFor reverses urlFor.
func (m *MinioStore) keyFor(url string) (string, bool) {
	prefix := m.publicBase + "/" + m.bucketName + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	return key, key != ""
}
