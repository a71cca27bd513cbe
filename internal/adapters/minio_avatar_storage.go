package adapters

import (
	"chatapp/app/config"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioAvatarStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
	logger    *slog.Logger
}

func NewMinioAvatarStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*MinioAvatarStorage, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	storage := &MinioAvatarStorage{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicBase(cfg, endpoint),
		logger:    logger,
	}

	if err := storage.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return storage, nil
}

func (s *MinioAvatarStorage) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("bucket check: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("make bucket: %w", err)
	}
	s.logger.Info("avatar bucket created", "bucket", s.bucket)
	return nil
}

// UploadAvatar stores the image under the user's prefix and returns its
// public URL.
func (s *MinioAvatarStorage) UploadAvatar(ctx context.Context, userID, fileName, contentType string, body io.Reader, size int64) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("unsupported avatar content type %q", contentType)
	}

	key := avatarKey(userID, fileName, time.Now())

	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put avatar: %w", err)
	}

	s.logger.Debug("avatar stored", "userID", userID, "key", key)
	return s.publicURL + "/" + key, nil
}

func avatarKey(userID, fileName string, at time.Time) string {
	ext := strings.ToLower(path.Ext(fileName))
	return fmt.Sprintf("avatars/%s/%d%s", userID, at.UnixNano(), ext)
}

func publicBase(cfg config.StorageConfig, endpoint string) string {
	if cfg.PublicURL != "" {
		return strings.TrimSuffix(cfg.PublicURL, "/")
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, endpoint, cfg.Bucket)
}
