// minio реализует storage.AvatarStorage на базе MinIO/S3:
// миниатюры пользователей загружаются сервером (multipart проксируется),
// старые объекты удаляются после замены.
package minio

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pribylovaa/authenticator/internal/config"
	"github.com/pribylovaa/authenticator/internal/storage"
)

const keyPrefix = "media/user-avatars"

// AvatarStorage — адаптер MinIO для миниатюр.
type AvatarStorage struct {
	cfg    config.S3Config
	client *mclient.Client
}

// New создаёт клиент MinIO. Схема в endpoint определяет Secure;
// отсутствие бакета — ошибка (fail-fast).
func New(ctx context.Context, cfg config.S3Config) (*AvatarStorage, error) {
	const op = "storage.minio.New"

	endpoint, secure := cfg.Endpoint, cfg.UseSSL
	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" && u.Host != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	client, err := mclient.New(endpoint, &mclient.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !exists {
		return nil, fmt.Errorf("%s: bucket %q does not exist", op, cfg.Bucket)
	}

	return &AvatarStorage{cfg: cfg, client: client}, nil
}

// UploadThumbnail загружает миниатюру под ключом media/user-avatars/<uid>/<uuid><ext>.
func (s *AvatarStorage) UploadThumbnail(ctx context.Context, userID uuid.UUID, r io.Reader, size int64, contentType string) (string, error) {
	const op = "storage.minio.UploadThumbnail"

	ext, ok := extensions[contentType]
	if !ok || size <= 0 || size > s.cfg.MaxThumbnailBytes {
		return "", fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
	}

	key := path.Join(keyPrefix, userID.String(), uuid.NewString()+ext)

	if _, err := s.client.PutObject(ctx, s.cfg.Bucket, key, r, size, mclient.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return key, nil
}

// DeleteThumbnail удаляет объект. Ключи вне media/user-avatars/ не трогаются.
func (s *AvatarStorage) DeleteThumbnail(ctx context.Context, key string) error {
	const op = "storage.minio.DeleteThumbnail"

	if !strings.HasPrefix(key, keyPrefix+"/") {
		return fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
	}

	if err := s.client.RemoveObject(ctx, s.cfg.Bucket, key, mclient.RemoveObjectOptions{}); err != nil {
		if resp := mclient.ToErrorResponse(err); resp.Code == "NoSuchKey" || resp.StatusCode == 404 {
			return nil
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ThumbnailURL строит публичный URL: <public_base_url>/<bucket>/<key>.
func (s *AvatarStorage) ThumbnailURL(key string) string {
	return PublicURL(s.cfg.PublicBaseURL, s.cfg.Bucket, key)
}

// PublicURL — чистая функция построения URL объекта.
func PublicURL(base, bucket, key string) string {
	if key == "" {
		return ""
	}

	return strings.TrimRight(base, "/") + "/" + bucket + "/" + key
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var _ storage.AvatarStorage = (*AvatarStorage)(nil)
