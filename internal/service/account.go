package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/pribylovaa/authenticator/internal/models"
	"github.com/pribylovaa/authenticator/internal/pkg/log"
	"github.com/pribylovaa/authenticator/internal/storage"
)

// sniffLen — столько байт читает http.DetectContentType.
const sniffLen = 512

var allowedThumbnailTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

// Upload — загружаемый файл миниатюры.
type Upload struct {
	Reader   io.Reader
	Size     int64
	Filename string
}

// UpdateAccountInput — частичное обновление: nil-поле не меняется.
type UpdateAccountInput struct {
	Name      *string
	Thumbnail *Upload
}

// UpdateAccount обновляет имя и/или миниатюру активного пользователя.
// Новая миниатюра загружается до записи в БД; при ошибке записи она удаляется,
// после успешной записи удаляется прежняя.
func (s *Service) UpdateAccount(ctx context.Context, id uuid.UUID, in UpdateAccountInput) (*Account, error) {
	const op = "service.account.UpdateAccount"

	if in.Name == nil && in.Thumbnail == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidInput)
	}

	var upd models.UserUpdate

	if in.Name != nil {
		name, err := normalizeName(*in.Name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		upd.Name = &name
	}

	var (
		body        io.Reader
		contentType string
	)

	if in.Thumbnail != nil {
		var err error
		body, contentType, err = s.inspectThumbnail(in.Thumbnail)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	current, err := s.users.UserByID(ctx, id, true)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg := log.Op(ctx, op, slog.String("user_id", id.String()))

	var newKey string
	if body != nil {
		newKey, err = s.avatars.UploadThumbnail(ctx, id, body, in.Thumbnail.Size, contentType)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		upd.Thumbnail = &newKey
	}

	updated, err := s.users.UpdateUser(ctx, id, upd)
	if err != nil {
		if newKey != "" {
			if delErr := s.avatars.DeleteThumbnail(ctx, newKey); delErr != nil {
				lg.Warn("thumbnail_rollback_failed", slog.String("key", newKey), slog.String("err", delErr.Error()))
			}
		}

		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if newKey != "" && current.Thumbnail != "" && current.Thumbnail != newKey {
		if err := s.avatars.DeleteThumbnail(ctx, current.Thumbnail); err != nil {
			lg.Warn("old_thumbnail_delete_failed", slog.String("key", current.Thumbnail), slog.String("err", err.Error()))
		}
	}

	lg.Info("account_updated", slog.Bool("name", upd.Name != nil), slog.Bool("thumbnail", upd.Thumbnail != nil))

	return s.account(updated), nil
}

// inspectThumbnail проверяет размер и тип по содержимому и возвращает
// поток, эквивалентный исходному.
func (s *Service) inspectThumbnail(up *Upload) (io.Reader, string, error) {
	if up.Reader == nil || up.Size <= 0 {
		return nil, "", ErrInvalidInput
	}

	if s.cfg.MaxThumbnailBytes > 0 && up.Size > s.cfg.MaxThumbnailBytes {
		return nil, "", ErrThumbnailTooLarge
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(up.Reader, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, "", err
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	if _, ok := allowedThumbnailTypes[contentType]; !ok {
		return nil, "", ErrUnsupportedThumbnail
	}

	return io.MultiReader(bytes.NewReader(head), up.Reader), contentType, nil
}
