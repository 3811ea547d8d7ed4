package storage

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"

	"github.com/pribylovaa/authenticator/internal/models"
)

var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email).
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidArgument — объект не удовлетворяет ограничениям (тип/размер).
	ErrInvalidArgument = errors.New("invalid argument")
)

//go:generate mockgen -destination=../../mocks/storage.go -package=mocks github.com/pribylovaa/authenticator/internal/storage UserStorage,AvatarStorage

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создаёт пользователя и его профиль в одной транзакции.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по email с заданным признаком активности.
	UserByEmail(ctx context.Context, email string, active bool) (*models.User, error)
	// UserByID находит пользователя по ID с заданным признаком активности.
	UserByID(ctx context.Context, id uuid.UUID, active bool) (*models.User, error)
	// ActivateUser помечает пользователя активным.
	ActivateUser(ctx context.Context, id uuid.UUID) error
	// UpdatePassword меняет хэш пароля активного пользователя.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	// UpdateUser частично обновляет активного пользователя и возвращает результат.
	UpdateUser(ctx context.Context, id uuid.UUID, upd models.UserUpdate) (*models.User, error)
}

// Storage задаёт контракт работы с БД.
type Storage interface {
	UserStorage
	Ping(ctx context.Context) error
	Close()
}

// AvatarStorage — контракт хранения миниатюр в объектном хранилище.
type AvatarStorage interface {
	// UploadThumbnail загружает объект и возвращает его ключ.
	UploadThumbnail(ctx context.Context, userID uuid.UUID, r io.Reader, size int64, contentType string) (string, error)
	// DeleteThumbnail удаляет объект; отсутствие объекта ошибкой не считается.
	DeleteThumbnail(ctx context.Context, key string) error
	// ThumbnailURL возвращает публичный URL по ключу ("" для пустого ключа).
	ThumbnailURL(key string) string
}
