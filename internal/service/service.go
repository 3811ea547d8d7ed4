// service содержит бизнес-логику сервиса аутентификации: регистрацию
// с подтверждением e-mail, вход по паролю и через Google, сброс и смену
// пароля, обновление профиля с миниатюрой.
//
// Одноразовые ссылки выпускаются и проверяются через Tokens; сессии
// ведёт транспорт, сервис лишь возвращает проверенного пользователя.
// Service не хранит состояние запроса и безопасен для конкурентного
// использования при потокобезопасных зависимостях.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/authenticator/internal/email"
	"github.com/pribylovaa/authenticator/internal/models"
	"github.com/pribylovaa/authenticator/internal/oauth"
	"github.com/pribylovaa/authenticator/internal/storage"
	"github.com/pribylovaa/authenticator/internal/tokens"
)

var (
	// ErrInvalidCredentials — пара логин/пароль неверна или пользователь не найден.
	// Транспорт: HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidEmail — e-mail имеет некорректный формат. Транспорт: HTTP 400.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrWeakPassword — пароль не удовлетворяет политике сложности. Транспорт: HTTP 400.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword — пароль пустой. Транспорт: HTTP 400.
	ErrEmptyPassword = errors.New("password is empty")

	// ErrEmailTaken — e-mail уже занят. Транспорт: HTTP 409.
	ErrEmailTaken = errors.New("email already taken")

	// ErrNotAuthenticated — в сессии нет пользователя. Транспорт: HTTP 401.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrUserNotFound — активный пользователь не найден. Транспорт: HTTP 404.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidInput — пустой или некорректный запрос. Транспорт: HTTP 400.
	ErrInvalidInput = errors.New("invalid input")

	// ErrThumbnailTooLarge — миниатюра больше лимита. Транспорт: HTTP 413.
	ErrThumbnailTooLarge = errors.New("thumbnail is too large")

	// ErrUnsupportedThumbnail — тип файла не из jpeg/png/gif/webp. Транспорт: HTTP 415.
	ErrUnsupportedThumbnail = errors.New("unsupported thumbnail type")

	// ErrOAuthFailed — провайдер не подтвердил пользователя. Транспорт: HTTP 502.
	ErrOAuthFailed = errors.New("oauth login failed")

	// ErrNotificationFailed — письмо не отправлено. Транспорт: HTTP 503.
	ErrNotificationFailed = errors.New("notification failed")
)

//go:generate mockgen -source=service.go -destination=../../mocks/service.go -package=mocks

// Tokens — выпуск и проверка одноразовых токенов.
type Tokens interface {
	Issue(ctx context.Context, subjectID uuid.UUID, purpose tokens.Purpose, ttl time.Duration) (string, error)
	Verify(ctx context.Context, token string, purpose tokens.Purpose) (uuid.UUID, error)
}

// Notifier — отправка писем со ссылками.
type Notifier interface {
	SendVerification(ctx context.Context, to email.Recipient, link string, ttl time.Duration) error
	SendPasswordReset(ctx context.Context, to email.Recipient, link string, ttl time.Duration) error
}

// OAuthProvider — обмен кода авторизации на профиль пользователя.
type OAuthProvider interface {
	Exchange(ctx context.Context, code string) (*oauth.UserInfo, error)
}

var (
	_ Tokens        = (*tokens.Service)(nil)
	_ Notifier      = (*email.Notifier)(nil)
	_ OAuthProvider = (*oauth.Google)(nil)
)

// Config — параметры бизнес-логики.
type Config struct {
	// BaseURL — внешний адрес API для ссылок в письмах.
	BaseURL string
	// TokenTTL — срок ссылок из писем.
	TokenTTL time.Duration
	// PasswordChangeTTL — срок токена смены пароля после перехода по ссылке.
	PasswordChangeTTL time.Duration
	// MaxThumbnailBytes — лимит размера миниатюры.
	MaxThumbnailBytes int64
}

// Deps — зависимости Service.
type Deps struct {
	Users    storage.UserStorage
	Avatars  storage.AvatarStorage
	Tokens   Tokens
	Notifier Notifier
	// OAuth может быть nil, если вход через Google не сконфигурирован.
	OAuth OAuthProvider
}

// Service описывает бизнес-логику.
type Service struct {
	users    storage.UserStorage
	avatars  storage.AvatarStorage
	tokens   Tokens
	notifier Notifier
	oauth    OAuthProvider
	cfg      Config
	now      func() time.Time
}

// New создаёт новый экземпляр Service.
func New(deps Deps, cfg Config) *Service {
	return &Service{
		users:    deps.Users,
		avatars:  deps.Avatars,
		tokens:   deps.Tokens,
		notifier: deps.Notifier,
		oauth:    deps.OAuth,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Account — публичное представление пользователя.
type Account struct {
	ID           uuid.UUID
	Email        string
	Name         string
	ThumbnailURL string
	IsActive     bool
	IsStaff      bool
	IsSuperuser  bool
	DateJoined   time.Time
	ProfileID    uuid.UUID
}

func (s *Service) account(u *models.User) *Account {
	return &Account{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		ThumbnailURL: s.avatars.ThumbnailURL(u.Thumbnail),
		IsActive:     u.IsActive,
		IsStaff:      u.IsStaff,
		IsSuperuser:  u.IsSuperuser,
		DateJoined:   u.DateJoined,
		ProfileID:    u.Profile.ID,
	}
}
