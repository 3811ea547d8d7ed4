package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pribylovaa/authenticator/internal/models"
	"github.com/pribylovaa/authenticator/internal/pkg/log"
	"github.com/pribylovaa/authenticator/internal/pkg/redact"
	"github.com/pribylovaa/authenticator/internal/storage"
)

// GoogleLogin обменивает код авторизации на профиль Google и возвращает
// соответствующего пользователя. Неизвестный адрес регистрируется активным
// пользователем без пароля; неактивный аккаунт активируется, так как Google
// уже подтвердил владение адресом.
func (s *Service) GoogleLogin(ctx context.Context, code string) (*Account, error) {
	const op = "service.google.GoogleLogin"

	if code == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidInput)
	}

	if s.oauth == nil {
		return nil, fmt.Errorf("%s: %w: provider is not configured", op, ErrOAuthFailed)
	}

	info, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrOAuthFailed, err)
	}

	if !info.VerifiedEmail {
		return nil, fmt.Errorf("%s: %w: email is not verified", op, ErrOAuthFailed)
	}

	normEmail, err := validateEmail(info.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrOAuthFailed, err)
	}

	lg := log.Op(ctx, op, slog.String("email", redact.Email(normEmail)))

	user, err := s.googleUser(ctx, normEmail, info.Name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("google_login", slog.String("user_id", user.ID.String()))

	return s.account(user), nil
}

func (s *Service) googleUser(ctx context.Context, normEmail, name string) (*models.User, error) {
	user, err := s.users.UserByEmail(ctx, normEmail, true)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	inactive, err := s.users.UserByEmail(ctx, normEmail, false)
	switch {
	case err == nil:
		if err := s.users.ActivateUser(ctx, inactive.ID); err != nil {
			return nil, err
		}
		inactive.IsActive = true
		return inactive, nil
	case !errors.Is(err, storage.ErrNotFound):
		return nil, err
	}

	if name != "" {
		if n, err := normalizeName(name); err == nil {
			name = n
		} else {
			name = ""
		}
	}

	user = &models.User{
		ID:         uuid.New(),
		Email:      normEmail,
		Name:       name,
		IsActive:   true,
		DateJoined: s.now().UTC(),
	}

	if err := s.users.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			// Параллельный вход с тем же адресом успел создать пользователя.
			return s.users.UserByEmail(ctx, normEmail, true)
		}

		return nil, err
	}

	return user, nil
}
