package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pribylovaa/authenticator/internal/email"
	"github.com/pribylovaa/authenticator/internal/pkg/log"
	"github.com/pribylovaa/authenticator/internal/pkg/redact"
	"github.com/pribylovaa/authenticator/internal/storage"
	"github.com/pribylovaa/authenticator/internal/tokens"
)

// RequestPasswordChange отправляет активному пользователю ссылку сброса пароля.
// Для неизвестного адреса молча завершается успехом.
func (s *Service) RequestPasswordChange(ctx context.Context, rawEmail string) error {
	const op = "service.password.RequestPasswordChange"

	normEmail, err := validateEmail(rawEmail)
	if err != nil {
		return fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	lg := log.Op(ctx, op, slog.String("email", redact.Email(normEmail)))

	user, err := s.users.UserByEmail(ctx, normEmail, true)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Info("password_reset_skipped")
			return nil
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.tokens.Issue(ctx, user.ID, tokens.PurposePasswordReset, s.cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	link := s.link(confirmPasswordPath, token)
	if err := s.notifier.SendPasswordReset(ctx, email.Recipient{Email: user.Email, Name: user.Name}, link, s.cfg.TokenTTL); err != nil {
		lg.Error("password_reset_email_failed", slog.String("err", err.Error()))
		return fmt.Errorf("%s: %w: %w", op, ErrNotificationFailed, err)
	}

	lg.Info("password_reset_requested", slog.String("user_id", user.ID.String()))

	return nil
}

// ConfirmPasswordChange погашает ссылку из письма и выдаёт короткоживущий
// токен смены пароля, который фронтенд предъявит вместе с новым паролем.
func (s *Service) ConfirmPasswordChange(ctx context.Context, token string) (string, error) {
	const op = "service.password.ConfirmPasswordChange"

	uid, err := s.tokens.Verify(ctx, token, tokens.PurposePasswordReset)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.users.UserByID(ctx, uid, true); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	changeToken, err := s.tokens.Issue(ctx, uid, tokens.PurposePasswordChange, s.cfg.PasswordChangeTTL)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return changeToken, nil
}

// ChangePassword меняет пароль по токену смены пароля. Пароль проверяется
// до погашения токена: слабый пароль не сжигает токен.
func (s *Service) ChangePassword(ctx context.Context, token, newPassword string) error {
	const op = "service.password.ChangePassword"

	if err := validatePassword(newPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	uid, err := s.tokens.Verify(ctx, token, tokens.PurposePasswordChange)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	hashed, err := hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.users.UpdatePassword(ctx, uid, hashed); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	log.Op(ctx, op).Info("password_changed", slog.String("user_id", uid.String()))

	return nil
}
