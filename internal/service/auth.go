package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/google/uuid"

	"github.com/pribylovaa/authenticator/internal/email"
	"github.com/pribylovaa/authenticator/internal/models"
	"github.com/pribylovaa/authenticator/internal/pkg/log"
	"github.com/pribylovaa/authenticator/internal/pkg/redact"
	"github.com/pribylovaa/authenticator/internal/storage"
	"github.com/pribylovaa/authenticator/internal/tokens"
)

const (
	confirmRegistrationPath = "/api/auth/registration/register/confirm"
	confirmPasswordPath     = "/api/auth/password/confirm-change-password"
)

// RegisterInput — данные регистрации.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// RegisterUser создаёт неактивного пользователя и отправляет ссылку подтверждения.
// Сбой выпуска ссылки или отправки письма не отменяет регистрацию:
// пользователь может запросить новую ссылку (RegenerateToken).
func (s *Service) RegisterUser(ctx context.Context, in RegisterInput) (*Account, error) {
	const op = "service.auth.RegisterUser"

	normEmail, err := validateEmail(in.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	if err := validatePassword(in.Password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var name string
	if in.Name != "" {
		if name, err = normalizeName(in.Name); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	hashed, err := hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        normEmail,
		PasswordHash: hashed,
		Name:         name,
		DateJoined:   s.now().UTC(),
	}

	if err := s.users.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg := log.Op(ctx, op, slog.String("user_id", user.ID.String()))
	lg.Info("user_registered", slog.String("email", redact.Email(normEmail)))

	if err := s.sendVerification(ctx, user); err != nil {
		lg.Error("verification_email_failed", slog.String("err", err.Error()))
	}

	return s.account(user), nil
}

// RegenerateToken повторно отправляет ссылку подтверждения неактивному пользователю.
// Для неизвестного или уже активного адреса молча завершается успехом.
func (s *Service) RegenerateToken(ctx context.Context, rawEmail string) error {
	const op = "service.auth.RegenerateToken"

	normEmail, err := validateEmail(rawEmail)
	if err != nil {
		return fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	user, err := s.users.UserByEmail(ctx, normEmail, false)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Op(ctx, op).Info("regenerate_token_skipped", slog.String("email", redact.Email(normEmail)))
			return nil
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.sendVerification(ctx, user); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ConfirmRegistration проверяет ссылку подтверждения и активирует пользователя.
func (s *Service) ConfirmRegistration(ctx context.Context, token string) (uuid.UUID, error) {
	const op = "service.auth.ConfirmRegistration"

	uid, err := s.tokens.Verify(ctx, token, tokens.PurposeEmailConfirmation)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.users.ActivateUser(ctx, uid); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return uuid.Nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Op(ctx, op).Info("user_activated", slog.String("user_id", uid.String()))

	return uid, nil
}

// Login проверяет пароль активного пользователя.
func (s *Service) Login(ctx context.Context, rawEmail, password string) (*Account, error) {
	const op = "service.auth.Login"

	normEmail, err := validateEmail(rawEmail)
	if err != nil || password == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.users.UserByEmail(ctx, normEmail, true)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			checkPassword(string(dummyHash), password)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !user.HasPassword() || !checkPassword(user.PasswordHash, password) {
		log.Op(ctx, op).Info("login_failed", slog.String("user_id", user.ID.String()))
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	return s.account(user), nil
}

// CurrentUser возвращает активного пользователя по ID из сессии.
func (s *Service) CurrentUser(ctx context.Context, id uuid.UUID) (*Account, error) {
	const op = "service.auth.CurrentUser"

	user, err := s.users.UserByID(ctx, id, true)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.account(user), nil
}

func (s *Service) sendVerification(ctx context.Context, user *models.User) error {
	token, err := s.tokens.Issue(ctx, user.ID, tokens.PurposeEmailConfirmation, s.cfg.TokenTTL)
	if err != nil {
		return err
	}

	link := s.link(confirmRegistrationPath, token)
	if err := s.notifier.SendVerification(ctx, email.Recipient{Email: user.Email, Name: user.Name}, link, s.cfg.TokenTTL); err != nil {
		return fmt.Errorf("%w: %w", ErrNotificationFailed, err)
	}

	return nil
}

func (s *Service) link(path, token string) string {
	return s.cfg.BaseURL + path + "?token=" + url.QueryEscape(token)
}
