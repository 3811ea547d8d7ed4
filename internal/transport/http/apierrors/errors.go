// apierrors стандартизирует ответы об ошибках HTTP-слоя.
// На вход принимает доменную ошибку (service, tokens, oauth), на выход даёт:
//   - корректный HTTP-статус;
//   - короткий стабильный code для фронтенда;
//   - безопасное message без утечки деталей.
//
// Все ошибки одноразовых ссылок сводятся к одному сообщению: клиент не должен
// отличать подделку от истёкшей или уже использованной ссылки.
package apierrors

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pribylovaa/authenticator/internal/oauth"
	"github.com/pribylovaa/authenticator/internal/pkg/log"
	"github.com/pribylovaa/authenticator/internal/service"
	"github.com/pribylovaa/authenticator/internal/tokens"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// TokenMessage — единое сообщение для любой ошибки одноразовой ссылки.
const TokenMessage = "the link is invalid or has expired, please request a new one"

// APIError — единый формат для фронта.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

type mapping struct {
	target  error
	status  int
	code    string
	message string
}

// Порядок важен: первое совпадение по errors.Is.
var table = []mapping{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", "invalid email or password"},
	{service.ErrNotAuthenticated, http.StatusUnauthorized, "unauthenticated", "authentication required"},
	{oauth.ErrInvalidState, http.StatusUnauthorized, "invalid_state", "login session expired, please try again"},
	{service.ErrOAuthFailed, http.StatusBadGateway, "oauth_failed", "could not sign in with the provider"},
	{service.ErrInvalidEmail, http.StatusBadRequest, "invalid_email", "invalid email format"},
	{service.ErrEmptyPassword, http.StatusBadRequest, "empty_password", "password is required"},
	{service.ErrWeakPassword, http.StatusBadRequest, "weak_password",
		"password must be at least 8 characters and contain upper and lower case letters, a digit and a special character"},
	{service.ErrInvalidInput, http.StatusBadRequest, "invalid_argument", "invalid argument"},
	{service.ErrEmailTaken, http.StatusConflict, "already_exists", "a user with this email already exists"},
	{service.ErrUserNotFound, http.StatusNotFound, "not_found", "user not found"},
	{service.ErrThumbnailTooLarge, http.StatusRequestEntityTooLarge, "too_large", "thumbnail is too large"},
	{service.ErrUnsupportedThumbnail, http.StatusUnsupportedMediaType, "unsupported_media_type",
		"thumbnail must be a jpeg, png, gif or webp image"},
	{service.ErrNotificationFailed, http.StatusServiceUnavailable, "unavailable", "could not send email, try again later"},
	{tokens.ErrCacheUnavailable, http.StatusServiceUnavailable, "unavailable", "try again later"},
	{tokens.ErrNonceCollision, http.StatusServiceUnavailable, "unavailable", "try again later"},
	{context.Canceled, StatusClientClosedRequest, "canceled", "canceled"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"},
}

// IsToken сообщает, что ошибка относится к одноразовой ссылке (формат,
// подпись, срок, повторное использование).
func IsToken(err error) bool {
	return tokens.IsRejected(err) || tokens.IsLifecycle(err) || errors.Is(err, tokens.ErrInvalidInput)
}

// ToHTTP конвертирует ошибку в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil — программная ошибка вызова: 500/internal, чтобы не послать
//     "200 OK" с телом ошибки.
//   - ошибки токена — 400/invalid_token с единым сообщением.
//   - известные доменные ошибки — по таблице.
//   - прочее — 500/internal без деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return internal()
	}

	if IsToken(err) {
		return http.StatusBadRequest, ErrorResponse{
			Error: APIError{Code: "invalid_token", Message: TokenMessage},
		}
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge, ErrorResponse{
			Error: APIError{Code: "too_large", Message: "request body is too large"},
		}
	}

	for _, m := range table {
		if errors.Is(err, m.target) {
			return m.status, ErrorResponse{Error: APIError{Code: m.code, Message: m.message}}
		}
	}

	return internal()
}

func internal() (int, ErrorResponse) {
	return http.StatusInternalServerError, ErrorResponse{
		Error: APIError{Code: "internal", Message: "internal error"},
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет статус и тело, добавляет request_id из заголовка, если он есть.
// Ошибки 5xx логируются с исходным текстом.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	if status >= http.StatusInternalServerError && err != nil {
		log.From(r.Context()).Error("request_failed",
			slog.Int("status", status),
			slog.String("path", r.URL.Path),
			slog.String("err", err.Error()),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
