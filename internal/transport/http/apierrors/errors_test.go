package apierrors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/authenticator/internal/oauth"
	"github.com/pribylovaa/authenticator/internal/service"
	"github.com/pribylovaa/authenticator/internal/tokens"
)

func wrap(err error) error { return fmt.Errorf("service.x.Op: %w", err) }

func TestToHTTP_Mapping(t *testing.T) {
	tcs := []struct {
		name       string
		in         error
		wantStatus int
		wantCode   string
	}{
		{"credentials", wrap(service.ErrInvalidCredentials), http.StatusUnauthorized, "invalid_credentials"},
		{"unauth", service.ErrNotAuthenticated, http.StatusUnauthorized, "unauthenticated"},
		{"state", oauth.ErrInvalidState, http.StatusUnauthorized, "invalid_state"},
		{"email", wrap(service.ErrInvalidEmail), http.StatusBadRequest, "invalid_email"},
		{"weak", wrap(service.ErrWeakPassword), http.StatusBadRequest, "weak_password"},
		{"empty_pw", wrap(service.ErrEmptyPassword), http.StatusBadRequest, "empty_password"},
		{"input", wrap(service.ErrInvalidInput), http.StatusBadRequest, "invalid_argument"},
		{"taken", wrap(service.ErrEmailTaken), http.StatusConflict, "already_exists"},
		{"not_found", wrap(service.ErrUserNotFound), http.StatusNotFound, "not_found"},
		{"too_large", wrap(service.ErrThumbnailTooLarge), http.StatusRequestEntityTooLarge, "too_large"},
		{"media", wrap(service.ErrUnsupportedThumbnail), http.StatusUnsupportedMediaType, "unsupported_media_type"},
		{"oauth", fmt.Errorf("x: %w: %w", service.ErrOAuthFailed, service.ErrInvalidEmail), http.StatusBadGateway, "oauth_failed"},
		{"mail", wrap(service.ErrNotificationFailed), http.StatusServiceUnavailable, "unavailable"},
		{"cache", wrap(tokens.ErrCacheUnavailable), http.StatusServiceUnavailable, "unavailable"},
		{"collision", tokens.ErrNonceCollision, http.StatusServiceUnavailable, "unavailable"},
		{"canceled", wrap(context.Canceled), StatusClientClosedRequest, "canceled"},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "deadline_exceeded"},
		{"body", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge, "too_large"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			gotStatus, resp := ToHTTP(tc.in)
			require.Equal(t, tc.wantStatus, gotStatus)
			require.Equal(t, tc.wantCode, resp.Error.Code)
			require.NotEmpty(t, resp.Error.Message)
		})
	}
}

func TestToHTTP_TokenErrorsIndistinguishable(t *testing.T) {
	for _, err := range []error{
		tokens.ErrMalformedToken,
		tokens.ErrInvalidSignature,
		tokens.ErrTokenExpired,
		wrap(tokens.ErrTokenConsumedOrExpired),
		tokens.ErrInvalidInput,
	} {
		gotStatus, resp := ToHTTP(err)
		require.Equal(t, http.StatusBadRequest, gotStatus)
		require.Equal(t, "invalid_token", resp.Error.Code)
		require.Equal(t, TokenMessage, resp.Error.Message)
	}
}

func TestToHTTP_NilError_Returns500Internal(t *testing.T) {
	gotStatus, resp := ToHTTP(nil)
	require.Equal(t, http.StatusInternalServerError, gotStatus)
	require.Equal(t, "internal", resp.Error.Code)
	require.Equal(t, "internal error", resp.Error.Message)
}

func TestWriteError_EnvelopeWithRequestID(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "rid-1")

	WriteError(rr, req, wrap(service.ErrEmailTaken))

	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var env ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, "already_exists", env.Error.Code)
	require.Equal(t, "rid-1", env.Error.RequestID)
}
