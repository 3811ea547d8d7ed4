// http собирает REST API сервиса: chi-роутер, цепочку мидлваров и сессии scs.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/authenticator/internal/transport/http/handlers"
	"github.com/pribylovaa/authenticator/internal/transport/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
	// Metrics получает итог каждого запроса; nil — без метрик.
	Metrics middleware.Observer
	// BasePath — префикс API, например "/api"; пустой — роуты на корне.
	BasePath string
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(h *handlers.Handlers, sessions *scs.SessionManager, opts Options) http.Handler {
	root := chi.NewRouter()

	// Внешний -> внутренний. RequestID до Logging, чтобы id попал в логгер.
	root.Use(
		middleware.Recover(),
		middleware.RequestID(),
		middleware.Logging(opts.Logger, opts.Metrics),
		middleware.Timeout(opts.Timeout),
		sessions.LoadAndSave,
	)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers) {
	r.Get("/ping", h.Ping)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/registration/register", h.RegisterUser)
		r.Post("/registration/regenerate-token", h.RegenerateToken)
		r.Get("/registration/register/confirm", h.ConfirmRegistration)

		r.Post("/sessions/login", h.Login)
		r.Post("/sessions/logout", h.Logout)
		r.Get("/sessions/current-user", h.CurrentUser)

		r.Patch("/accounts/update-user", h.UpdateUser)

		r.Post("/password/request-password-change", h.RequestPasswordChange)
		r.Get("/password/confirm-change-password", h.ConfirmChangePassword)
		r.Post("/password/change-user-password", h.ChangeUserPassword)

		if h.GoogleEnabled() {
			r.Get("/oauth/google/login", h.GoogleLogin)
			r.Get("/oauth/google/callback", h.GoogleCallback)
		}
	})
}
