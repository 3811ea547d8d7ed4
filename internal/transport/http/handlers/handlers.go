// handlers реализует REST-эндпойнты сервиса аутентификации поверх
// service.Service. Сессия (scs) хранит только user_id и state OAuth.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"

	"github.com/pribylovaa/authenticator/internal/oauth"
	"github.com/pribylovaa/authenticator/internal/service"
)

const (
	sessionUserKey  = "user_id"
	sessionStateKey = "oauth_state"

	// maxJSONBody ограничивает тело JSON-запросов.
	maxJSONBody = 1 << 20
)

// Deps — зависимости Handlers.
type Deps struct {
	Service  *service.Service
	Sessions *scs.SessionManager
	// Google и State равны nil, если вход через Google не сконфигурирован.
	Google *oauth.Google
	State  *oauth.StateSigner
	// FrontendURL — адрес фронтенда для редиректов после переходов по ссылкам.
	FrontendURL string
	// MaxThumbnailBytes — лимит миниатюры; тело multipart ограничивается с запасом.
	MaxThumbnailBytes int64
}

// Handlers агрегирует зависимости HTTP-слоя.
type Handlers struct {
	svc         *service.Service
	sessions    *scs.SessionManager
	google      *oauth.Google
	state       *oauth.StateSigner
	frontendURL string
	maxUpload   int64
}

func New(d Deps) *Handlers {
	return &Handlers{
		svc:         d.Service,
		sessions:    d.Sessions,
		google:      d.Google,
		state:       d.State,
		frontendURL: strings.TrimRight(d.FrontendURL, "/"),
		maxUpload:   d.MaxThumbnailBytes,
	}
}

// GoogleEnabled сообщает, нужно ли регистрировать маршруты Google.
func (h *Handlers) GoogleEnabled() bool {
	return h.google != nil && h.state != nil
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(value); err != nil {
		return service.ErrInvalidInput
	}
	return nil
}

// redirect отправляет браузер на страницу фронтенда.
func (h *Handlers) redirect(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, h.frontendURL+path, http.StatusSeeOther)
}

// startSession выдаёт новый токен сессии (защита от фиксации) и запоминает пользователя.
func (h *Handlers) startSession(r *http.Request, id uuid.UUID) error {
	if err := h.sessions.RenewToken(r.Context()); err != nil {
		return err
	}
	h.sessions.Put(r.Context(), sessionUserKey, id.String())
	return nil
}

// sessionUser возвращает ID пользователя из сессии.
func (h *Handlers) sessionUser(r *http.Request) (uuid.UUID, error) {
	raw := h.sessions.GetString(r.Context(), sessionUserKey)
	if raw == "" {
		return uuid.Nil, service.ErrNotAuthenticated
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, service.ErrNotAuthenticated
	}
	return id, nil
}

// Ping — проверка доступности API.
func (h *Handlers) Ping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "pong"})
}
