package handlers

import (
	"net/http"

	"github.com/pribylovaa/authenticator/internal/oauth"
	"github.com/pribylovaa/authenticator/internal/service"
	"github.com/pribylovaa/authenticator/internal/transport/http/apierrors"
)

// GoogleLogin подписывает state с путём возврата, запоминает его ID в сессии
// и уводит браузер на страницу согласия Google.
func (h *Handlers) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	raw, id, err := h.state.Sign(r.URL.Query().Get("return_to"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.sessions.Put(r.Context(), sessionStateKey, id)
	http.Redirect(w, r, h.google.AuthCodeURL(raw), http.StatusFound)
}

// GoogleCallback принимает код авторизации. State одноразовый: его ID
// извлекается из сессии до любых проверок.
func (h *Handlers) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	expected := h.sessions.PopString(r.Context(), sessionStateKey)

	st, err := h.state.Parse(q.Get("state"))
	if err != nil || expected == "" || st.ID != expected {
		apierrors.WriteError(w, r, oauth.ErrInvalidState)
		return
	}

	code := q.Get("code")
	if code == "" {
		apierrors.WriteError(w, r, service.ErrNotAuthenticated)
		return
	}

	acc, err := h.svc.GoogleLogin(r.Context(), code)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.startSession(r, acc.ID); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.redirect(w, r, st.ReturnPath)
}
