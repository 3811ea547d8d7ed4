package handlers

import (
	"errors"
	"net/http"

	"github.com/pribylovaa/authenticator/internal/service"
	"github.com/pribylovaa/authenticator/internal/transport/http/apierrors"
)

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in LoginRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	acc, err := h.svc.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.startSession(r, acc.ID); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userFromAccount(acc))
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(r.Context()); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "you have successfully logged out"})
}

func (h *Handlers) CurrentUser(w http.ResponseWriter, r *http.Request) {
	id, err := h.sessionUser(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	acc, err := h.svc.CurrentUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			// Пользователь удалён или деактивирован: сессия больше не действительна.
			_ = h.sessions.Destroy(r.Context())
			err = service.ErrNotAuthenticated
		}
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userFromAccount(acc))
}
