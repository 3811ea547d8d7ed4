package handlers

import (
	"net/http"
	"net/url"

	"github.com/pribylovaa/authenticator/internal/transport/http/apierrors"
)

func (h *Handlers) RequestPasswordChange(w http.ResponseWriter, r *http.Request) {
	var in EmailRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.RequestPasswordChange(r.Context(), in.Email); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{
		Message: "if an account exists for this email, a password reset link has been sent",
	})
}

// ConfirmChangePassword — переход по ссылке сброса: выдаёт токен смены пароля
// и передаёт его странице фронтенда.
func (h *Handlers) ConfirmChangePassword(w http.ResponseWriter, r *http.Request) {
	token, err := h.svc.ConfirmPasswordChange(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		h.redirectLinkError(w, r, err)
		return
	}

	h.redirect(w, r, pageChangePassword+"?token="+url.QueryEscape(token))
}

func (h *Handlers) ChangeUserPassword(w http.ResponseWriter, r *http.Request) {
	var in ChangePasswordRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.ChangePassword(r.Context(), in.Token, in.Password); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "your password has been changed, you can now log in"})
}
