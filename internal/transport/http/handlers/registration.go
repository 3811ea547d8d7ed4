package handlers

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/pribylovaa/authenticator/internal/pkg/log"
	"github.com/pribylovaa/authenticator/internal/transport/http/apierrors"
)

// Страницы фронтенда, на которые ведут переходы по ссылкам из писем.
const (
	pageConfirmed       = "/auth/confirmed"
	pageRegenerateToken = "/auth/regenerate-token"
	pageChangePassword  = "/auth/password/change-password"
	pageError           = "/auth/error"

	// reasonInvalidLink — единая причина для любой ошибки ссылки.
	reasonInvalidLink = "invalid-or-expired"
)

func (h *Handlers) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var in RegisterRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	acc, err := h.svc.RegisterUser(r.Context(), registerInput(in))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, userFromAccount(acc))
}

func (h *Handlers) RegenerateToken(w http.ResponseWriter, r *http.Request) {
	var in EmailRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.RegenerateToken(r.Context(), in.Email); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{
		Message: "if an inactive account exists for this email, a new confirmation link has been sent",
	})
}

// ConfirmRegistration — переход по ссылке из письма: всегда редирект на фронтенд.
func (h *Handlers) ConfirmRegistration(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.ConfirmRegistration(r.Context(), r.URL.Query().Get("token")); err != nil {
		h.redirectLinkError(w, r, err)
		return
	}

	h.redirect(w, r, pageConfirmed)
}

// redirectLinkError уводит на запрос новой ссылки при ошибке токена
// и на общую страницу ошибки во всех остальных случаях.
func (h *Handlers) redirectLinkError(w http.ResponseWriter, r *http.Request, err error) {
	if apierrors.IsToken(err) {
		h.redirect(w, r, pageRegenerateToken+"?reason="+url.QueryEscape(reasonInvalidLink))
		return
	}

	log.From(r.Context()).Warn("link_confirm_failed",
		slog.String("path", r.URL.Path),
		slog.String("err", err.Error()),
	)
	h.redirect(w, r, pageError)
}
