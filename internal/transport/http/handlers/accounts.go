package handlers

import (
	"errors"
	"net/http"

	"github.com/pribylovaa/authenticator/internal/service"
	"github.com/pribylovaa/authenticator/internal/transport/http/apierrors"
)

const (
	// multipartMemory — часть формы, которая держится в памяти; остальное во временных файлах.
	multipartMemory = 1 << 20
	// multipartOverhead — запас на заголовки частей и поле name.
	multipartOverhead = 64 << 10
)

// UpdateUser — PATCH multipart/form-data с необязательными полями name и thumbnail.
func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := h.sessionUser(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apierrors.WriteError(w, r, service.ErrThumbnailTooLarge)
			return
		}
		apierrors.WriteError(w, r, service.ErrInvalidInput)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	var in service.UpdateAccountInput

	if vals := r.MultipartForm.Value["name"]; len(vals) > 0 {
		name := vals[0]
		in.Name = &name
	}

	file, header, err := r.FormFile("thumbnail")
	switch {
	case err == nil:
		defer file.Close()
		in.Thumbnail = &service.Upload{Reader: file, Size: header.Size, Filename: header.Filename}
	case !errors.Is(err, http.ErrMissingFile):
		apierrors.WriteError(w, r, service.ErrInvalidInput)
		return
	}

	acc, err := h.svc.UpdateAccount(r.Context(), id, in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userFromAccount(acc))
}
