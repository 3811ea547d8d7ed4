package tokens

import (
	"time"

	"github.com/google/uuid"
)

// Purpose ограничивает токен одним сценарием и задаёт пространство ключей в кэше.
type Purpose string

const (
	// PurposeEmailConfirmation — ссылка подтверждения e-mail после регистрации.
	PurposeEmailConfirmation Purpose = "email-confirmation"
	// PurposePasswordReset — ссылка из письма о сбросе пароля.
	PurposePasswordReset Purpose = "password-reset"
	// PurposePasswordChange — короткоживущий токен, который выдаётся после
	// перехода по ссылке сброса и предъявляется вместе с новым паролем.
	PurposePasswordChange Purpose = "password-change"
)

// Valid сообщает, что назначение входит в перечисление.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeEmailConfirmation, PurposePasswordReset, PurposePasswordChange:
		return true
	}

	return false
}

func (p Purpose) String() string { return string(p) }

// Claims — содержимое токена. Существует только внутри зашифрованного
// токена и (nonce) в ключе кэша.
type Claims struct {
	SubjectID uuid.UUID `json:"sub"`
	Nonce     string    `json:"nonce"`
	ExpiresAt time.Time `json:"exp"`
}
