// models содержит доменные сущности сервиса аутентификации.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User — учётная запись.
// PasswordHash пуст у аккаунтов, созданных через вход Google.
// Thumbnail — ключ объекта в бакете, а не URL.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Name         string
	Thumbnail    string
	IsActive     bool
	IsStaff      bool
	IsSuperuser  bool
	DateJoined   time.Time
	Profile      Profile
}

// HasPassword сообщает, можно ли войти по паролю.
func (u *User) HasPassword() bool { return u.PasswordHash != "" }

// Profile — профиль пользователя (создаётся вместе с пользователем).
type Profile struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

// UserUpdate — частичное обновление: nil-поле не меняется.
type UserUpdate struct {
	Name      *string
	Thumbnail *string
}
