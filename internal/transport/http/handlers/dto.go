package handlers

import (
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/authenticator/internal/service"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type EmailRequest struct {
	Email string `json:"email"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ProfileResponse struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
}

// UserResponse — публичное представление пользователя.
type UserResponse struct {
	ID          uuid.UUID       `json:"id"`
	Email       string          `json:"email"`
	Name        string          `json:"name"`
	Thumbnail   string          `json:"thumbnail"`
	IsActive    bool            `json:"is_active"`
	IsStaff     bool            `json:"is_staff"`
	IsSuperuser bool            `json:"is_superuser"`
	DateJoined  time.Time       `json:"date_joined"`
	Profile     ProfileResponse `json:"profile"`
}

func userFromAccount(a *service.Account) UserResponse {
	return UserResponse{
		ID:          a.ID,
		Email:       a.Email,
		Name:        a.Name,
		Thumbnail:   a.ThumbnailURL,
		IsActive:    a.IsActive,
		IsStaff:     a.IsStaff,
		IsSuperuser: a.IsSuperuser,
		DateJoined:  a.DateJoined,
		Profile:     ProfileResponse{ID: a.ProfileID, UserID: a.ID},
	}
}

func registerInput(in RegisterRequest) service.RegisterInput {
	return service.RegisterInput{Email: in.Email, Password: in.Password, Name: in.Name}
}
