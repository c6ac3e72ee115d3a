package dto

import (
	"time"

	"github.com/noah-isme/job-portal-api/internal/models"
)

// RequestMeta carries caller details recorded in audit logs.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// RegisterRequest defines the payload for account registration.
type RegisterRequest struct {
	Email       string          `json:"email" validate:"required,email,max=255"`
	Password    string          `json:"password" validate:"required,min=8,max=72"`
	FullName    string          `json:"full_name" validate:"required,max=255"`
	Role        models.UserRole `json:"role" validate:"required,oneof=job_seeker employer"`
	Phone       *string         `json:"phone" validate:"omitempty,max=50"`
	CompanyName *string         `json:"company_name" validate:"omitempty,max=255"`
}

// LoginRequest defines the payload for password login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest defines the payload for a password change. Its rules
// live in the update pipeline, not in tags.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// AuthResponse is returned after register and login. Token is also set as
// the session cookie.
type AuthResponse struct {
	User      models.UserInfo `json:"user"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
}
