package transport

import "github.com/Skotchmaster/skincare_tracker/internal/models"

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=1,max=128"`
}

type SignupRequest struct {
	Email    string `json:"email"    validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128,maxbytes=72"`
}

type MobileRefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// MobileLogoutRequest carries the token to revoke. It may be absent.
type MobileLogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type AuthResponse struct {
	User         *models.PublicUser `json:"user,omitempty"`
	AccessToken  string             `json:"accessToken"`
	RefreshToken string             `json:"refreshToken,omitempty"`
}

type SessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"userId"`
}
