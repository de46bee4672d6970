package inbound

import (
	"context"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	ClientIP string `json:"-"`
}

type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	AccessToken  string `json:"-"`
	RefreshToken string `json:"refresh_token"`
}

type ChangePasswordRequest struct {
	UserID          string `json:"-"`
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

type AuthUseCase interface {
	Login(ctx context.Context, req LoginRequest) (*TokenPairResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*TokenPairResponse, error)
	Logout(ctx context.Context, req LogoutRequest) error
	ChangePassword(ctx context.Context, req ChangePasswordRequest) error
}
