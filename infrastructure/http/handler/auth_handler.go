package handler

import (
	"encoding/json"
	"net/http"

	"github.com/carelane/authcore/application/port/inbound"
	"github.com/carelane/authcore/infrastructure/http/middleware"
	"github.com/carelane/authcore/infrastructure/http/response"
	"github.com/carelane/authcore/infrastructure/http/validator"
)

type AuthHandler struct {
	authUseCase inbound.AuthUseCase
}

func NewAuthHandler(authUseCase inbound.AuthUseCase) *AuthHandler {
	return &AuthHandler{authUseCase: authUseCase}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req inbound.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if !validator.ValidateEmail(req.Email) {
		response.UnprocessableEntity(w, "Invalid email format")
		return
	}
	if !validator.ValidateRequired(req.Password) {
		response.UnprocessableEntity(w, "Password is required")
		return
	}

	req.ClientIP = middleware.ClientIP(r)

	res, err := h.authUseCase.Login(r.Context(), req)
	if err != nil {
		response.WriteAppError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "success", res)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req inbound.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if !validator.ValidateRequired(req.RefreshToken) {
		response.UnprocessableEntity(w, "Refresh token is required")
		return
	}

	res, err := h.authUseCase.Refresh(r.Context(), req)
	if err != nil {
		response.WriteAppError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "success", res)
}

// Logout revokes the access token from the Authorization header together with
// the refresh token from the body. Runs behind RequireAuth.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req inbound.LogoutRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	req.AccessToken = middleware.BearerToken(r)

	if err := h.authUseCase.Logout(r.Context(), req); err != nil {
		response.WriteAppError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "logged out", nil)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		response.Unauthorized(w, "Not authenticated")
		return
	}

	var req inbound.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if !validator.ValidateRequired(req.CurrentPassword) {
		response.UnprocessableEntity(w, "Current password is required")
		return
	}
	if !validator.ValidatePassword(req.NewPassword) {
		response.UnprocessableEntity(w, "New password must be at least 8 characters")
		return
	}
	req.UserID = principal.ID

	if err := h.authUseCase.ChangePassword(r.Context(), req); err != nil {
		response.WriteAppError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "password changed", nil)
}

type meResponse struct {
	ID       string `json:"id"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
}

// Me returns the authenticated identity. For relying services the record
// fields are absent; only claims-derived data is available.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		response.Unauthorized(w, "Not authenticated")
		return
	}

	res := meResponse{ID: principal.ID, Role: principal.Role.String()}
	if principal.User != nil {
		res.FullName = principal.User.FullName
		res.Email = principal.User.Email
	}
	response.Success(w, http.StatusOK, "success", res)
}
