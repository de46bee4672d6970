package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/carelane/authcore/domain/apperror"
)

type Envelope struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, envelope Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(envelope)
}

func Success(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	WriteJSON(w, statusCode, Envelope{Status: true, Message: message, Data: data})
}

func Error(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, Envelope{Status: false, Message: message})
}

func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message)
}

func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, message)
}

func UnprocessableEntity(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnprocessableEntity, message)
}

// WriteAppError is the single translation point from the error catalog to
// HTTP. Foreign errors are reported as an opaque 500 so infrastructure detail
// never reaches a client.
func WriteAppError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	status := statusFor(appErr.Code)
	if appErr.RetryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(appErr.RetryAfterSeconds))
	}
	WriteJSON(w, status, Envelope{
		Status:  false,
		Message: appErr.Message,
		Code:    string(appErr.Code),
	})
}

func statusFor(code apperror.Code) int {
	switch code {
	case apperror.CodeInvalidCredentials,
		apperror.CodeInvalidToken,
		apperror.CodeTokenExpired,
		apperror.CodeTokenRevoked,
		apperror.CodeTokenTypeInvalid:
		return http.StatusUnauthorized
	case apperror.CodeNotAuthorized:
		return http.StatusForbidden
	case apperror.CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case apperror.CodeResourceNotFound:
		return http.StatusNotFound
	case apperror.CodeResourceAlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
