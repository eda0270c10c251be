// Package apierror defines the error shape API handlers return to clients.
package apierror

import (
	"fmt"
	"net/http"
)

type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

func BadRequest(message string, details string) *APIError {
	return New("BAD_REQUEST", message, details, http.StatusBadRequest)
}

func Unauthorized(message string) *APIError {
	return New("NOT_AUTHENTICATED", message, "", http.StatusUnauthorized)
}

func PremiumRequired() *APIError {
	return New("PREMIUM_REQUIRED", "This feature requires a premium license", "", http.StatusForbidden)
}

func NotFound(message string) *APIError {
	return New("NOT_FOUND", message, "", http.StatusNotFound)
}

func Upstream(message string, details string) *APIError {
	return New("UPSTREAM_ERROR", message, details, http.StatusBadGateway)
}

func Internal(details string) *APIError {
	return New("INTERNAL_ERROR", "Unexpected server error", details, http.StatusInternalServerError)
}
