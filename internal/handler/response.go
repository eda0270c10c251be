package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"go-cloud-clipper/internal/license"
	"go-cloud-clipper/internal/model"
	"go-cloud-clipper/internal/pcloud"
	"go-cloud-clipper/pkg/apierror"
)

func writeSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	var upstream *pcloud.Error
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else if errors.Is(err, model.ErrNotAuthenticated) {
		status = http.StatusUnauthorized
		body.Code = "NOT_AUTHENTICATED"
		body.Message = "No account connected"
	} else if errors.Is(err, model.ErrPremiumRequired) {
		status = http.StatusForbidden
		body.Code = "PREMIUM_REQUIRED"
		body.Message = "This feature requires a premium license"
	} else if errors.Is(err, model.ErrUploadNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Upload not found"
	} else if errors.Is(err, model.ErrSettingNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Setting not found"
	} else if errors.Is(err, model.ErrInvalidInput) {
		status = http.StatusBadRequest
		body.Code = "BAD_REQUEST"
		body.Message = "Invalid input"
		body.Details = err.Error()
	} else if errors.Is(err, license.ErrInvalidKey) {
		status = http.StatusBadRequest
		body.Code = "INVALID_LICENSE"
		body.Message = "License key is invalid"
	} else if errors.Is(err, license.ErrNoLicenseFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "No license found for this email"
	} else if errors.Is(err, license.ErrRestoreFailed) {
		status = http.StatusBadGateway
		body.Code = "UPSTREAM_ERROR"
		body.Message = "License service unavailable"
	} else if errors.As(err, &upstream) {
		if upstream.AuthFailure() {
			status = http.StatusUnauthorized
			body.Code = "NOT_AUTHENTICATED"
			body.Message = "Session expired. Please log in again."
		} else {
			status = http.StatusBadGateway
			body.Code = "UPSTREAM_ERROR"
			body.Message = "Storage provider rejected the request"
			body.Details = upstream.Message
		}
	} else {
		// Log unclassified errors so they are visible in container logs.
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}
