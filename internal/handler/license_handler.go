package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"go-cloud-clipper/internal/license"
	"go-cloud-clipper/pkg/apierror"
)

type LicenseHandler struct {
	licenses *license.Manager
}

func NewLicenseHandler(licenses *license.Manager) *LicenseHandler {
	return &LicenseHandler{licenses: licenses}
}

// Get returns the current license record; free tier when nothing is cached.
func (h *LicenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.licenses.Current(r.Context()))
}

type activateRequest struct {
	Key string `json:"key"`
}

func (h *LicenseHandler) Activate(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload activateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}
	if strings.TrimSpace(payload.Key) == "" {
		writeError(w, apierror.BadRequest("key is required", "key"))
		return
	}

	record, err := h.licenses.Activate(r.Context(), payload.Key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, record)
}

type restoreRequest struct {
	Email string `json:"email"`
}

func (h *LicenseHandler) Restore(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload restoreRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	record, err := h.licenses.Restore(r.Context(), strings.TrimSpace(payload.Email))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, record)
}

func (h *LicenseHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.licenses.Deactivate(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
