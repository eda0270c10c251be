package handler

import (
	"net/http"

	"go-cloud-clipper/internal/model"
	"go-cloud-clipper/internal/pcloud"
	"go-cloud-clipper/internal/settings"
)

type AccountHandler struct {
	client   pcloud.Client
	settings *settings.Service
}

func NewAccountHandler(client pcloud.Client, settingsSvc *settings.Service) *AccountHandler {
	return &AccountHandler{client: client, settings: settingsSvc}
}

// Get returns the connected account's details and quota usage.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	token, err := h.settings.AuthToken(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if token == "" {
		writeError(w, model.ErrNotAuthenticated)
		return
	}

	info, err := h.client.UserInfo(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, info)
}
