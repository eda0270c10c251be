package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go-cloud-clipper/internal/pcloud"
	"go-cloud-clipper/internal/settings"
	"go-cloud-clipper/pkg/apierror"
)

type AuthHandler struct {
	client   pcloud.Client
	settings *settings.Service
}

func NewAuthHandler(client pcloud.Client, settingsSvc *settings.Service) *AuthHandler {
	return &AuthHandler{client: client, settings: settingsSvc}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type authStatus struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
}

// Login exchanges credentials for an access token and stores it. The
// password is never persisted.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}
	if strings.TrimSpace(payload.Username) == "" || payload.Password == "" {
		writeError(w, apierror.BadRequest("username and password are required", ""))
		return
	}

	token, err := h.client.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.settings.SetAuthToken(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}

	info, err := h.client.UserInfo(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, authStatus{Authenticated: true, Email: info.Email})
}

// SetToken stores a token obtained through the provider's OAuth flow. The
// token is validated against the provider before it is saved.
func (h *AuthHandler) SetToken(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}
	if strings.TrimSpace(payload.Token) == "" {
		writeError(w, apierror.BadRequest("token is required", "token"))
		return
	}

	info, err := h.client.UserInfo(r.Context(), payload.Token)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.settings.SetAuthToken(r.Context(), payload.Token); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, authStatus{Authenticated: true, Email: info.Email})
}

// Status reports whether a working token is stored, without contacting the
// provider.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	token, err := h.settings.AuthToken(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if token == "" {
		writeSuccess(w, http.StatusOK, authStatus{Authenticated: false})
		return
	}

	info, err := h.client.UserInfo(r.Context(), token)
	if err != nil {
		var upstream *pcloud.Error
		if errors.As(err, &upstream) && upstream.AuthFailure() {
			// Stale token: report unauthenticated rather than erroring.
			writeSuccess(w, http.StatusOK, authStatus{Authenticated: false})
			return
		}
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, authStatus{Authenticated: true, Email: info.Email})
}

// Logout invalidates the token remotely and clears it locally. Local state
// is cleared even when the remote call fails.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, err := h.settings.AuthToken(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	if token != "" {
		// Best effort; a revoked token is already logged out.
		_ = h.client.Logout(r.Context(), token)
	}
	if err := h.settings.ClearAuthToken(r.Context()); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, authStatus{Authenticated: false})
}
