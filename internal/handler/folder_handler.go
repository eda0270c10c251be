package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go-cloud-clipper/internal/model"
	"go-cloud-clipper/internal/pcloud"
	"go-cloud-clipper/internal/settings"
	"go-cloud-clipper/internal/upload"
	"go-cloud-clipper/pkg/apierror"
)

// FolderHandler serves the folder picker: listing the remote tree, creating
// folders and resolving paths to ids.
type FolderHandler struct {
	client   pcloud.Client
	settings *settings.Service
	resolver *upload.FolderResolver
}

func NewFolderHandler(client pcloud.Client, settingsSvc *settings.Service, resolver *upload.FolderResolver) *FolderHandler {
	return &FolderHandler{client: client, settings: settingsSvc, resolver: resolver}
}

func (h *FolderHandler) token(w http.ResponseWriter, r *http.Request) (string, bool) {
	token, err := h.settings.AuthToken(r.Context())
	if err != nil {
		writeError(w, err)
		return "", false
	}
	if token == "" {
		writeError(w, model.ErrNotAuthenticated)
		return "", false
	}
	return token, true
}

// List returns the folder tree rooted at ?folderId (default root). With
// ?recursive=1 the whole subtree comes back in one response.
func (h *FolderHandler) List(w http.ResponseWriter, r *http.Request) {
	token, ok := h.token(w, r)
	if !ok {
		return
	}

	folderID := int64(0)
	if raw := r.URL.Query().Get("folderId"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, apierror.BadRequest("folderId must be an integer", "folderId"))
			return
		}
		folderID = parsed
	}
	recursive := r.URL.Query().Get("recursive") == "1"

	folder, err := h.client.ListFolder(r.Context(), token, folderID, recursive)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, folder)
}

type createFolderRequest struct {
	ParentID int64  `json:"parentId"`
	Name     string `json:"name"`
}

// Create makes a folder under parentId, returning the existing one when the
// name is already taken.
func (h *FolderHandler) Create(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	token, ok := h.token(w, r)
	if !ok {
		return
	}

	var payload createFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}
	if payload.Name == "" {
		writeError(w, apierror.BadRequest("name is required", "name"))
		return
	}

	folder, err := h.client.CreateFolderIfNotExists(r.Context(), token, payload.ParentID, payload.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, folder)
}

type resolvePathRequest struct {
	Path string `json:"path"`
}

type resolvePathResponse struct {
	FolderID int64  `json:"folderId"`
	Path     string `json:"path"`
}

// Resolve maps a path like /Clips/Work to a folder id, creating any missing
// folders. The root path resolves without touching the provider.
func (h *FolderHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	token, ok := h.token(w, r)
	if !ok {
		return
	}

	var payload resolvePathRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	folderID, err := h.resolver.ResolvePath(r.Context(), token, payload.Path)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, resolvePathResponse{FolderID: folderID, Path: payload.Path})
}
