package handler

import (
	"encoding/json"
	"net/http"

	"go-cloud-clipper/internal/clipper"
	"go-cloud-clipper/pkg/apierror"
)

// ClipHandler accepts capture requests from the extension surfaces. Every
// clip returns 202 with the initial record; progress arrives over the
// websocket stream.
type ClipHandler struct {
	clips *clipper.Service
}

func NewClipHandler(clips *clipper.Service) *ClipHandler {
	return &ClipHandler{clips: clips}
}

func (h *ClipHandler) Image(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload clipper.ImageClip
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	record, err := h.clips.ClipImage(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusAccepted, record)
}

func (h *ClipHandler) File(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload clipper.FileClip
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	record, err := h.clips.ClipFile(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusAccepted, record)
}

func (h *ClipHandler) Text(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload clipper.TextClip
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	record, err := h.clips.ClipText(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusAccepted, record)
}

func (h *ClipHandler) Document(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload clipper.DocumentClip
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	record, err := h.clips.ClipDocument(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusAccepted, record)
}
