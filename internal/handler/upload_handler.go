package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"go-cloud-clipper/internal/model"
	"go-cloud-clipper/internal/upload"
	"go-cloud-clipper/pkg/apierror"
)

const maxUploadBody = 100 << 20

type UploadHandler struct {
	coordinator *upload.Coordinator
}

func NewUploadHandler(coordinator *upload.Coordinator) *UploadHandler {
	return &UploadHandler{coordinator: coordinator}
}

// List returns the current upload list, newest first. The websocket stream
// carries the same data; this endpoint exists for surfaces that poll.
func (h *UploadHandler) List(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.coordinator.Snapshot())
}

// Create accepts a multipart form with a "file" part and an optional
// "folderId" field and starts an upload for it.
func (h *UploadHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	part, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apierror.BadRequest("multipart field 'file' is required", "file"))
		return
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		writeError(w, apierror.BadRequest("could not read file part", "file"))
		return
	}

	options := model.UploadOptions{SourceURL: r.FormValue("sourceUrl")}
	if raw := r.FormValue("folderId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, apierror.BadRequest("folderId must be numeric", "folderId"))
			return
		}
		options.FolderID = &id
	}

	record, err := h.coordinator.Enqueue(r.Context(), upload.Job{
		Name: header.Filename,
		File: &model.UploadFile{
			Name:     header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Data:     data,
		},
		Options: options,
		Kind:    "file",
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusAccepted, record)
}

// Dismiss removes a record. This is the only way to clear an errored upload.
func (h *UploadHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	if err := h.coordinator.Dismiss(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
