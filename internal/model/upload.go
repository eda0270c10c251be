package model

// UploadStatus is the state-machine position of a tracked upload.
// Transitions only move forward: starting/fetching -> uploading -> done ->
// clearing -> removed. Any state may jump to error, which is terminal until
// the record is explicitly dismissed.
type UploadStatus string

const (
	StatusStarting  UploadStatus = "starting"
	StatusFetching  UploadStatus = "fetching"
	StatusUploading UploadStatus = "uploading"
	StatusDone      UploadStatus = "done"
	StatusClearing  UploadStatus = "clearing"
	StatusError     UploadStatus = "error"
)

// UploadRecord is one tracked upload. The registry is the only writer; every
// copy handed to a UI surface is a read-only snapshot.
type UploadRecord struct {
	ID       string       `json:"id"`
	FileName string       `json:"fileName"`
	Status   UploadStatus `json:"status"`
	// Progress is 0-100 and never decreases once uploading begins.
	Progress int `json:"progress"`
	// Countdown is the seconds remaining before auto-removal. Seeded with
	// the full countdown at creation; ticks down only while clearing.
	Countdown int    `json:"countdown"`
	FolderID  int64  `json:"folderId"`
	SourceURL string `json:"sourceUrl,omitempty"`
	Error     string `json:"error,omitempty"`
}

// UploadFile is the payload handed to the coordinator: already-named content
// with its MIME type. Destination naming happens before this point.
type UploadFile struct {
	Name     string
	MimeType string
	Data     []byte
}

// UploadOptions carries per-upload overrides. A zero value means "resolve
// everything from settings and domain rules".
type UploadOptions struct {
	// FolderID pins the destination folder, skipping rule resolution.
	FolderID *int64
	// SourceURL is the page the content came from; used for rule matching.
	SourceURL string
	// Subfolders are template-derived path segments created under the
	// resolved destination before the file is stored.
	Subfolders []string
	// Fetching marks records that start with a remote fetch step.
	Fetching bool
}
