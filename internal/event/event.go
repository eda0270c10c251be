package event

type Type string

const (
	// TypeUploadState carries the full upload-list snapshot. Every registry
	// mutation publishes one; there are no incremental diffs.
	TypeUploadState Type = "upload.state"

	TypeLicenseChanged  Type = "license.changed"
	TypeSettingsChanged Type = "settings.changed"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // Returns channel and unsubscribe function
}
