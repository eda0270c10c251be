package websocket

import (
	"encoding/json"

	"go-cloud-clipper/internal/event"
)

// Wire message types. Outbound frames mirror bus events; inbound frames are
// commands from UI surfaces.
const (
	MsgUploadState     = "uploadStateUpdate"
	MsgLicenseChanged  = "licenseChanged"
	MsgSettingsChanged = "settingsChanged"

	MsgRequestInitialState = "requestInitialState"
	MsgStartUploadFromURL  = "startUploadFromUrl"
	MsgStartUploadFromFile = "startUploadFromFile"
)

// Message is the frame format in both directions.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// outboundType maps a bus event type to its wire name. Unmapped events stay
// internal and are not forwarded.
func outboundType(t event.Type) (string, bool) {
	switch t {
	case event.TypeUploadState:
		return MsgUploadState, true
	case event.TypeLicenseChanged:
		return MsgLicenseChanged, true
	case event.TypeSettingsChanged:
		return MsgSettingsChanged, true
	}
	return "", false
}

func encodeOutbound(e event.Event) ([]byte, bool, error) {
	wireType, ok := outboundType(e.Type)
	if !ok {
		return nil, false, nil
	}

	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, false, err
	}
	frame, err := json.Marshal(Message{Type: wireType, Payload: payload})
	if err != nil {
		return nil, false, err
	}
	return frame, true, nil
}
