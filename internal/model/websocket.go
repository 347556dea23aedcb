package model

// WebSocket message types sent to observers
const (
	WSMessageTypeSnapshot = "snapshot"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSSnapshotMessage carries one view-model snapshot to observers.
type WSSnapshotMessage struct {
	Type  string    `json:"type"`
	JobID string    `json:"jobId"`
	View  ViewModel `json:"view"`
}

// WSErrorMessage represents an error
type WSErrorMessage struct {
	Type  string  `json:"type"`
	JobID string  `json:"jobId"`
	Error WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
