package model

import "time"

// ConnectionState is a point-in-time snapshot of the transport manager's
// health, exposed for diagnostics and the health endpoint.
type ConnectionState struct {
	Mode                TransportMode `json:"mode"`
	ConsecutiveFailures int           `json:"consecutiveFailures"`
	LastSuccessAt       time.Time     `json:"lastSuccessAt,omitempty"`
	CurrentIntervalMs   int64         `json:"currentIntervalMs"`
}
