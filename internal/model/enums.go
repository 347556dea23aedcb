package model

// Job status
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusRendering  JobStatus = "rendering"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

var ValidJobStatuses = []JobStatus{
	JobStatusPending, JobStatusProcessing, JobStatusRendering,
	JobStatusCompleted, JobStatusFailed, JobStatusCancelled,
}

// Terminal reports whether no further event may mutate a job in this status,
// short of an explicit retry.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// RenderStatus is the external compositing service's own lifecycle, tracked
// once the primary workflow hands off a render id.
type RenderStatus string

const (
	RenderStatusPlanned      RenderStatus = "planned"
	RenderStatusQueued       RenderStatus = "queued"
	RenderStatusWaiting      RenderStatus = "waiting"
	RenderStatusTranscribing RenderStatus = "transcribing"
	RenderStatusProcessing   RenderStatus = "processing"
	RenderStatusRendering    RenderStatus = "rendering"
	RenderStatusSucceeded    RenderStatus = "succeeded"
	RenderStatusFailed       RenderStatus = "failed"
	RenderStatusError        RenderStatus = "error"
)

// Terminal reports whether the render pipeline has finished, one way or another.
func (s RenderStatus) Terminal() bool {
	switch s {
	case RenderStatusSucceeded, RenderStatusFailed, RenderStatusError:
		return true
	}
	return false
}

// Step states for the projected timeline
type StepState string

const (
	StepStatePending   StepState = "pending"
	StepStateActive    StepState = "active"
	StepStateCompleted StepState = "completed"
	StepStateFailed    StepState = "failed"
)

// Log levels
type LogLevel string

const (
	LogLevelInfo    LogLevel = "info"
	LogLevelSuccess LogLevel = "success"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
	LogLevelDebug   LogLevel = "debug"
)

// Log sources
type LogSource string

const (
	LogSourceDurable LogSource = "durable"
	LogSourceLive    LogSource = "live"
)

// Transport modes
type TransportMode string

const (
	TransportModePush TransportMode = "push"
	TransportModePull TransportMode = "pull"
)
