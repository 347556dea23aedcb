package model

import "time"

// ViewModel is the UI-agnostic projection of one observed job. It is a pure
// snapshot; observers never mutate it.
type ViewModel struct {
	JobID        string        `json:"jobId"`
	Status       JobStatus     `json:"status"`
	Progress     int           `json:"progress"`
	Badge        string        `json:"badge"`
	CurrentStep  string        `json:"currentStep,omitempty"`
	Steps        []StepView    `json:"steps"`
	Duration     time.Duration `json:"duration"`
	VideoURL     string        `json:"videoUrl,omitempty"`
	Error        *JobError     `json:"error,omitempty"`
	RenderStatus RenderStatus  `json:"renderStatus,omitempty"`
	RenderLabel  string        `json:"renderLabel,omitempty"`
	// ManualCheck is set when the render monitor exhausted its attempt budget
	// without seeing a terminal status. Not an error; the render may simply be
	// taking longer than we are willing to poll.
	ManualCheck bool       `json:"manualCheck,omitempty"`
	Logs        []LogEntry `json:"logs"`
	RetryCount  int        `json:"retryCount"`
	GeneratedAt time.Time  `json:"generatedAt"`
}

// StepView is one timeline row.
type StepView struct {
	Number      int        `json:"number"`
	Label       string     `json:"label,omitempty"`
	State       StepState  `json:"state"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}
